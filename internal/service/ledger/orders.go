package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// CreateSalesOrderInput is a new order header.
type CreateSalesOrderInput struct {
	CustomerID string    `json:"customer_id"`
	OrderDate  time.Time `json:"order_date"`
	Notes      string    `json:"notes"`
}

// AddPickLineInput reserves a quantity of one lot item for an order.
type AddPickLineInput struct {
	OrderID        string          `json:"order_id"`
	LotItemID      string          `json:"lot_item_id"`
	CustomerMark   string          `json:"customer_mark"`
	PlannedBags    int             `json:"planned_bags"`
	PlannedLooseKg decimal.Decimal `json:"planned_loose_kg"`
	SaleRatePerKg  decimal.Decimal `json:"sale_rate_per_kg"`
	PackagingType  string          `json:"packaging_type"`
}

// CreateSalesOrder opens a Draft order for an existing customer. A zero
// order date means today.
func (s *Service) CreateSalesOrder(ctx context.Context, in CreateSalesOrderInput) (order models.SalesOrder, err error) {
	defer func() { s.observe("create_sales_order", err) }()

	if in.CustomerID == "" {
		return models.SalesOrder{}, invalid("customer_id", "is required")
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.GetCustomer(ctx, in.CustomerID); err != nil {
			return unknownReference(err, "customer_id")
		}
		order = models.SalesOrder{
			ID:         s.newID(),
			CustomerID: in.CustomerID,
			OrderDate:  s.dateOrToday(in.OrderDate),
			Notes:      strings.TrimSpace(in.Notes),
			Status:     models.OrderDraft,
			CreatedAt:  s.timestamp(),
		}
		if err := tx.CreateSalesOrder(ctx, order); err != nil {
			return fmt.Errorf("create sales order: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.SalesOrder{}, err
	}

	s.logger.Info("sales order created", zap.String("order_id", order.ID), zap.String("customer_id", order.CustomerID))
	return order, nil
}

// AddPickLine reserves stock of one lot item for an order. The planned
// weight is checked against the item's current stock but stock is only
// decremented at packing time. A Draft order moves to Packing in Progress.
func (s *Service) AddPickLine(ctx context.Context, in AddPickLineInput) (line models.PickLine, err error) {
	defer func() { s.observe("add_pick_line", err) }()

	if in.OrderID == "" {
		return models.PickLine{}, invalid("order_id", "is required")
	}
	if in.LotItemID == "" {
		return models.PickLine{}, invalid("lot_item_id", "is required")
	}
	if !in.SaleRatePerKg.IsPositive() {
		return models.PickLine{}, fmt.Errorf("%w: sale rate must be greater than zero", ErrInvalidRate)
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		order, err := tx.LockSalesOrder(ctx, in.OrderID)
		if err != nil {
			return fmt.Errorf("sales order %s: %w", in.OrderID, err)
		}
		item, err := tx.LockLotItem(ctx, in.LotItemID)
		if err != nil {
			return fmt.Errorf("lot item %s: %w", in.LotItemID, err)
		}
		fallback, err := s.bagWeight(ctx, tx)
		if err != nil {
			return err
		}

		planned := models.TotalKg(in.PlannedBags, in.PlannedLooseKg, models.ResolveBagWeight(item.BagWeightKg, fallback))
		if !planned.IsPositive() {
			return ErrEmptyQuantity
		}
		if planned.GreaterThan(item.CurrentTotalKg) {
			return fmt.Errorf("%w: planned %s kg, available %s kg", ErrExceedsAvailableStock, planned, item.CurrentTotalKg)
		}

		packaging := strings.TrimSpace(in.PackagingType)
		if packaging == "" {
			packaging = models.DefaultPackagingType
		}
		line = models.PickLine{
			ID:             s.newID(),
			OrderID:        order.ID,
			LotItemID:      item.ID,
			CustomerMark:   strings.TrimSpace(in.CustomerMark),
			PlannedBags:    max(in.PlannedBags, 0),
			PlannedLooseKg: decimal.Max(in.PlannedLooseKg, decimal.Zero),
			PlannedTotalKg: planned,
			SaleRatePerKg:  in.SaleRatePerKg,
			PackagingType:  packaging,
			Status:         models.PickToBePacked,
			ActualLooseKg:  decimal.Zero,
			ActualTotalKg:  decimal.Zero,
			CreatedAt:      s.timestamp(),
		}
		if err := tx.CreatePickLine(ctx, line); err != nil {
			return fmt.Errorf("create pick line: %w", err)
		}

		// A new unpacked line reopens a Packed order as well.
		if order.Status != models.OrderPackingInProgress {
			if err := tx.UpdateSalesOrderStatus(ctx, order.ID, models.OrderPackingInProgress); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return models.PickLine{}, err
	}

	s.logger.Info("pick line added",
		zap.String("pick_line_id", line.ID),
		zap.String("order_id", line.OrderID),
		zap.String("lot_item_id", line.LotItemID),
		zap.String("planned_kg", line.PlannedTotalKg.String()))
	return line, nil
}

// GetOrderValue values an order from its pick lines.
func (s *Service) GetOrderValue(ctx context.Context, orderID string) (models.OrderValue, error) {
	if _, err := s.store.GetSalesOrder(ctx, orderID); err != nil {
		return models.OrderValue{}, err
	}
	lines, err := s.store.ListPickLines(ctx, repository.PickLineFilter{OrderID: orderID})
	if err != nil {
		return models.OrderValue{}, fmt.Errorf("list pick lines: %w", err)
	}
	return models.ValueOrder(orderID, lines), nil
}

// GetSalesOrder returns an order with its pick lines.
func (s *Service) GetSalesOrder(ctx context.Context, id string) (models.SalesOrderWithLines, error) {
	order, err := s.store.GetSalesOrder(ctx, id)
	if err != nil {
		return models.SalesOrderWithLines{}, err
	}
	lines, err := s.store.ListPickLines(ctx, repository.PickLineFilter{OrderID: id})
	if err != nil {
		return models.SalesOrderWithLines{}, fmt.Errorf("list pick lines: %w", err)
	}
	return models.SalesOrderWithLines{SalesOrder: order, Lines: lines}, nil
}

// ListSalesOrders returns every order header in creation order.
func (s *Service) ListSalesOrders(ctx context.Context) ([]models.SalesOrder, error) {
	return s.store.ListSalesOrders(ctx)
}

// PackingQueue returns the pick lines still waiting to be packed, oldest first.
func (s *Service) PackingQueue(ctx context.Context) ([]models.PickLine, error) {
	return s.store.ListPickLines(ctx, repository.PickLineFilter{Status: models.PickToBePacked})
}
