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

// LotItemInput describes one product line of a new lot. BagWeightKg is
// optional; the configured default applies when it is zero.
type LotItemInput struct {
	ProductID         string          `json:"product_id"`
	WarehouseID       string          `json:"warehouse_id"`
	BayNumber         string          `json:"bay_number"`
	Bags              int             `json:"bags"`
	LooseKg           decimal.Decimal `json:"loose_kg"`
	BagWeightKg       decimal.Decimal `json:"bag_weight_kg"`
	PurchaseRatePerKg decimal.Decimal `json:"purchase_rate_per_kg"`
}

func (in LotItemInput) hasQuantity() bool {
	return in.Bags > 0 || in.LooseKg.IsPositive()
}

// CreateLotInput is a lot header with its items.
type CreateLotInput struct {
	LotNumber    string         `json:"lot_number"`
	FarmerID     string         `json:"farmer_id"`
	PurchaseDate time.Time      `json:"purchase_date"`
	Items        []LotItemInput `json:"items"`
}

func (in CreateLotInput) validate() error {
	if strings.TrimSpace(in.LotNumber) == "" {
		return invalid("lot_number", "is required")
	}
	if in.FarmerID == "" {
		return invalid("farmer_id", "is required")
	}
	if in.PurchaseDate.IsZero() {
		return invalid("purchase_date", "is required")
	}
	if len(in.Items) == 0 {
		return ErrEmptyItemList
	}
	withQuantity := 0
	for i, item := range in.Items {
		if !item.hasQuantity() {
			continue
		}
		withQuantity++
		if item.ProductID == "" {
			return invalid(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.PurchaseRatePerKg.IsNegative() {
			return fmt.Errorf("%w: items[%d] purchase rate %s is negative", ErrInvalidRate, i, item.PurchaseRatePerKg)
		}
	}
	if withQuantity == 0 {
		return ErrEmptyItemList
	}
	return nil
}

// CreateLot records a purchase: the lot header and every item with quantity
// are written together, or nothing is.
func (s *Service) CreateLot(ctx context.Context, in CreateLotInput) (result models.LotWithItems, err error) {
	defer func() { s.observe("create_lot", err) }()

	if err = in.validate(); err != nil {
		return models.LotWithItems{}, err
	}
	number := strings.TrimSpace(in.LotNumber)

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		existing, err := tx.FindLotsByNumber(ctx, number)
		if err != nil {
			return fmt.Errorf("look up lot number: %w", err)
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %q", ErrDuplicateLotNumber, number)
		}
		if _, err := tx.GetFarmer(ctx, in.FarmerID); err != nil {
			return unknownReference(err, "farmer_id")
		}

		bagWeight, err := s.bagWeight(ctx, tx)
		if err != nil {
			return err
		}

		now := s.timestamp()
		lot := models.Lot{
			ID:           s.newID(),
			LotNumber:    number,
			FarmerID:     in.FarmerID,
			PurchaseDate: models.CalendarDay(in.PurchaseDate),
			CreatedAt:    now,
		}

		items := make([]models.LotItem, 0, len(in.Items))
		for i, input := range in.Items {
			if !input.hasQuantity() {
				continue
			}
			if _, err := tx.GetProduct(ctx, input.ProductID); err != nil {
				return unknownReference(err, fmt.Sprintf("items[%d].product_id", i))
			}
			if input.WarehouseID != "" {
				if _, err := tx.GetWarehouse(ctx, input.WarehouseID); err != nil {
					return unknownReference(err, fmt.Sprintf("items[%d].warehouse_id", i))
				}
			}
			weight := models.ResolveBagWeight(input.BagWeightKg, bagWeight)
			total := models.TotalKg(input.Bags, input.LooseKg, weight)
			items = append(items, models.LotItem{
				ID:                 s.newID(),
				LotID:              lot.ID,
				ProductID:          input.ProductID,
				WarehouseID:        input.WarehouseID,
				BayNumber:          input.BayNumber,
				InitialBags:        input.Bags,
				InitialLooseKg:     input.LooseKg,
				BagWeightKg:        weight,
				PurchaseRatePerKg:  input.PurchaseRatePerKg,
				InitialTotalKg:     total,
				CurrentTotalKg:     total,
				TotalPurchaseValue: total.Mul(input.PurchaseRatePerKg),
				CreatedAt:          now,
			})
		}

		if err := tx.CreateLot(ctx, lot); err != nil {
			if repository.IsKind(err, repository.KindUniqueness) {
				return fmt.Errorf("%w: %q", ErrDuplicateLotNumber, number)
			}
			return fmt.Errorf("create lot: %w", err)
		}
		if err := tx.CreateLotItems(ctx, items); err != nil {
			return fmt.Errorf("create lot items: %w", err)
		}

		result = models.LotWithItems{Lot: lot, Items: items}
		return nil
	})
	if err != nil {
		return models.LotWithItems{}, err
	}

	s.logger.Info("lot created",
		zap.String("lot_id", result.ID),
		zap.String("lot_number", result.LotNumber),
		zap.Int("items", len(result.Items)))
	for _, item := range result.Items {
		s.metrics.StockMoved("received", item.InitialTotalKg)
	}
	return result, nil
}

// GetLot returns a lot with its items.
func (s *Service) GetLot(ctx context.Context, id string) (models.LotWithItems, error) {
	lot, err := s.store.GetLot(ctx, id)
	if err != nil {
		return models.LotWithItems{}, err
	}
	items, err := s.store.ListLotItems(ctx, repository.LotItemFilter{LotID: id})
	if err != nil {
		return models.LotWithItems{}, fmt.Errorf("list lot items: %w", err)
	}
	return models.LotWithItems{Lot: lot, Items: items}, nil
}

// ListLots returns every lot header in creation order.
func (s *Service) ListLots(ctx context.Context) ([]models.Lot, error) {
	return s.store.ListLots(ctx)
}

// GetLotBalance derives what is still owed to the farmer for one lot.
func (s *Service) GetLotBalance(ctx context.Context, lotID string) (models.LotBalance, error) {
	lot, err := s.store.GetLot(ctx, lotID)
	if err != nil {
		return models.LotBalance{}, err
	}
	items, err := s.store.ListLotItems(ctx, repository.LotItemFilter{LotID: lotID})
	if err != nil {
		return models.LotBalance{}, fmt.Errorf("list lot items: %w", err)
	}
	payments, err := s.store.ListPurchasePayments(ctx, lotID)
	if err != nil {
		return models.LotBalance{}, fmt.Errorf("list purchase payments: %w", err)
	}
	return models.BalanceOfLot(lot, items, payments), nil
}

// AvailableLotItems returns every lot item that still holds stock.
func (s *Service) AvailableLotItems(ctx context.Context) ([]models.LotItem, error) {
	return s.store.ListLotItems(ctx, repository.LotItemFilter{InStockOnly: true})
}

// DeleteLot removes a lot and its items. Lots with payments or pick lines
// cannot be removed.
func (s *Service) DeleteLot(ctx context.Context, id string) (err error) {
	defer func() { s.observe("delete_lot", err) }()

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteLot(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete lot %s: %w", id, err)
	}
	s.logger.Info("lot deleted", zap.String("lot_id", id))
	return nil
}
