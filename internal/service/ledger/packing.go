package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// ConfirmPackingInput carries the quantities actually packed for a pick line.
type ConfirmPackingInput struct {
	PickLineID    string          `json:"pick_line_id"`
	ActualBags    int             `json:"actual_bags"`
	ActualLooseKg decimal.Decimal `json:"actual_loose_kg"`
}

// PackingResult is everything a packing confirmation changed.
type PackingResult struct {
	Line     models.PickLine             `json:"pick_line"`
	Dispatch models.DispatchConfirmation `json:"dispatch"`
	LotItem  models.LotItem              `json:"lot_item"`
	Order    models.SalesOrder           `json:"order"`
}

// ConfirmPacking moves a pick line to Packed. In one transaction it removes
// the packed weight from the lot item, records the dispatch, stores the
// actual quantities on the line and marks the order Packed once no line is
// left to pack. Packing more than the lot item holds is refused.
func (s *Service) ConfirmPacking(ctx context.Context, in ConfirmPackingInput) (result PackingResult, err error) {
	defer func() { s.observe("confirm_packing", err) }()

	if in.PickLineID == "" {
		return PackingResult{}, ErrPickLineNotFound
	}

	err = s.store.RunInTransaction(ctx, func(ctx context.Context, tx repository.Tx) error {
		line, err := tx.GetPickLine(ctx, in.PickLineID)
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrPickLineNotFound, in.PickLineID)
		}
		if err != nil {
			return fmt.Errorf("load pick line: %w", err)
		}
		if line.IsPacked() {
			return fmt.Errorf("%w: %s", ErrAlreadyPacked, line.ID)
		}
		if in.ActualBags <= 0 && !in.ActualLooseKg.IsPositive() {
			return ErrEmptyQuantity
		}

		order, err := tx.LockSalesOrder(ctx, line.OrderID)
		if err != nil {
			return fmt.Errorf("sales order %s: %w", line.OrderID, err)
		}
		item, err := tx.LockLotItem(ctx, line.LotItemID)
		if err != nil {
			return fmt.Errorf("lot item %s: %w", line.LotItemID, err)
		}
		fallback, err := s.bagWeight(ctx, tx)
		if err != nil {
			return err
		}

		actual := models.TotalKg(in.ActualBags, in.ActualLooseKg, models.ResolveBagWeight(item.BagWeightKg, fallback))
		item, err = tx.DecrementLotItemStock(ctx, item.ID, actual)
		if errors.Is(err, repository.ErrInsufficientStock) {
			return fmt.Errorf("%w: packing %s kg from lot item %s", ErrExceedsAvailableStock, actual, line.LotItemID)
		}
		if err != nil {
			return fmt.Errorf("decrement stock: %w", err)
		}

		now := s.timestamp()
		dispatch := models.DispatchConfirmation{
			ID:            s.newID(),
			PickLineID:    line.ID,
			ActualBags:    max(in.ActualBags, 0),
			ActualLooseKg: decimal.Max(in.ActualLooseKg, decimal.Zero),
			ActualTotalKg: actual,
			CreatedAt:     now,
		}
		if err := tx.CreateDispatch(ctx, dispatch); err != nil {
			if repository.IsKind(err, repository.KindUniqueness) {
				return fmt.Errorf("%w: %s", ErrAlreadyPacked, line.ID)
			}
			return fmt.Errorf("create dispatch: %w", err)
		}

		line.Status = models.PickPacked
		line.ActualBags = dispatch.ActualBags
		line.ActualLooseKg = dispatch.ActualLooseKg
		line.ActualTotalKg = actual
		line.PackedAt = &now
		if err := tx.MarkPickLinePacked(ctx, line); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("%w: %s", ErrAlreadyPacked, line.ID)
			}
			return fmt.Errorf("mark pick line packed: %w", err)
		}

		lines, err := tx.ListPickLines(ctx, repository.PickLineFilter{OrderID: order.ID})
		if err != nil {
			return fmt.Errorf("list pick lines: %w", err)
		}
		if allPacked(lines, line.ID) && order.Status != models.OrderPacked {
			if err := tx.UpdateSalesOrderStatus(ctx, order.ID, models.OrderPacked); err != nil {
				return fmt.Errorf("update order status: %w", err)
			}
			order.Status = models.OrderPacked
		}

		result = PackingResult{Line: line, Dispatch: dispatch, LotItem: item, Order: order}
		return nil
	})
	if err != nil {
		return PackingResult{}, err
	}

	s.logger.Info("pick line packed",
		zap.String("pick_line_id", result.Line.ID),
		zap.String("lot_item_id", result.LotItem.ID),
		zap.String("actual_kg", result.Line.ActualTotalKg.String()),
		zap.String("variance_kg", result.Line.VarianceKg().String()),
		zap.String("order_status", string(result.Order.Status)))
	s.metrics.StockMoved("dispatched", result.Line.ActualTotalKg)
	return result, nil
}

// allPacked treats justPacked as packed whether or not the listing already
// reflects it.
func allPacked(lines []models.PickLine, justPacked string) bool {
	for _, l := range lines {
		if l.ID != justPacked && !l.IsPacked() {
			return false
		}
	}
	return true
}
