package postgres

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// tx runs every statement on the transaction handle.
type tx struct {
	reader
}

var _ repository.Tx = (*tx)(nil)

func (t *tx) create(ctx context.Context, op string, value interface{}) error {
	return classify(op, t.db.WithContext(ctx).Omit(clause.Associations).Create(value).Error)
}

func (t *tx) save(ctx context.Context, op string, value interface{}) error {
	return classify(op, t.db.WithContext(ctx).Omit(clause.Associations).Save(value).Error)
}

func (t *tx) remove(ctx context.Context, op, kind, id string, row interface{}) error {
	res := t.db.WithContext(ctx).Where("id = ?", id).Delete(row)
	if res.Error != nil {
		return classify(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(kind, id)
	}
	return nil
}

func (t *tx) SaveFarmer(ctx context.Context, farmer models.Farmer) error {
	row := farmerFrom(farmer)
	return t.save(ctx, "save farmer", &row)
}

func (t *tx) DeleteFarmer(ctx context.Context, id string) error {
	return t.remove(ctx, "delete farmer", "farmer", id, &farmerRow{})
}

func (t *tx) SaveCustomer(ctx context.Context, customer models.Customer) error {
	row := customerFrom(customer)
	return t.save(ctx, "save customer", &row)
}

func (t *tx) DeleteCustomer(ctx context.Context, id string) error {
	return t.remove(ctx, "delete customer", "customer", id, &customerRow{})
}

func (t *tx) SaveProduct(ctx context.Context, product models.Product) error {
	row := productFrom(product)
	return t.save(ctx, "save product", &row)
}

func (t *tx) DeleteProduct(ctx context.Context, id string) error {
	return t.remove(ctx, "delete product", "product", id, &productRow{})
}

func (t *tx) SaveWarehouse(ctx context.Context, warehouse models.Warehouse) error {
	row := warehouseFrom(warehouse)
	return t.save(ctx, "save warehouse", &row)
}

func (t *tx) DeleteWarehouse(ctx context.Context, id string) error {
	return t.remove(ctx, "delete warehouse", "warehouse", id, &warehouseRow{})
}

func (t *tx) CreateLot(ctx context.Context, lot models.Lot) error {
	row := lotFrom(lot)
	return t.create(ctx, "create lot", &row)
}

func (t *tx) CreateLotItems(ctx context.Context, items []models.LotItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]lotItemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, lotItemFrom(item))
	}
	return t.create(ctx, "create lot items", &rows)
}

// DeleteLot removes the lot with its items. Pick lines on the items and
// payments on the lot block the delete through their foreign keys.
func (t *tx) DeleteLot(ctx context.Context, id string) error {
	const op = "delete lot"
	if _, err := take[lotRow](ctx, t.db, "lot", id); err != nil {
		return err
	}
	if err := t.db.WithContext(ctx).Where("lot_id = ?", id).Delete(&lotItemRow{}).Error; err != nil {
		return classify(op, err)
	}
	return t.remove(ctx, op, "lot", id, &lotRow{})
}

func (t *tx) LockLotItem(ctx context.Context, id string) (models.LotItem, error) {
	row, err := take[lotItemRow](ctx, t.db.Clauses(clause.Locking{Strength: "UPDATE"}), "lot item", id)
	return row.model(), err
}

func (t *tx) DecrementLotItemStock(ctx context.Context, id string, kg decimal.Decimal) (models.LotItem, error) {
	res := t.db.WithContext(ctx).Model(&lotItemRow{}).
		Where("id = ? AND current_total_kg >= ?", id, kg).
		UpdateColumn("current_total_kg", gorm.Expr("current_total_kg - ?", kg))
	if res.Error != nil {
		return models.LotItem{}, classify("decrement lot item stock", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.GetLotItem(ctx, id); err != nil {
			return models.LotItem{}, err
		}
		return models.LotItem{}, repository.ErrInsufficientStock
	}
	return t.GetLotItem(ctx, id)
}

func (t *tx) CreateSalesOrder(ctx context.Context, order models.SalesOrder) error {
	row := salesOrderFrom(order)
	return t.create(ctx, "create sales order", &row)
}

func (t *tx) LockSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	row, err := take[salesOrderRow](ctx, t.db.Clauses(clause.Locking{Strength: "UPDATE"}), "sales order", id)
	return row.model(), err
}

func (t *tx) UpdateSalesOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res := t.db.WithContext(ctx).Model(&salesOrderRow{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return classify("update sales order status", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("sales order", id)
	}
	return nil
}

func (t *tx) CreatePickLine(ctx context.Context, line models.PickLine) error {
	row := pickLineFrom(line)
	return t.create(ctx, "create pick line", &row)
}

func (t *tx) MarkPickLinePacked(ctx context.Context, line models.PickLine) error {
	res := t.db.WithContext(ctx).Model(&pickLineRow{}).
		Where("id = ? AND status = ?", line.ID, string(models.PickToBePacked)).
		Updates(map[string]interface{}{
			"status":          string(models.PickPacked),
			"actual_bags":     line.ActualBags,
			"actual_loose_kg": line.ActualLooseKg,
			"actual_total_kg": line.ActualTotalKg,
			"packed_at":       line.PackedAt,
		})
	if res.Error != nil {
		return classify("mark pick line packed", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := t.GetPickLine(ctx, line.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

func (t *tx) CreateDispatch(ctx context.Context, dispatch models.DispatchConfirmation) error {
	row := dispatchFrom(dispatch)
	return t.create(ctx, "create dispatch", &row)
}

func (t *tx) CreatePurchasePayment(ctx context.Context, payment models.PurchasePayment) error {
	row := purchasePaymentFrom(payment)
	return t.create(ctx, "create purchase payment", &row)
}

func (t *tx) CreateSalesPayment(ctx context.Context, payment models.SalesPayment) error {
	row := salesPaymentFrom(payment)
	return t.create(ctx, "create sales payment", &row)
}

func (t *tx) SaveSettings(ctx context.Context, settings models.Settings) error {
	row := settingsRow{ID: settingsID, DefaultBagWeightKg: settings.DefaultBagWeightKg, UpdatedAt: settings.UpdatedAt}
	return t.save(ctx, "save settings", &row)
}
