package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

type reader struct {
	db *gorm.DB
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

func take[R any](ctx context.Context, db *gorm.DB, kind, id string) (R, error) {
	var row R
	err := db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return row, notFound(kind, id)
	}
	if err != nil {
		return row, fmt.Errorf("find %s %s: %w", kind, id, err)
	}
	return row, nil
}

func find[R any, M any](q *gorm.DB, kind string, model func(R) M) ([]M, error) {
	var rows []R
	if err := q.Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	out := make([]M, 0, len(rows))
	for _, r := range rows {
		out = append(out, model(r))
	}
	return out, nil
}

func (r reader) GetFarmer(ctx context.Context, id string) (models.Farmer, error) {
	row, err := take[farmerRow](ctx, r.db, "farmer", id)
	return row.model(), err
}

func (r reader) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	return find(r.db.WithContext(ctx), "farmers", farmerRow.model)
}

func (r reader) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	row, err := take[customerRow](ctx, r.db, "customer", id)
	return row.model(), err
}

func (r reader) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return find(r.db.WithContext(ctx), "customers", customerRow.model)
}

func (r reader) GetProduct(ctx context.Context, id string) (models.Product, error) {
	row, err := take[productRow](ctx, r.db, "product", id)
	return row.model(), err
}

func (r reader) ListProducts(ctx context.Context) ([]models.Product, error) {
	return find(r.db.WithContext(ctx), "products", productRow.model)
}

func (r reader) GetWarehouse(ctx context.Context, id string) (models.Warehouse, error) {
	row, err := take[warehouseRow](ctx, r.db, "warehouse", id)
	return row.model(), err
}

func (r reader) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return find(r.db.WithContext(ctx), "warehouses", warehouseRow.model)
}

func (r reader) GetLot(ctx context.Context, id string) (models.Lot, error) {
	row, err := take[lotRow](ctx, r.db, "lot", id)
	return row.model(), err
}

func (r reader) ListLots(ctx context.Context) ([]models.Lot, error) {
	return find(r.db.WithContext(ctx), "lots", lotRow.model)
}

func (r reader) FindLotsByNumber(ctx context.Context, number string) ([]models.Lot, error) {
	q := r.db.WithContext(ctx).Where("lot_number_key = ?", models.NormalizeLotNumber(number))
	return find(q, "lots", lotRow.model)
}

func (r reader) GetLotItem(ctx context.Context, id string) (models.LotItem, error) {
	row, err := take[lotItemRow](ctx, r.db, "lot item", id)
	return row.model(), err
}

func (r reader) ListLotItems(ctx context.Context, filter repository.LotItemFilter) ([]models.LotItem, error) {
	q := r.db.WithContext(ctx)
	if filter.LotID != "" {
		q = q.Where("lot_id = ?", filter.LotID)
	}
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.InStockOnly {
		q = q.Where("current_total_kg > 0")
	}
	return find(q, "lot items", lotItemRow.model)
}

func (r reader) GetSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	row, err := take[salesOrderRow](ctx, r.db, "sales order", id)
	return row.model(), err
}

func (r reader) ListSalesOrders(ctx context.Context) ([]models.SalesOrder, error) {
	return find(r.db.WithContext(ctx), "sales orders", salesOrderRow.model)
}

func (r reader) GetPickLine(ctx context.Context, id string) (models.PickLine, error) {
	row, err := take[pickLineRow](ctx, r.db, "pick line", id)
	return row.model(), err
}

func (r reader) ListPickLines(ctx context.Context, filter repository.PickLineFilter) ([]models.PickLine, error) {
	q := r.db.WithContext(ctx)
	if filter.OrderID != "" {
		q = q.Where("order_id = ?", filter.OrderID)
	}
	if filter.LotItemID != "" {
		q = q.Where("lot_item_id = ?", filter.LotItemID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	return find(q, "pick lines", pickLineRow.model)
}

func (r reader) ListDispatches(ctx context.Context, pickLineID string) ([]models.DispatchConfirmation, error) {
	q := r.db.WithContext(ctx)
	if pickLineID != "" {
		q = q.Where("pick_line_id = ?", pickLineID)
	}
	return find(q, "dispatches", dispatchRow.model)
}

func (r reader) ListPurchasePayments(ctx context.Context, lotID string) ([]models.PurchasePayment, error) {
	q := r.db.WithContext(ctx)
	if lotID != "" {
		q = q.Where("lot_id = ?", lotID)
	}
	return find(q, "purchase payments", purchasePaymentRow.model)
}

func (r reader) ListSalesPayments(ctx context.Context, orderID string) ([]models.SalesPayment, error) {
	q := r.db.WithContext(ctx)
	if orderID != "" {
		q = q.Where("order_id = ?", orderID)
	}
	return find(q, "sales payments", salesPaymentRow.model)
}

func (r reader) GetSettings(ctx context.Context) (models.Settings, error) {
	row, err := take[settingsRow](ctx, r.db, "settings", settingsID)
	if err != nil {
		return models.Settings{}, err
	}
	return models.Settings{DefaultBagWeightKg: row.DefaultBagWeightKg, UpdatedAt: row.UpdatedAt}, nil
}
