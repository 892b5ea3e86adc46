package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// tx writes through the session carried by ctx.
type tx struct {
	reader
}

var _ repository.Tx = (*tx)(nil)

func referenced(op, what string) error {
	return repository.NewPersistenceError(op, repository.KindReferential, fmt.Errorf("still referenced by %s", what))
}

func missingParent(op, kind, id string) error {
	return repository.NewPersistenceError(op, repository.KindReferential, fmt.Errorf("%s %s does not exist", kind, id))
}

// classify maps driver errors onto persistence error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.NewPersistenceError(op, repository.KindUniqueness, err)
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			// 121: document failed validation
			if e.Code == 121 {
				return repository.NewPersistenceError(op, repository.KindMalformed, err)
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (t *tx) requireExists(ctx context.Context, op, coll, kind, id string) error {
	ok, err := exists(ctx, t.coll(coll), eq("_id", id))
	if err != nil {
		return err
	}
	if !ok {
		return missingParent(op, kind, id)
	}
	return nil
}

func (t *tx) replace(ctx context.Context, op, coll, id string, doc interface{}) error {
	_, err := t.coll(coll).ReplaceOne(ctx, eq("_id", id), doc, options.Replace().SetUpsert(true))
	return classify(op, err)
}

// deleteUnreferenced removes id from coll unless any of refs still points at it.
func (t *tx) deleteUnreferenced(ctx context.Context, op, coll, kind, id string, refs ...ref) error {
	found, err := exists(ctx, t.coll(coll), eq("_id", id))
	if err != nil {
		return err
	}
	if !found {
		return notFound(kind, id)
	}
	for _, r := range refs {
		used, err := exists(ctx, t.coll(r.coll), eq(r.field, id))
		if err != nil {
			return err
		}
		if used {
			return referenced(op, r.coll)
		}
	}
	res, err := t.coll(coll).DeleteOne(ctx, eq("_id", id))
	if err != nil {
		return classify(op, err)
	}
	if res.DeletedCount == 0 {
		return notFound(kind, id)
	}
	return nil
}

type ref struct {
	coll  string
	field string
}

func (t *tx) SaveFarmer(ctx context.Context, farmer models.Farmer) error {
	return t.replace(ctx, "save farmer", collFarmers, farmer.ID, farmer)
}

func (t *tx) DeleteFarmer(ctx context.Context, id string) error {
	return t.deleteUnreferenced(ctx, "delete farmer", collFarmers, "farmer", id, ref{collLots, "farmer_id"})
}

func (t *tx) SaveCustomer(ctx context.Context, customer models.Customer) error {
	return t.replace(ctx, "save customer", collCustomers, customer.ID, customer)
}

func (t *tx) DeleteCustomer(ctx context.Context, id string) error {
	return t.deleteUnreferenced(ctx, "delete customer", collCustomers, "customer", id, ref{collSalesOrders, "customer_id"})
}

func (t *tx) SaveProduct(ctx context.Context, product models.Product) error {
	return t.replace(ctx, "save product", collProducts, product.ID, product)
}

func (t *tx) DeleteProduct(ctx context.Context, id string) error {
	return t.deleteUnreferenced(ctx, "delete product", collProducts, "product", id, ref{collLotItems, "product_id"})
}

func (t *tx) SaveWarehouse(ctx context.Context, warehouse models.Warehouse) error {
	return t.replace(ctx, "save warehouse", collWarehouses, warehouse.ID, warehouse)
}

func (t *tx) DeleteWarehouse(ctx context.Context, id string) error {
	return t.deleteUnreferenced(ctx, "delete warehouse", collWarehouses, "warehouse", id, ref{collLotItems, "warehouse_id"})
}

func (t *tx) CreateLot(ctx context.Context, lot models.Lot) error {
	const op = "create lot"
	if err := t.requireExists(ctx, op, collFarmers, "farmer", lot.FarmerID); err != nil {
		return err
	}
	doc := lotDoc{Lot: lot, Key: models.NormalizeLotNumber(lot.LotNumber)}
	_, err := t.coll(collLots).InsertOne(ctx, doc)
	return classify(op, err)
}

func (t *tx) CreateLotItems(ctx context.Context, items []models.LotItem) error {
	const op = "create lot items"
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for _, item := range items {
		if err := t.requireExists(ctx, op, collLots, "lot", item.LotID); err != nil {
			return err
		}
		if err := t.requireExists(ctx, op, collProducts, "product", item.ProductID); err != nil {
			return err
		}
		if item.WarehouseID != "" {
			if err := t.requireExists(ctx, op, collWarehouses, "warehouse", item.WarehouseID); err != nil {
				return err
			}
		}
		if item.CurrentTotalKg.IsNegative() {
			return repository.NewPersistenceError(op, repository.KindMalformed, errors.New("current_total_kg must not be negative"))
		}
		docs = append(docs, item)
	}
	_, err := t.coll(collLotItems).InsertMany(ctx, docs)
	return classify(op, err)
}

func (t *tx) DeleteLot(ctx context.Context, id string) error {
	const op = "delete lot"
	found, err := exists(ctx, t.coll(collLots), eq("_id", id))
	if err != nil {
		return err
	}
	if !found {
		return notFound("lot", id)
	}
	paid, err := exists(ctx, t.coll(collPurchasePayments), eq("lot_id", id))
	if err != nil {
		return err
	}
	if paid {
		return referenced(op, "purchase payments")
	}

	items, err := t.ListLotItems(ctx, repository.LotItemFilter{LotID: id})
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if len(ids) > 0 {
		picked, err := exists(ctx, t.coll(collPickLines), bson.D{{Key: "lot_item_id", Value: bson.D{{Key: "$in", Value: ids}}}})
		if err != nil {
			return err
		}
		if picked {
			return referenced(op, "pick lines")
		}
		if _, err := t.coll(collLotItems).DeleteMany(ctx, eq("lot_id", id)); err != nil {
			return classify(op, err)
		}
	}
	_, err = t.coll(collLots).DeleteOne(ctx, eq("_id", id))
	return classify(op, err)
}

// lock bumps a version counter so that any concurrent transaction touching
// the same document hits a write conflict and is retried.
func lock[T any](ctx context.Context, c *mongo.Collection, kind, id string) (T, error) {
	var out T
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "lock_version", Value: 1}}}}
	err := c.FindOneAndUpdate(ctx, eq("_id", id), update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, notFound(kind, id)
	}
	if err != nil {
		return out, fmt.Errorf("lock %s %s: %w", kind, id, err)
	}
	return out, nil
}

func (t *tx) LockLotItem(ctx context.Context, id string) (models.LotItem, error) {
	return lock[models.LotItem](ctx, t.coll(collLotItems), "lot item", id)
}

func (t *tx) DecrementLotItemStock(ctx context.Context, id string, kg decimal.Decimal) (models.LotItem, error) {
	filter := bson.D{
		{Key: "_id", Value: id},
		{Key: "current_total_kg", Value: bson.D{{Key: "$gte", Value: kg}}},
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "current_total_kg", Value: kg.Neg()}}}}
	res, err := t.coll(collLotItems).UpdateOne(ctx, filter, update)
	if err != nil {
		return models.LotItem{}, classify("decrement lot item stock", err)
	}
	if res.MatchedCount == 0 {
		if _, err := t.GetLotItem(ctx, id); err != nil {
			return models.LotItem{}, err
		}
		return models.LotItem{}, repository.ErrInsufficientStock
	}
	return t.GetLotItem(ctx, id)
}

func (t *tx) CreateSalesOrder(ctx context.Context, order models.SalesOrder) error {
	const op = "create sales order"
	if err := t.requireExists(ctx, op, collCustomers, "customer", order.CustomerID); err != nil {
		return err
	}
	_, err := t.coll(collSalesOrders).InsertOne(ctx, order)
	return classify(op, err)
}

func (t *tx) LockSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	return lock[models.SalesOrder](ctx, t.coll(collSalesOrders), "sales order", id)
}

func (t *tx) UpdateSalesOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: status}}}}
	res, err := t.coll(collSalesOrders).UpdateOne(ctx, eq("_id", id), update)
	if err != nil {
		return classify("update sales order status", err)
	}
	if res.MatchedCount == 0 {
		return notFound("sales order", id)
	}
	return nil
}

func (t *tx) CreatePickLine(ctx context.Context, line models.PickLine) error {
	const op = "create pick line"
	if err := t.requireExists(ctx, op, collSalesOrders, "sales order", line.OrderID); err != nil {
		return err
	}
	if err := t.requireExists(ctx, op, collLotItems, "lot item", line.LotItemID); err != nil {
		return err
	}
	_, err := t.coll(collPickLines).InsertOne(ctx, line)
	return classify(op, err)
}

func (t *tx) MarkPickLinePacked(ctx context.Context, line models.PickLine) error {
	filter := bson.D{
		{Key: "_id", Value: line.ID},
		{Key: "status", Value: models.PickToBePacked},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: models.PickPacked},
		{Key: "actual_bags", Value: line.ActualBags},
		{Key: "actual_loose_kg", Value: line.ActualLooseKg},
		{Key: "actual_total_kg", Value: line.ActualTotalKg},
		{Key: "packed_at", Value: line.PackedAt},
	}}}
	res, err := t.coll(collPickLines).UpdateOne(ctx, filter, update)
	if err != nil {
		return classify("mark pick line packed", err)
	}
	if res.MatchedCount == 0 {
		if _, err := t.GetPickLine(ctx, line.ID); err != nil {
			return err
		}
		return repository.ErrConflict
	}
	return nil
}

func (t *tx) CreateDispatch(ctx context.Context, dispatch models.DispatchConfirmation) error {
	const op = "create dispatch"
	if err := t.requireExists(ctx, op, collPickLines, "pick line", dispatch.PickLineID); err != nil {
		return err
	}
	_, err := t.coll(collDispatches).InsertOne(ctx, dispatch)
	return classify(op, err)
}

func (t *tx) CreatePurchasePayment(ctx context.Context, payment models.PurchasePayment) error {
	const op = "create purchase payment"
	if err := t.requireExists(ctx, op, collLots, "lot", payment.LotID); err != nil {
		return err
	}
	_, err := t.coll(collPurchasePayments).InsertOne(ctx, payment)
	return classify(op, err)
}

func (t *tx) CreateSalesPayment(ctx context.Context, payment models.SalesPayment) error {
	const op = "create sales payment"
	if err := t.requireExists(ctx, op, collSalesOrders, "sales order", payment.OrderID); err != nil {
		return err
	}
	_, err := t.coll(collSalesPayments).InsertOne(ctx, payment)
	return classify(op, err)
}

func (t *tx) SaveSettings(ctx context.Context, settings models.Settings) error {
	return t.replace(ctx, "save settings", collSettings, settingsID, settingsDoc{ID: settingsID, Settings: settings})
}
