package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// lotDoc stores a lot with the normalized number that carries the unique index.
type lotDoc struct {
	models.Lot `bson:",inline"`
	Key        string `bson:"lot_number_key"`
}

type settingsDoc struct {
	ID              string `bson:"_id"`
	models.Settings `bson:",inline"`
}

// reader serves every read. Inside a transaction the session travels in ctx.
type reader struct {
	db *mongo.Database
}

func (r reader) coll(name string) *mongo.Collection {
	return r.db.Collection(name)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

func findByID[T any](ctx context.Context, c *mongo.Collection, kind, id string) (T, error) {
	var out T
	err := c.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, notFound(kind, id)
	}
	if err != nil {
		return out, fmt.Errorf("find %s %s: %w", kind, id, err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.D) ([]T, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", c.Name(), err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.Name(), err)
	}
	return out, nil
}

func exists(ctx context.Context, c *mongo.Collection, filter bson.D) (bool, error) {
	n, err := c.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", c.Name(), err)
	}
	return n > 0, nil
}

func eq(field string, value interface{}) bson.D {
	return bson.D{{Key: field, Value: value}}
}

func (r reader) GetFarmer(ctx context.Context, id string) (models.Farmer, error) {
	return findByID[models.Farmer](ctx, r.coll(collFarmers), "farmer", id)
}

func (r reader) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	return findAll[models.Farmer](ctx, r.coll(collFarmers), bson.D{})
}

func (r reader) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	return findByID[models.Customer](ctx, r.coll(collCustomers), "customer", id)
}

func (r reader) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return findAll[models.Customer](ctx, r.coll(collCustomers), bson.D{})
}

func (r reader) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return findByID[models.Product](ctx, r.coll(collProducts), "product", id)
}

func (r reader) ListProducts(ctx context.Context) ([]models.Product, error) {
	return findAll[models.Product](ctx, r.coll(collProducts), bson.D{})
}

func (r reader) GetWarehouse(ctx context.Context, id string) (models.Warehouse, error) {
	return findByID[models.Warehouse](ctx, r.coll(collWarehouses), "warehouse", id)
}

func (r reader) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return findAll[models.Warehouse](ctx, r.coll(collWarehouses), bson.D{})
}

func (r reader) GetLot(ctx context.Context, id string) (models.Lot, error) {
	doc, err := findByID[lotDoc](ctx, r.coll(collLots), "lot", id)
	return doc.Lot, err
}

func lotsOf(docs []lotDoc) []models.Lot {
	out := make([]models.Lot, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Lot)
	}
	return out
}

func (r reader) ListLots(ctx context.Context) ([]models.Lot, error) {
	docs, err := findAll[lotDoc](ctx, r.coll(collLots), bson.D{})
	if err != nil {
		return nil, err
	}
	return lotsOf(docs), nil
}

func (r reader) FindLotsByNumber(ctx context.Context, number string) ([]models.Lot, error) {
	docs, err := findAll[lotDoc](ctx, r.coll(collLots), eq("lot_number_key", models.NormalizeLotNumber(number)))
	if err != nil {
		return nil, err
	}
	return lotsOf(docs), nil
}

func (r reader) GetLotItem(ctx context.Context, id string) (models.LotItem, error) {
	return findByID[models.LotItem](ctx, r.coll(collLotItems), "lot item", id)
}

func (r reader) ListLotItems(ctx context.Context, filter repository.LotItemFilter) ([]models.LotItem, error) {
	q := bson.D{}
	if filter.LotID != "" {
		q = append(q, bson.E{Key: "lot_id", Value: filter.LotID})
	}
	if filter.ProductID != "" {
		q = append(q, bson.E{Key: "product_id", Value: filter.ProductID})
	}
	if filter.InStockOnly {
		q = append(q, bson.E{Key: "current_total_kg", Value: bson.D{{Key: "$gt", Value: 0}}})
	}
	return findAll[models.LotItem](ctx, r.coll(collLotItems), q)
}

func (r reader) GetSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	return findByID[models.SalesOrder](ctx, r.coll(collSalesOrders), "sales order", id)
}

func (r reader) ListSalesOrders(ctx context.Context) ([]models.SalesOrder, error) {
	return findAll[models.SalesOrder](ctx, r.coll(collSalesOrders), bson.D{})
}

func (r reader) GetPickLine(ctx context.Context, id string) (models.PickLine, error) {
	return findByID[models.PickLine](ctx, r.coll(collPickLines), "pick line", id)
}

func (r reader) ListPickLines(ctx context.Context, filter repository.PickLineFilter) ([]models.PickLine, error) {
	q := bson.D{}
	if filter.OrderID != "" {
		q = append(q, bson.E{Key: "order_id", Value: filter.OrderID})
	}
	if filter.LotItemID != "" {
		q = append(q, bson.E{Key: "lot_item_id", Value: filter.LotItemID})
	}
	if filter.Status != "" {
		q = append(q, bson.E{Key: "status", Value: filter.Status})
	}
	return findAll[models.PickLine](ctx, r.coll(collPickLines), q)
}

func (r reader) ListDispatches(ctx context.Context, pickLineID string) ([]models.DispatchConfirmation, error) {
	q := bson.D{}
	if pickLineID != "" {
		q = eq("pick_line_id", pickLineID)
	}
	return findAll[models.DispatchConfirmation](ctx, r.coll(collDispatches), q)
}

func (r reader) ListPurchasePayments(ctx context.Context, lotID string) ([]models.PurchasePayment, error) {
	q := bson.D{}
	if lotID != "" {
		q = eq("lot_id", lotID)
	}
	return findAll[models.PurchasePayment](ctx, r.coll(collPurchasePayments), q)
}

func (r reader) ListSalesPayments(ctx context.Context, orderID string) ([]models.SalesPayment, error) {
	q := bson.D{}
	if orderID != "" {
		q = eq("order_id", orderID)
	}
	return findAll[models.SalesPayment](ctx, r.coll(collSalesPayments), q)
}

func (r reader) GetSettings(ctx context.Context) (models.Settings, error) {
	doc, err := findByID[settingsDoc](ctx, r.coll(collSettings), "settings", settingsID)
	return doc.Settings, err
}
