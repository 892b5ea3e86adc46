// Package mongodb implements repository.Store on MongoDB. Multi-document
// writes run inside session transactions, so the deployment must be a
// replica set or sharded cluster.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

const (
	collFarmers          = "farmers"
	collCustomers        = "customers"
	collProducts         = "products"
	collWarehouses       = "warehouses"
	collLots             = "lots"
	collLotItems         = "lot_items"
	collSalesOrders      = "sales_orders"
	collPickLines        = "pick_lines"
	collDispatches       = "dispatch_confirmations"
	collPurchasePayments = "purchase_payments"
	collSalesPayments    = "sales_payments"
	collSettings         = "settings"
	collSnapshots        = "reconciliation_snapshots"

	settingsID = "default"
)

// Store is a MongoDB-backed repository.Store.
type Store struct {
	reader
	client *mongo.Client
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri).SetRegistry(newRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{
		reader: reader{db: client.Database(dbName)},
		client: client,
		logger: logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongodb store ready", zap.String("database", dbName))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collLots: {
			{Keys: bson.D{{Key: "lot_number_key", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "farmer_id", Value: 1}}},
		},
		collLotItems: {
			{Keys: bson.D{{Key: "lot_id", Value: 1}}},
			{Keys: bson.D{{Key: "product_id", Value: 1}}},
			{Keys: bson.D{{Key: "warehouse_id", Value: 1}}},
		},
		collSalesOrders: {
			{Keys: bson.D{{Key: "customer_id", Value: 1}}},
		},
		collPickLines: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
			{Keys: bson.D{{Key: "lot_item_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		collDispatches: {
			{Keys: bson.D{{Key: "pick_line_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collPurchasePayments: {
			{Keys: bson.D{{Key: "lot_id", Value: 1}}},
		},
		collSalesPayments: {
			{Keys: bson.D{{Key: "order_id", Value: 1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// RunInTransaction runs fn in a session transaction. The driver retries fn
// on transient errors such as write conflicts on a locked lot item, so fn
// must not keep side effects outside tx between attempts.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongodb session: %w", err)
	}
	defer sess.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &tx{reader: s.reader})
	}, txnOpts)
	if err != nil {
		s.logger.Debug("transaction aborted", zap.Error(err))
		return err
	}
	return nil
}

// SaveSnapshot archives a reconciliation snapshot.
func (s *Store) SaveSnapshot(ctx context.Context, snap models.ReconciliationSnapshot) error {
	if _, err := s.db.Collection(collSnapshots).InsertOne(ctx, snap); err != nil {
		return fmt.Errorf("insert reconciliation snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent archived snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (models.ReconciliationSnapshot, error) {
	var snap models.ReconciliationSnapshot
	opts := options.FindOne().SetSort(bson.D{{Key: "taken_at", Value: -1}})
	err := s.db.Collection(collSnapshots).FindOne(ctx, bson.D{}, opts).Decode(&snap)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ReconciliationSnapshot{}, fmt.Errorf("reconciliation snapshot: %w", repository.ErrNotFound)
	}
	if err != nil {
		return models.ReconciliationSnapshot{}, fmt.Errorf("find latest snapshot: %w", err)
	}
	return snap, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
