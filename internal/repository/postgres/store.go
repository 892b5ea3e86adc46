// Package postgres implements repository.Store on PostgreSQL through gorm.
// Referential rules and the lot number uniqueness live in the schema, and
// constraint violations are classified from the pgconn error code.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

const settingsID = "default"

// Store is a PostgreSQL-backed repository.Store.
type Store struct {
	reader
	logger *zap.Logger
}

var _ repository.Store = (*Store)(nil)

// Open connects to PostgreSQL and migrates the schema.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	gormLogger := gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get postgres handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(allRows()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate postgres schema: %w", err)
	}

	logger.Info("postgres store ready")
	return &Store{reader: reader{db: db}, logger: logger}, nil
}

// RunInTransaction runs fn inside a database transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(ctx, &tx{reader: reader{db: gtx}})
	})
	if err != nil {
		s.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}
	return nil
}

// SaveSnapshot archives a reconciliation snapshot as a JSON document.
func (s *Store) SaveSnapshot(ctx context.Context, snap models.ReconciliationSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode reconciliation snapshot: %w", err)
	}
	row := snapshotRow{ID: snap.ID, TakenAt: snap.TakenAt, Payload: payload}
	return classify("save reconciliation snapshot", s.db.WithContext(ctx).Create(&row).Error)
}

// LatestSnapshot returns the most recent archived snapshot.
func (s *Store) LatestSnapshot(ctx context.Context) (models.ReconciliationSnapshot, error) {
	var row snapshotRow
	err := s.db.WithContext(ctx).Order("taken_at DESC").Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ReconciliationSnapshot{}, fmt.Errorf("reconciliation snapshot: %w", repository.ErrNotFound)
	}
	if err != nil {
		return models.ReconciliationSnapshot{}, fmt.Errorf("find latest snapshot: %w", err)
	}
	var snap models.ReconciliationSnapshot
	if err := json.Unmarshal(row.Payload, &snap); err != nil {
		return models.ReconciliationSnapshot{}, fmt.Errorf("decode reconciliation snapshot: %w", err)
	}
	return snap, nil
}

// Close closes the connection pool.
func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// classify maps PostgreSQL constraint violations onto persistence error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.NewPersistenceError(op, repository.KindUniqueness, err)
		case "23503":
			return repository.NewPersistenceError(op, repository.KindReferential, err)
		case "23514", "23502", "22P02", "22003":
			return repository.NewPersistenceError(op, repository.KindMalformed, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
