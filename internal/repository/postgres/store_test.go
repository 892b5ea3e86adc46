package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/repository/repotest"
)

const truncateAll = `TRUNCATE reconciliation_snapshots, settings, sales_payments, purchase_payments,
dispatch_confirmations, pick_lines, sales_orders, lot_items, lots, warehouses, products, customers, farmers CASCADE`

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := Open(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.db.WithContext(ctx).Exec(truncateAll).Error)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func TestStoreContract(t *testing.T) {
	if os.Getenv("POSTGRES_TEST_DSN") == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	repotest.Run(t, func(t *testing.T) repository.Store {
		return openTestStore(t)
	})
}

func TestSnapshotArchive(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	older := models.ReconciliationSnapshot{ID: uuid.NewString(), TakenAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	newer := models.ReconciliationSnapshot{
		ID:      uuid.NewString(),
		TakenAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
		Dashboard: models.Dashboard{
			CurrentInventoryKg: decimal.NewFromInt(205),
			FarmerDues:         decimal.NewFromInt(7200),
		},
	}
	require.NoError(t, store.SaveSnapshot(ctx, older))
	require.NoError(t, store.SaveSnapshot(ctx, newer))

	got, err := store.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, got.ID)
	assert.True(t, decimal.NewFromInt(7200).Equal(got.Dashboard.FarmerDues))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		code string
		want repository.ErrorKind
	}{
		{"23505", repository.KindUniqueness},
		{"23503", repository.KindReferential},
		{"23514", repository.KindMalformed},
		{"22P02", repository.KindMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := classify("op", &pgconn.PgError{Code: tt.code})
			assert.True(t, repository.IsKind(err, tt.want), "got %v", err)
		})
	}

	err := classify("op", &pgconn.PgError{Code: "40001"})
	assert.False(t, repository.IsKind(err, repository.KindGeneric))
	assert.ErrorContains(t, err, "op")
	assert.NoError(t, classify("op", nil))
}
