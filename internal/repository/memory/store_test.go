package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/repository/repotest"
)

func TestStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return New(zap.NewNop())
	})
}

func TestRunInTransactionHonoursCancelledContext(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.RunInTransaction(ctx, func(context.Context, repository.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSnapshotArchive(t *testing.T) {
	s := New(nil)
	ctx := context.Background()

	_, err := s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	newer := models.ReconciliationSnapshot{ID: "s2", TakenAt: time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)}
	older := models.ReconciliationSnapshot{ID: "s1", TakenAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveSnapshot(ctx, newer))
	require.NoError(t, s.SaveSnapshot(ctx, older))

	got, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s2", got.ID)
}
