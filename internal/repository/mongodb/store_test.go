package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/repository/repotest"
)

// TestStoreContract needs a replica set, e.g.
// MONGODB_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestStoreContract(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	repotest.Run(t, func(t *testing.T) repository.Store {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		dbName := "jaggery_test_" + uuid.NewString()[:8]
		store, err := Connect(ctx, uri, dbName, zap.NewNop())
		require.NoError(t, err)

		t.Cleanup(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = store.db.Drop(ctx)
			_ = store.Close(ctx)
		})
		return store
	})
}
