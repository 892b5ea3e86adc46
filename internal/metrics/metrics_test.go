package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerCounters(t *testing.T) {
	m := NewLedger()

	m.Observe("create_lot", nil)
	m.Observe("create_lot", nil)
	m.Observe("create_lot", errors.New("duplicate"))
	m.StockMoved("dispatched", decimal.RequireFromString("12.5"))
	m.StockMoved("dispatched", decimal.Zero)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("create_lot", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("create_lot", "rejected")))
	assert.Equal(t, 12.5, testutil.ToFloat64(m.stockKg.WithLabelValues("dispatched")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "jaggery_ledger_operations_total")
}
