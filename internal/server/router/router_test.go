package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/metrics"
	"github.com/mamadbah2/jaggery/internal/repository/memory"
	"github.com/mamadbah2/jaggery/internal/scheduler"
	"github.com/mamadbah2/jaggery/internal/server/handlers"
	"github.com/mamadbah2/jaggery/internal/service/ledger"
	"github.com/mamadbah2/jaggery/internal/service/reporting"
)

type api struct {
	t      *testing.T
	engine http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New(logger)
	recorder := metrics.NewLedger()
	ledgerSvc := ledger.NewService(store, logger, ledger.WithMetrics(recorder))
	reportSvc := reporting.NewService(store, logger)
	runner := scheduler.NewScheduler("@daily", time.UTC, reportSvc, logger, scheduler.WithSaver(store))

	engine := New(Handlers{
		MasterData: handlers.NewMasterDataHandler(ledgerSvc, logger),
		Ledger:     handlers.NewLedgerHandler(ledgerSvc, logger),
		Reports:    handlers.NewReportHandler(reportSvc, runner, store, logger),
		Metrics:    recorder.Handler(),
	}, logger)
	return &api{t: t, engine: engine}
}

func (a *api) do(method, path, role string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(RoleHeader, role)
	}
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (a *api) create(path string, body interface{}) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, path, "admin", body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[struct {
		ID string `json:"id"`
	}](a.t, rec).ID
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRoleChecks(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/farmers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/farmers", "auditor", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/farmers", "Dispatch", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/reports/farmer-dues", "dispatch", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodDelete, "/api/v1/farmers/any", "manager", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/reports/farmer-dues", "manager", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPurchaseToPackingFlow(t *testing.T) {
	a := newAPI(t)

	farmerID := a.create("/api/v1/farmers", map[string]string{"auction_name": "Raman"})
	productID := a.create("/api/v1/products", map[string]string{"name": "Cube"})
	customerID := a.create("/api/v1/customers", map[string]string{"company_name": "Sri Traders"})

	lotBody := map[string]interface{}{
		"lot_number":    "L100",
		"farmer_id":     farmerID,
		"purchase_date": "2024-03-01",
		"items": []map[string]interface{}{
			{"product_id": productID, "bags": 10, "loose_kg": "5", "purchase_rate_per_kg": "40"},
		},
	}
	rec := a.do(http.MethodPost, "/api/v1/lots", "admin", lotBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	lot := decode[models.LotWithItems](t, rec)
	require.Len(t, lot.Items, 1)
	assert.True(t, decimal.NewFromInt(305).Equal(lot.Items[0].CurrentTotalKg))

	lotBody["lot_number"] = "l100"
	rec = a.do(http.MethodPost, "/api/v1/lots", "admin", lotBody)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/lots/"+lot.ID+"/payments", "dispatch",
		map[string]string{"amount": "5000", "method": "cash"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/lots/"+lot.ID+"/payments", "manager",
		map[string]string{"amount": "5000", "method": "cash", "payment_date": "2024-03-02"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/lots/"+lot.ID+"/balance", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	balance := decode[models.LotBalance](t, rec)
	assert.True(t, decimal.NewFromInt(12200).Equal(balance.TotalPurchaseValue))
	assert.True(t, decimal.NewFromInt(7200).Equal(balance.BalanceDue))

	orderID := a.create("/api/v1/orders", map[string]string{"customer_id": customerID, "order_date": "2024-03-03"})

	rec = a.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pick-lines", "dispatch", map[string]interface{}{
		"lot_item_id": lot.Items[0].ID, "planned_loose_kg": "400", "sale_rate_per_kg": "55",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/orders/"+orderID+"/pick-lines", "dispatch", map[string]interface{}{
		"lot_item_id": lot.Items[0].ID, "planned_bags": 3, "planned_loose_kg": "10", "sale_rate_per_kg": "55",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	line := decode[models.PickLine](t, rec)

	rec = a.do(http.MethodGet, "/api/v1/packing/queue", "dispatch", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.PickLine](t, rec), 1)

	rec = a.do(http.MethodPost, "/api/v1/pick-lines/"+line.ID+"/pack", "dispatch",
		map[string]interface{}{"actual_bags": 3, "actual_loose_kg": "10"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[ledger.PackingResult](t, rec)
	assert.True(t, decimal.NewFromInt(205).Equal(result.LotItem.CurrentTotalKg))
	assert.Equal(t, models.OrderPacked, result.Order.Status)

	rec = a.do(http.MethodPost, "/api/v1/pick-lines/"+line.ID+"/pack", "dispatch",
		map[string]interface{}{"actual_bags": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/pick-lines/missing/pack", "dispatch",
		map[string]interface{}{"actual_bags": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/orders/"+orderID+"/balance?basis=realized", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orderBalance := decode[models.OrderBalance](t, rec)
	assert.True(t, decimal.NewFromInt(5500).Equal(orderBalance.OrderValue))

	rec = a.do(http.MethodGet, "/api/v1/orders/"+orderID+"/balance?basis=guess", "admin", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodDelete, "/api/v1/farmers/"+farmerID, "admin", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "being used elsewhere")

	rec = a.do(http.MethodGet, "/api/v1/reports/farmer-dues", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dues := decode[[]models.FarmerDue](t, rec)
	require.Len(t, dues, 1)
	assert.True(t, decimal.NewFromInt(7200).Equal(dues[0].BalanceDue))
}

func TestSnapshotTriggerAndLatest(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/reports/snapshots/latest", "manager", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/admin/snapshots", "manager", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/admin/snapshots", "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	taken := decode[models.ReconciliationSnapshot](t, rec)
	require.NotEmpty(t, taken.ID)

	rec = a.do(http.MethodGet, "/api/v1/reports/snapshots/latest", "dispatch", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/reports/snapshots/latest", "manager", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, taken.ID, decode[models.ReconciliationSnapshot](t, rec).ID)
}

func TestValidationErrorsNameTheField(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/lots", "admin", map[string]interface{}{
		"lot_number": "L1", "farmer_id": "nobody", "purchase_date": "2024-03-01",
		"items": []map[string]interface{}{{"product_id": "p", "bags": 1}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "farmer_id", body["field"])

	rec = a.do(http.MethodPost, "/api/v1/lots", "admin", map[string]interface{}{
		"lot_number": "L1", "farmer_id": "f", "purchase_date": "03/01/2024",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/v1/settings", "admin", map[string]string{"default_bag_weight_kg": "0"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPatch, "/api/v1/settings", "admin", map[string]string{"default_bag_weight_kg": "32"})
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[models.Settings](t, rec)
	assert.True(t, decimal.NewFromInt(32).Equal(settings.DefaultBagWeightKg))
}
