package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/mamadbah2/jaggery/internal/config"
	"github.com/mamadbah2/jaggery/internal/domain/models"
)

type fakeRepo struct {
	rows     map[string][][]interface{}
	failOn   string
	appended []string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string][][]interface{})}
}

func (f *fakeRepo) AppendRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == f.failOn {
		return errors.New("quota exceeded")
	}
	f.appended = append(f.appended, sheetRange)
	f.rows[sheetRange] = append(f.rows[sheetRange], rows...)
	return nil
}

func (f *fakeRepo) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	return f.rows[sheetRange], nil
}

func snapshot() models.ReconciliationSnapshot {
	return models.ReconciliationSnapshot{
		ID:      "snap-1",
		TakenAt: time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC),
		Dashboard: models.Dashboard{
			CurrentInventoryKg: decimal.RequireFromString("380"),
			InventoryValue:     decimal.RequireFromString("15800"),
			TotalLots:          3,
			ActiveLots:         3,
			SalesOrders:        2,
			FarmerDues:         decimal.RequireFromString("14500"),
			CustomerDues:       decimal.RequireFromString("8100"),
		},
		FarmerDues: []models.FarmerDue{
			{FarmerID: "f1", FarmerName: "Kumar", LotsCount: 1, TotalPurchaseValue: decimal.NewFromInt(7500), TotalPaid: decimal.Zero, BalanceDue: decimal.NewFromInt(7500)},
			{FarmerID: "f2", FarmerName: "Raman", LotsCount: 2, TotalPurchaseValue: decimal.NewFromInt(12300), TotalPaid: decimal.NewFromInt(5300), BalanceDue: decimal.NewFromInt(7000)},
		},
		CustomerDues: []models.CustomerDue{
			{CustomerID: "c1", CustomerName: "Sri Traders", OrdersCount: 2, TotalOrderValue: decimal.NewFromInt(9100), TotalPaid: decimal.NewFromInt(1000), BalanceDue: decimal.NewFromInt(8100)},
		},
	}
}

func TestExportWritesRowsOncePerDay(t *testing.T) {
	repo := newFakeRepo()
	exp := NewSnapshotExporter(repo, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, exp.Export(ctx, snapshot()))
	assert.Equal(t, []string{farmerDuesRange, customerDuesRange, dashboardRange}, repo.appended)
	require.Len(t, repo.rows[farmerDuesRange], 2)
	assert.Equal(t, []interface{}{"2024-03-01", "f2", "Raman", 2, "12300.00", "5300.00", "7000.00"}, repo.rows[farmerDuesRange][1])
	assert.Equal(t, "14500.00", repo.rows[dashboardRange][0][7])

	require.NoError(t, exp.Export(ctx, snapshot()))
	assert.Len(t, repo.rows[dashboardRange], 1)
}

func TestExportLeavesDashboardForRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.failOn = customerDuesRange

	err := NewSnapshotExporter(repo, nil).Export(context.Background(), snapshot())
	require.Error(t, err)
	assert.Empty(t, repo.rows[dashboardRange])
}

func TestGoogleSheetRepositoryAgainstAPI(t *testing.T) {
	var (
		mu       sync.Mutex
		appended [][]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-1/values/"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodPost:
			var body struct {
				Values [][]interface{} `json:"values"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			appended = append(appended, body.Values...)
			mu.Unlock()
			_, _ = w.Write([]byte(`{}`))
		default:
			_, _ = w.Write([]byte(`{"range":"Dashboard!A1:I1","values":[["2024-02-29","snap-0"]]}`))
		}
	}))
	defer srv.Close()

	repo, err := NewGoogleSheetRepository(context.Background(),
		config.SheetsConfig{SpreadsheetID: "sheet-1"},
		zap.NewNop(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	rows, err := repo.ReadRange(context.Background(), dashboardRange)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "snap-0", rows[0][1])

	require.NoError(t, NewSnapshotExporter(repo, zap.NewNop()).Export(context.Background(), snapshot()))
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, appended, 4)
}
