package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

const (
	dateLayout        = "2006-01-02"
	dashboardRange    = "Dashboard!A:I"
	farmerDuesRange   = "FarmerDues!A:G"
	customerDuesRange = "CustomerDues!A:G"
)

// SnapshotExporter writes reconciliation snapshots as spreadsheet rows: one
// dashboard row per snapshot and one row per farmer and customer due.
type SnapshotExporter struct {
	repo   Repository
	logger *zap.Logger
}

// NewSnapshotExporter wires an exporter over repo.
func NewSnapshotExporter(repo Repository, logger *zap.Logger) *SnapshotExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotExporter{repo: repo, logger: logger}
}

// Export appends the snapshot. A snapshot whose day is already present on
// the dashboard sheet is skipped.
func (e *SnapshotExporter) Export(ctx context.Context, snap models.ReconciliationSnapshot) error {
	exported, err := e.exportedOn(ctx, snap.TakenAt)
	if err != nil {
		return err
	}
	if exported {
		e.logger.Info("snapshot already exported for day", zap.String("day", snap.TakenAt.Format(dateLayout)))
		return nil
	}

	if err := e.repo.AppendRows(ctx, farmerDuesRange, farmerRows(snap)); err != nil {
		return fmt.Errorf("export farmer dues: %w", err)
	}
	if err := e.repo.AppendRows(ctx, customerDuesRange, customerRows(snap)); err != nil {
		return fmt.Errorf("export customer dues: %w", err)
	}
	// The dashboard row goes last so a partial export is retried.
	if err := e.repo.AppendRows(ctx, dashboardRange, [][]interface{}{dashboardRow(snap)}); err != nil {
		return fmt.Errorf("export dashboard: %w", err)
	}

	e.logger.Info("snapshot exported to sheets",
		zap.String("snapshot_id", snap.ID),
		zap.Int("farmer_rows", len(snap.FarmerDues)),
		zap.Int("customer_rows", len(snap.CustomerDues)))
	return nil
}

func (e *SnapshotExporter) exportedOn(ctx context.Context, day time.Time) (bool, error) {
	rows, err := e.repo.ReadRange(ctx, dashboardRange)
	if err != nil {
		return false, fmt.Errorf("load dashboard range: %w", err)
	}
	want := day.Format(dateLayout)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if fmt.Sprint(row[0]) == want {
			return true, nil
		}
	}
	return false, nil
}

func dashboardRow(snap models.ReconciliationSnapshot) []interface{} {
	d := snap.Dashboard
	return []interface{}{
		snap.TakenAt.Format(dateLayout),
		snap.ID,
		d.CurrentInventoryKg.String(),
		d.InventoryValue.StringFixed(2),
		d.TotalLots,
		d.ActiveLots,
		d.SalesOrders,
		d.FarmerDues.StringFixed(2),
		d.CustomerDues.StringFixed(2),
	}
}

func farmerRows(snap models.ReconciliationSnapshot) [][]interface{} {
	day := snap.TakenAt.Format(dateLayout)
	rows := make([][]interface{}, 0, len(snap.FarmerDues))
	for _, due := range snap.FarmerDues {
		rows = append(rows, []interface{}{
			day,
			due.FarmerID,
			due.FarmerName,
			due.LotsCount,
			due.TotalPurchaseValue.StringFixed(2),
			due.TotalPaid.StringFixed(2),
			due.BalanceDue.StringFixed(2),
		})
	}
	return rows
}

func customerRows(snap models.ReconciliationSnapshot) [][]interface{} {
	day := snap.TakenAt.Format(dateLayout)
	rows := make([][]interface{}, 0, len(snap.CustomerDues))
	for _, due := range snap.CustomerDues {
		rows = append(rows, []interface{}{
			day,
			due.CustomerID,
			due.CustomerName,
			due.OrdersCount,
			due.TotalOrderValue.StringFixed(2),
			due.TotalPaid.StringFixed(2),
			due.BalanceDue.StringFixed(2),
		})
	}
	return rows
}
