// Package reporting derives read-only reconciliation views from the ledger:
// dues per farmer and customer, stock per product, per-lot and per-order
// rollups and the dashboard totals.
package reporting

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

const dateLayout = "2006-01-02"

// DuesFilter narrows the dues reports. Zero values match everything.
type DuesFilter struct {
	FarmerID   string
	CustomerID string
	From       time.Time
	To         time.Time
	// Basis picks the order valuation for customer dues; blended by default.
	Basis models.ValueBasis
}

// inRange compares calendar days, so both bounds are inclusive whatever the
// time of day on either side.
func (f DuesFilter) inRange(t time.Time) bool {
	day := models.CalendarDay(t)
	if !f.From.IsZero() && day.Before(models.CalendarDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(models.CalendarDay(f.To)) {
		return false
	}
	return true
}

// Service computes reconciliation reports.
type Service struct {
	store  repository.Reader
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new reporting service instance.
func NewService(store repository.Reader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// FarmerDues groups lot balances by farmer, largest balance first.
func (s *Service) FarmerDues(ctx context.Context, filter DuesFilter) ([]models.FarmerDue, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return farmerDues(data, filter), nil
}

func farmerDues(data *dataset, filter DuesFilter) []models.FarmerDue {
	byFarmer := make(map[string]*models.FarmerDue)
	for _, lot := range data.lots {
		if filter.FarmerID != "" && lot.FarmerID != filter.FarmerID {
			continue
		}
		if !filter.inRange(lot.PurchaseDate) {
			continue
		}
		due, ok := byFarmer[lot.FarmerID]
		if !ok {
			due = &models.FarmerDue{
				FarmerID:           lot.FarmerID,
				FarmerName:         data.farmerName(lot.FarmerID),
				TotalPurchaseValue: decimal.Zero,
				TotalPaid:          decimal.Zero,
				BalanceDue:         decimal.Zero,
			}
			byFarmer[lot.FarmerID] = due
		}
		balance := data.lotBalance(lot)
		due.LotsCount++
		due.TotalPurchaseValue = due.TotalPurchaseValue.Add(balance.TotalPurchaseValue)
		due.TotalPaid = due.TotalPaid.Add(balance.TotalPaid)
		due.BalanceDue = due.BalanceDue.Add(balance.BalanceDue)
		due.Lots = append(due.Lots, balance)
	}

	out := make([]models.FarmerDue, 0, len(byFarmer))
	for _, due := range byFarmer {
		out = append(out, *due)
	}
	slices.SortFunc(out, func(a, b models.FarmerDue) int {
		if c := b.BalanceDue.Cmp(a.BalanceDue); c != 0 {
			return c
		}
		return cmp.Compare(a.FarmerName, b.FarmerName)
	})
	return out
}

// CustomerDues groups order balances by customer, largest balance first.
func (s *Service) CustomerDues(ctx context.Context, filter DuesFilter) ([]models.CustomerDue, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return customerDues(data, filter), nil
}

func customerDues(data *dataset, filter DuesFilter) []models.CustomerDue {
	basis := filter.Basis
	if basis == "" {
		basis = models.BasisBlended
	}

	byCustomer := make(map[string]*models.CustomerDue)
	for _, order := range data.orders {
		if filter.CustomerID != "" && order.CustomerID != filter.CustomerID {
			continue
		}
		if !filter.inRange(order.OrderDate) {
			continue
		}
		due, ok := byCustomer[order.CustomerID]
		if !ok {
			due = &models.CustomerDue{
				CustomerID:      order.CustomerID,
				CustomerName:    data.customerName(order.CustomerID),
				TotalOrderValue: decimal.Zero,
				TotalPaid:       decimal.Zero,
				BalanceDue:      decimal.Zero,
			}
			byCustomer[order.CustomerID] = due
		}
		balance, _ := data.orderBalance(order, basis)
		due.OrdersCount++
		due.TotalOrderValue = due.TotalOrderValue.Add(balance.OrderValue)
		due.TotalPaid = due.TotalPaid.Add(balance.TotalPaid)
		due.BalanceDue = due.BalanceDue.Add(balance.BalanceDue)
		due.Orders = append(due.Orders, balance)
	}

	out := make([]models.CustomerDue, 0, len(byCustomer))
	for _, due := range byCustomer {
		out = append(out, *due)
	}
	slices.SortFunc(out, func(a, b models.CustomerDue) int {
		if c := b.BalanceDue.Cmp(a.BalanceDue); c != 0 {
			return c
		}
		return cmp.Compare(a.CustomerName, b.CustomerName)
	})
	return out
}

// ProductStock summarises remaining stock per product. Products without
// stock are omitted.
func (s *Service) ProductStock(ctx context.Context) ([]models.ProductStock, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return productStock(data), nil
}

func productStock(data *dataset) []models.ProductStock {
	type acc struct {
		row  models.ProductStock
		lots map[string]struct{}
	}
	byProduct := make(map[string]*acc)
	for _, item := range data.items {
		if !item.CurrentTotalKg.IsPositive() {
			continue
		}
		a, ok := byProduct[item.ProductID]
		if !ok {
			a = &acc{
				row: models.ProductStock{
					ProductID:       item.ProductID,
					ProductName:     data.productName(item.ProductID),
					TotalStockKg:    decimal.Zero,
					TotalValue:      decimal.Zero,
					AvgPurchaseRate: decimal.Zero,
				},
				lots: make(map[string]struct{}),
			}
			byProduct[item.ProductID] = a
		}
		a.row.TotalStockKg = a.row.TotalStockKg.Add(item.CurrentTotalKg)
		a.row.TotalValue = a.row.TotalValue.Add(item.CurrentValue())
		a.lots[item.LotID] = struct{}{}
	}

	out := make([]models.ProductStock, 0, len(byProduct))
	for _, a := range byProduct {
		if a.row.TotalStockKg.IsPositive() {
			a.row.AvgPurchaseRate = a.row.TotalValue.DivRound(a.row.TotalStockKg, 2)
		}
		a.row.ActiveLots = len(a.lots)
		out = append(out, a.row)
	}
	slices.SortFunc(out, func(a, b models.ProductStock) int {
		return cmp.Compare(a.ProductName, b.ProductName)
	})
	return out
}

// LotInventory lists every lot item that still holds stock with display
// names resolved, newest purchase first.
func (s *Service) LotInventory(ctx context.Context) ([]models.LotInventoryRow, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}

	rows := make([]models.LotInventoryRow, 0, len(data.items))
	for _, item := range data.items {
		if !item.CurrentTotalKg.IsPositive() {
			continue
		}
		lot, ok := data.lotsByID[item.LotID]
		if !ok {
			s.logger.Warn("lot item without lot", zap.String("lot_item_id", item.ID), zap.String("lot_id", item.LotID))
			continue
		}
		rows = append(rows, models.LotInventoryRow{
			LotID:             lot.ID,
			LotNumber:         lot.LotNumber,
			LotItemID:         item.ID,
			FarmerName:        data.farmerName(lot.FarmerID),
			ProductName:       data.productName(item.ProductID),
			WarehouseName:     data.warehouseName(item.WarehouseID),
			BayNumber:         item.BayNumber,
			InitialStockKg:    item.InitialTotalKg,
			CurrentStockKg:    item.CurrentTotalKg,
			PurchaseRatePerKg: item.PurchaseRatePerKg,
			CurrentValue:      item.CurrentValue(),
			PurchaseDate:      lot.PurchaseDate,
		})
	}
	slices.SortStableFunc(rows, func(a, b models.LotInventoryRow) int {
		return b.PurchaseDate.Compare(a.PurchaseDate)
	})
	return rows, nil
}

// LotRollups reports stock movement and payment position per lot.
func (s *Service) LotRollups(ctx context.Context) ([]models.LotRollup, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}

	out := make([]models.LotRollup, 0, len(data.lots))
	for _, lot := range data.lots {
		items := data.itemsByLot[lot.ID]
		balance := data.lotBalance(lot)
		r := models.LotRollup{
			LotID:         lot.ID,
			LotNumber:     lot.LotNumber,
			FarmerID:      lot.FarmerID,
			PurchaseDate:  lot.PurchaseDate,
			Items:         len(items),
			InitialKg:     decimal.Zero,
			CurrentKg:     decimal.Zero,
			PurchaseValue: balance.TotalPurchaseValue,
			TotalPaid:     balance.TotalPaid,
			BalanceDue:    balance.BalanceDue,
		}
		for _, item := range items {
			r.InitialKg = r.InitialKg.Add(item.InitialTotalKg)
			r.CurrentKg = r.CurrentKg.Add(item.CurrentTotalKg)
		}
		r.DispatchedKg = r.InitialKg.Sub(r.CurrentKg)
		out = append(out, r)
	}
	return out, nil
}

// OrderRollups reports fulfilment and payment position per order. The
// balance is computed on basis, blended when empty.
func (s *Service) OrderRollups(ctx context.Context, basis models.ValueBasis) ([]models.OrderRollup, error) {
	if basis == "" {
		basis = models.BasisBlended
	}
	data, err := load(ctx, s.store)
	if err != nil {
		return nil, err
	}

	out := make([]models.OrderRollup, 0, len(data.orders))
	for _, order := range data.orders {
		balance, value := data.orderBalance(order, basis)
		r := models.OrderRollup{
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			OrderDate:  order.OrderDate,
			Status:     order.Status,
			PlannedKg:  decimal.Zero,
			PackedKg:   decimal.Zero,
			Value:      value,
			TotalPaid:  balance.TotalPaid,
			BalanceDue: balance.BalanceDue,
		}
		for _, line := range data.linesByOrder[order.ID] {
			r.PlannedKg = r.PlannedKg.Add(line.PlannedTotalKg)
			if line.IsPacked() {
				r.PackedKg = r.PackedKg.Add(line.ActualTotalKg)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// Dashboard returns the headline totals.
func (s *Service) Dashboard(ctx context.Context) (models.Dashboard, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return models.Dashboard{}, err
	}
	return dashboard(data), nil
}

func dashboard(data *dataset) models.Dashboard {
	d := models.Dashboard{
		CurrentInventoryKg: decimal.Zero,
		InventoryValue:     decimal.Zero,
		TotalLots:          len(data.lots),
		SalesOrders:        len(data.orders),
		FarmerDues:         decimal.Zero,
		CustomerDues:       decimal.Zero,
	}
	active := make(map[string]struct{})
	for _, item := range data.items {
		if !item.CurrentTotalKg.IsPositive() {
			continue
		}
		d.CurrentInventoryKg = d.CurrentInventoryKg.Add(item.CurrentTotalKg)
		d.InventoryValue = d.InventoryValue.Add(item.CurrentValue())
		active[item.LotID] = struct{}{}
	}
	d.ActiveLots = len(active)
	for _, lot := range data.lots {
		d.FarmerDues = d.FarmerDues.Add(data.lotBalance(lot).BalanceDue)
	}
	for _, order := range data.orders {
		balance, _ := data.orderBalance(order, models.BasisBlended)
		d.CustomerDues = d.CustomerDues.Add(balance.BalanceDue)
	}
	return d
}

// Snapshot captures the dashboard and both dues reports from a single load.
func (s *Service) Snapshot(ctx context.Context) (models.ReconciliationSnapshot, error) {
	data, err := load(ctx, s.store)
	if err != nil {
		return models.ReconciliationSnapshot{}, err
	}
	snap := models.ReconciliationSnapshot{
		ID:           uuid.NewString(),
		TakenAt:      s.now().UTC(),
		Dashboard:    dashboard(data),
		FarmerDues:   farmerDues(data, DuesFilter{}),
		CustomerDues: customerDues(data, DuesFilter{}),
	}
	s.logger.Info("reconciliation snapshot taken",
		zap.String("snapshot_id", snap.ID),
		zap.Int("farmers", len(snap.FarmerDues)),
		zap.Int("customers", len(snap.CustomerDues)))
	return snap, nil
}

// Summary renders a snapshot as a short plain-text message.
func Summary(snap models.ReconciliationSnapshot, top int) string {
	var b strings.Builder
	d := snap.Dashboard
	fmt.Fprintf(&b, "Reconciliation (%s)\n", snap.TakenAt.Format(dateLayout))
	fmt.Fprintf(&b, "Stock: %s kg in %d active lots, value %s\n",
		d.CurrentInventoryKg.StringFixed(2), d.ActiveLots, d.InventoryValue.StringFixed(2))
	fmt.Fprintf(&b, "Payable to farmers: %s\n", d.FarmerDues.StringFixed(2))
	fmt.Fprintf(&b, "Receivable from customers: %s", d.CustomerDues.StringFixed(2))

	var farmers, customers []string
	for _, due := range snap.FarmerDues {
		if len(farmers) == top || !due.BalanceDue.IsPositive() {
			break
		}
		farmers = append(farmers, fmt.Sprintf("- %s: %s", due.FarmerName, due.BalanceDue.StringFixed(2)))
	}
	for _, due := range snap.CustomerDues {
		if len(customers) == top || !due.BalanceDue.IsPositive() {
			break
		}
		customers = append(customers, fmt.Sprintf("- %s: %s", due.CustomerName, due.BalanceDue.StringFixed(2)))
	}
	if len(farmers) > 0 {
		b.WriteString("\nTop farmer dues:\n" + strings.Join(farmers, "\n"))
	}
	if len(customers) > 0 {
		b.WriteString("\nTop customer dues:\n" + strings.Join(customers, "\n"))
	}
	return b.String()
}
