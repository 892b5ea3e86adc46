// Package memory implements repository.Store in process memory. Writers are
// serialized and work on a private copy that is published on commit, so
// readers always see a committed snapshot.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// Store is an in-memory repository.Store.
type Store struct {
	writeMu sync.Mutex
	current atomic.Pointer[state]
	logger  *zap.Logger

	snapMu    sync.RWMutex
	snapshots []models.ReconciliationSnapshot
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	s.current.Store(newState())
	return s
}

// RunInTransaction runs fn against a private copy of the data and publishes
// the copy only when fn succeeds.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.current.Load().clone()
	if err := fn(ctx, &tx{state: next}); err != nil {
		s.logger.Debug("transaction rolled back", zap.Error(err))
		return err
	}

	s.current.Store(next)
	return nil
}

// SaveSnapshot archives a reconciliation snapshot.
func (s *Store) SaveSnapshot(_ context.Context, snap models.ReconciliationSnapshot) error {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snapshots = append(s.snapshots, snap)
	return nil
}

// LatestSnapshot returns the archived snapshot with the newest TakenAt.
func (s *Store) LatestSnapshot(context.Context) (models.ReconciliationSnapshot, error) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	if len(s.snapshots) == 0 {
		return models.ReconciliationSnapshot{}, notFound("reconciliation snapshot", "latest")
	}
	latest := s.snapshots[0]
	for _, snap := range s.snapshots[1:] {
		if !snap.TakenAt.Before(latest.TakenAt) {
			latest = snap
		}
	}
	return latest, nil
}

// Close is a no-op.
func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) view() *state {
	return s.current.Load()
}

func (s *Store) GetFarmer(ctx context.Context, id string) (models.Farmer, error) {
	return s.view().GetFarmer(ctx, id)
}

func (s *Store) ListFarmers(ctx context.Context) ([]models.Farmer, error) {
	return s.view().ListFarmers(ctx)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (models.Customer, error) {
	return s.view().GetCustomer(ctx, id)
}

func (s *Store) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.view().ListCustomers(ctx)
}

func (s *Store) GetProduct(ctx context.Context, id string) (models.Product, error) {
	return s.view().GetProduct(ctx, id)
}

func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.view().ListProducts(ctx)
}

func (s *Store) GetWarehouse(ctx context.Context, id string) (models.Warehouse, error) {
	return s.view().GetWarehouse(ctx, id)
}

func (s *Store) ListWarehouses(ctx context.Context) ([]models.Warehouse, error) {
	return s.view().ListWarehouses(ctx)
}

func (s *Store) GetLot(ctx context.Context, id string) (models.Lot, error) {
	return s.view().GetLot(ctx, id)
}

func (s *Store) ListLots(ctx context.Context) ([]models.Lot, error) {
	return s.view().ListLots(ctx)
}

func (s *Store) FindLotsByNumber(ctx context.Context, number string) ([]models.Lot, error) {
	return s.view().FindLotsByNumber(ctx, number)
}

func (s *Store) GetLotItem(ctx context.Context, id string) (models.LotItem, error) {
	return s.view().GetLotItem(ctx, id)
}

func (s *Store) ListLotItems(ctx context.Context, filter repository.LotItemFilter) ([]models.LotItem, error) {
	return s.view().ListLotItems(ctx, filter)
}

func (s *Store) GetSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	return s.view().GetSalesOrder(ctx, id)
}

func (s *Store) ListSalesOrders(ctx context.Context) ([]models.SalesOrder, error) {
	return s.view().ListSalesOrders(ctx)
}

func (s *Store) GetPickLine(ctx context.Context, id string) (models.PickLine, error) {
	return s.view().GetPickLine(ctx, id)
}

func (s *Store) ListPickLines(ctx context.Context, filter repository.PickLineFilter) ([]models.PickLine, error) {
	return s.view().ListPickLines(ctx, filter)
}

func (s *Store) ListDispatches(ctx context.Context, pickLineID string) ([]models.DispatchConfirmation, error) {
	return s.view().ListDispatches(ctx, pickLineID)
}

func (s *Store) ListPurchasePayments(ctx context.Context, lotID string) ([]models.PurchasePayment, error) {
	return s.view().ListPurchasePayments(ctx, lotID)
}

func (s *Store) ListSalesPayments(ctx context.Context, orderID string) ([]models.SalesPayment, error) {
	return s.view().ListSalesPayments(ctx, orderID)
}

func (s *Store) GetSettings(ctx context.Context) (models.Settings, error) {
	return s.view().GetSettings(ctx)
}

// tx mutates a private state copy.
type tx struct {
	*state
}

func referenced(op, what string) error {
	return repository.NewPersistenceError(op, repository.KindReferential, fmt.Errorf("still referenced by %s", what))
}

func missingParent(op, kind, id string) error {
	return repository.NewPersistenceError(op, repository.KindReferential, fmt.Errorf("%s %s does not exist", kind, id))
}

func (t *tx) SaveFarmer(_ context.Context, farmer models.Farmer) error {
	t.farmers.put(farmer.ID, farmer, t.seq())
	return nil
}

func (t *tx) DeleteFarmer(_ context.Context, id string) error {
	if !t.farmers.has(id) {
		return notFound("farmer", id)
	}
	if t.lots.any(func(l models.Lot) bool { return l.FarmerID == id }) {
		return referenced("delete farmer", "lots")
	}
	t.farmers.remove(id)
	return nil
}

func (t *tx) SaveCustomer(_ context.Context, customer models.Customer) error {
	t.customers.put(customer.ID, customer, t.seq())
	return nil
}

func (t *tx) DeleteCustomer(_ context.Context, id string) error {
	if !t.customers.has(id) {
		return notFound("customer", id)
	}
	if t.orders.any(func(o models.SalesOrder) bool { return o.CustomerID == id }) {
		return referenced("delete customer", "sales orders")
	}
	t.customers.remove(id)
	return nil
}

func (t *tx) SaveProduct(_ context.Context, product models.Product) error {
	t.products.put(product.ID, product, t.seq())
	return nil
}

func (t *tx) DeleteProduct(_ context.Context, id string) error {
	if !t.products.has(id) {
		return notFound("product", id)
	}
	if t.lotItems.any(func(li models.LotItem) bool { return li.ProductID == id }) {
		return referenced("delete product", "lot items")
	}
	t.products.remove(id)
	return nil
}

func (t *tx) SaveWarehouse(_ context.Context, warehouse models.Warehouse) error {
	t.warehouses.put(warehouse.ID, warehouse, t.seq())
	return nil
}

func (t *tx) DeleteWarehouse(_ context.Context, id string) error {
	if !t.warehouses.has(id) {
		return notFound("warehouse", id)
	}
	if t.lotItems.any(func(li models.LotItem) bool { return li.WarehouseID == id }) {
		return referenced("delete warehouse", "lot items")
	}
	t.warehouses.remove(id)
	return nil
}

func (t *tx) CreateLot(_ context.Context, lot models.Lot) error {
	key := models.NormalizeLotNumber(lot.LotNumber)
	if _, exists := t.lotKeys[key]; exists || t.lots.has(lot.ID) {
		return repository.NewPersistenceError("create lot", repository.KindUniqueness, fmt.Errorf("lot number %q already exists", lot.LotNumber))
	}
	if !t.farmers.has(lot.FarmerID) {
		return missingParent("create lot", "farmer", lot.FarmerID)
	}
	t.lots.put(lot.ID, lot, t.seq())
	t.lotKeys[key] = lot.ID
	return nil
}

func (t *tx) CreateLotItems(_ context.Context, items []models.LotItem) error {
	for _, item := range items {
		if t.lotItems.has(item.ID) {
			return repository.NewPersistenceError("create lot items", repository.KindUniqueness, fmt.Errorf("lot item %s already exists", item.ID))
		}
		if !t.lots.has(item.LotID) {
			return missingParent("create lot items", "lot", item.LotID)
		}
		if !t.products.has(item.ProductID) {
			return missingParent("create lot items", "product", item.ProductID)
		}
		if item.WarehouseID != "" && !t.warehouses.has(item.WarehouseID) {
			return missingParent("create lot items", "warehouse", item.WarehouseID)
		}
		if item.CurrentTotalKg.IsNegative() {
			return repository.NewPersistenceError("create lot items", repository.KindMalformed, errors.New("current_total_kg must not be negative"))
		}
		t.lotItems.put(item.ID, item, t.seq())
	}
	return nil
}

func (t *tx) DeleteLot(_ context.Context, id string) error {
	lot, ok := t.lots.get(id)
	if !ok {
		return notFound("lot", id)
	}
	if t.purchasePayments.any(func(p models.PurchasePayment) bool { return p.LotID == id }) {
		return referenced("delete lot", "purchase payments")
	}
	items := t.lotItems.list(func(li models.LotItem) bool { return li.LotID == id })
	for _, item := range items {
		itemID := item.ID
		if t.pickLines.any(func(p models.PickLine) bool { return p.LotItemID == itemID }) {
			return referenced("delete lot", "pick lines")
		}
	}
	for _, item := range items {
		t.lotItems.remove(item.ID)
	}
	t.lots.remove(id)
	delete(t.lotKeys, models.NormalizeLotNumber(lot.LotNumber))
	return nil
}

func (t *tx) LockLotItem(ctx context.Context, id string) (models.LotItem, error) {
	return t.GetLotItem(ctx, id)
}

func (t *tx) DecrementLotItemStock(_ context.Context, id string, kg decimal.Decimal) (models.LotItem, error) {
	item, err := lookup(t.lotItems, "lot item", id)
	if err != nil {
		return models.LotItem{}, err
	}
	if item.CurrentTotalKg.LessThan(kg) {
		return models.LotItem{}, repository.ErrInsufficientStock
	}
	item.CurrentTotalKg = item.CurrentTotalKg.Sub(kg)
	t.lotItems.put(item.ID, item, 0)
	return item, nil
}

func (t *tx) CreateSalesOrder(_ context.Context, order models.SalesOrder) error {
	if t.orders.has(order.ID) {
		return repository.NewPersistenceError("create sales order", repository.KindUniqueness, fmt.Errorf("order %s already exists", order.ID))
	}
	if !t.customers.has(order.CustomerID) {
		return missingParent("create sales order", "customer", order.CustomerID)
	}
	t.orders.put(order.ID, order, t.seq())
	return nil
}

func (t *tx) LockSalesOrder(ctx context.Context, id string) (models.SalesOrder, error) {
	return t.GetSalesOrder(ctx, id)
}

func (t *tx) UpdateSalesOrderStatus(_ context.Context, id string, status models.OrderStatus) error {
	order, err := lookup(t.orders, "sales order", id)
	if err != nil {
		return err
	}
	order.Status = status
	t.orders.put(id, order, 0)
	return nil
}

func (t *tx) CreatePickLine(_ context.Context, line models.PickLine) error {
	if t.pickLines.has(line.ID) {
		return repository.NewPersistenceError("create pick line", repository.KindUniqueness, fmt.Errorf("pick line %s already exists", line.ID))
	}
	if !t.orders.has(line.OrderID) {
		return missingParent("create pick line", "sales order", line.OrderID)
	}
	if !t.lotItems.has(line.LotItemID) {
		return missingParent("create pick line", "lot item", line.LotItemID)
	}
	t.pickLines.put(line.ID, line, t.seq())
	return nil
}

func (t *tx) MarkPickLinePacked(_ context.Context, line models.PickLine) error {
	existing, err := lookup(t.pickLines, "pick line", line.ID)
	if err != nil {
		return err
	}
	if existing.Status != models.PickToBePacked {
		return repository.ErrConflict
	}
	existing.Status = models.PickPacked
	existing.ActualBags = line.ActualBags
	existing.ActualLooseKg = line.ActualLooseKg
	existing.ActualTotalKg = line.ActualTotalKg
	existing.PackedAt = line.PackedAt
	t.pickLines.put(line.ID, existing, 0)
	return nil
}

func (t *tx) CreateDispatch(_ context.Context, dispatch models.DispatchConfirmation) error {
	if !t.pickLines.has(dispatch.PickLineID) {
		return missingParent("create dispatch", "pick line", dispatch.PickLineID)
	}
	if t.dispatches.any(func(d models.DispatchConfirmation) bool { return d.PickLineID == dispatch.PickLineID }) {
		return repository.NewPersistenceError("create dispatch", repository.KindUniqueness, fmt.Errorf("pick line %s already dispatched", dispatch.PickLineID))
	}
	t.dispatches.put(dispatch.ID, dispatch, t.seq())
	return nil
}

func (t *tx) CreatePurchasePayment(_ context.Context, payment models.PurchasePayment) error {
	if !t.lots.has(payment.LotID) {
		return missingParent("create purchase payment", "lot", payment.LotID)
	}
	t.purchasePayments.put(payment.ID, payment, t.seq())
	return nil
}

func (t *tx) CreateSalesPayment(_ context.Context, payment models.SalesPayment) error {
	if !t.orders.has(payment.OrderID) {
		return missingParent("create sales payment", "sales order", payment.OrderID)
	}
	t.salesPayments.put(payment.ID, payment, t.seq())
	return nil
}

func (t *tx) SaveSettings(_ context.Context, settings models.Settings) error {
	t.settings = &settings
	return nil
}
