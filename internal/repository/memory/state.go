package memory

import (
	"context"
	"fmt"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// state is one immutable-once-published snapshot of every table.
type state struct {
	farmers          table[models.Farmer]
	customers        table[models.Customer]
	products         table[models.Product]
	warehouses       table[models.Warehouse]
	lots             table[models.Lot]
	lotKeys          map[string]string
	lotItems         table[models.LotItem]
	orders           table[models.SalesOrder]
	pickLines        table[models.PickLine]
	dispatches       table[models.DispatchConfirmation]
	purchasePayments table[models.PurchasePayment]
	salesPayments    table[models.SalesPayment]
	settings         *models.Settings
	nextSeq          uint64
}

func newState() *state {
	return &state{
		farmers:          newTable[models.Farmer](),
		customers:        newTable[models.Customer](),
		products:         newTable[models.Product](),
		warehouses:       newTable[models.Warehouse](),
		lots:             newTable[models.Lot](),
		lotKeys:          make(map[string]string),
		lotItems:         newTable[models.LotItem](),
		orders:           newTable[models.SalesOrder](),
		pickLines:        newTable[models.PickLine](),
		dispatches:       newTable[models.DispatchConfirmation](),
		purchasePayments: newTable[models.PurchasePayment](),
		salesPayments:    newTable[models.SalesPayment](),
	}
}

func (s *state) clone() *state {
	cp := &state{
		farmers:          s.farmers.clone(),
		customers:        s.customers.clone(),
		products:         s.products.clone(),
		warehouses:       s.warehouses.clone(),
		lots:             s.lots.clone(),
		lotKeys:          make(map[string]string, len(s.lotKeys)),
		lotItems:         s.lotItems.clone(),
		orders:           s.orders.clone(),
		pickLines:        s.pickLines.clone(),
		dispatches:       s.dispatches.clone(),
		purchasePayments: s.purchasePayments.clone(),
		salesPayments:    s.salesPayments.clone(),
		nextSeq:          s.nextSeq,
	}
	for k, v := range s.lotKeys {
		cp.lotKeys[k] = v
	}
	if s.settings != nil {
		settings := *s.settings
		cp.settings = &settings
	}
	return cp
}

func (s *state) seq() uint64 {
	s.nextSeq++
	return s.nextSeq
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
}

func lookup[T any](t table[T], kind, id string) (T, error) {
	v, ok := t.get(id)
	if !ok {
		return v, notFound(kind, id)
	}
	return v, nil
}

func (s *state) GetFarmer(_ context.Context, id string) (models.Farmer, error) {
	return lookup(s.farmers, "farmer", id)
}

func (s *state) ListFarmers(context.Context) ([]models.Farmer, error) {
	return s.farmers.list(nil), nil
}

func (s *state) GetCustomer(_ context.Context, id string) (models.Customer, error) {
	return lookup(s.customers, "customer", id)
}

func (s *state) ListCustomers(context.Context) ([]models.Customer, error) {
	return s.customers.list(nil), nil
}

func (s *state) GetProduct(_ context.Context, id string) (models.Product, error) {
	return lookup(s.products, "product", id)
}

func (s *state) ListProducts(context.Context) ([]models.Product, error) {
	return s.products.list(nil), nil
}

func (s *state) GetWarehouse(_ context.Context, id string) (models.Warehouse, error) {
	return lookup(s.warehouses, "warehouse", id)
}

func (s *state) ListWarehouses(context.Context) ([]models.Warehouse, error) {
	return s.warehouses.list(nil), nil
}

func (s *state) GetLot(_ context.Context, id string) (models.Lot, error) {
	return lookup(s.lots, "lot", id)
}

func (s *state) ListLots(context.Context) ([]models.Lot, error) {
	return s.lots.list(nil), nil
}

func (s *state) FindLotsByNumber(_ context.Context, number string) ([]models.Lot, error) {
	key := models.NormalizeLotNumber(number)
	return s.lots.list(func(l models.Lot) bool {
		return models.NormalizeLotNumber(l.LotNumber) == key
	}), nil
}

func (s *state) GetLotItem(_ context.Context, id string) (models.LotItem, error) {
	return lookup(s.lotItems, "lot item", id)
}

func (s *state) ListLotItems(_ context.Context, filter repository.LotItemFilter) ([]models.LotItem, error) {
	return s.lotItems.list(func(li models.LotItem) bool {
		if filter.LotID != "" && li.LotID != filter.LotID {
			return false
		}
		if filter.ProductID != "" && li.ProductID != filter.ProductID {
			return false
		}
		if filter.InStockOnly && !li.CurrentTotalKg.IsPositive() {
			return false
		}
		return true
	}), nil
}

func (s *state) GetSalesOrder(_ context.Context, id string) (models.SalesOrder, error) {
	return lookup(s.orders, "sales order", id)
}

func (s *state) ListSalesOrders(context.Context) ([]models.SalesOrder, error) {
	return s.orders.list(nil), nil
}

func (s *state) GetPickLine(_ context.Context, id string) (models.PickLine, error) {
	return lookup(s.pickLines, "pick line", id)
}

func (s *state) ListPickLines(_ context.Context, filter repository.PickLineFilter) ([]models.PickLine, error) {
	return s.pickLines.list(func(p models.PickLine) bool {
		if filter.OrderID != "" && p.OrderID != filter.OrderID {
			return false
		}
		if filter.LotItemID != "" && p.LotItemID != filter.LotItemID {
			return false
		}
		if filter.Status != "" && p.Status != filter.Status {
			return false
		}
		return true
	}), nil
}

func (s *state) ListDispatches(_ context.Context, pickLineID string) ([]models.DispatchConfirmation, error) {
	return s.dispatches.list(func(d models.DispatchConfirmation) bool {
		return pickLineID == "" || d.PickLineID == pickLineID
	}), nil
}

func (s *state) ListPurchasePayments(_ context.Context, lotID string) ([]models.PurchasePayment, error) {
	return s.purchasePayments.list(func(p models.PurchasePayment) bool {
		return lotID == "" || p.LotID == lotID
	}), nil
}

func (s *state) ListSalesPayments(_ context.Context, orderID string) ([]models.SalesPayment, error) {
	return s.salesPayments.list(func(p models.SalesPayment) bool {
		return orderID == "" || p.OrderID == orderID
	}), nil
}

func (s *state) GetSettings(context.Context) (models.Settings, error) {
	if s.settings == nil {
		return models.Settings{}, notFound("settings", "default")
	}
	return *s.settings, nil
}
