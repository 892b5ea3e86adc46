package reporting

import (
	"context"
	"fmt"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// dataset is everything a report needs, loaded once and indexed.
type dataset struct {
	farmers    map[string]models.Farmer
	customers  map[string]models.Customer
	products   map[string]models.Product
	warehouses map[string]models.Warehouse

	lots          []models.Lot
	lotsByID      map[string]models.Lot
	itemsByLot    map[string][]models.LotItem
	items         []models.LotItem
	orders        []models.SalesOrder
	linesByOrder  map[string][]models.PickLine
	purchaseByLot map[string][]models.PurchasePayment
	salesByOrder  map[string][]models.SalesPayment
}

func index[T any](rows []T, key func(T) string) map[string]T {
	out := make(map[string]T, len(rows))
	for _, r := range rows {
		out[key(r)] = r
	}
	return out
}

func group[T any](rows []T, key func(T) string) map[string][]T {
	out := make(map[string][]T)
	for _, r := range rows {
		k := key(r)
		out[k] = append(out[k], r)
	}
	return out
}

func load(ctx context.Context, r repository.Reader) (*dataset, error) {
	farmers, err := r.ListFarmers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load farmers: %w", err)
	}
	customers, err := r.ListCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load customers: %w", err)
	}
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	warehouses, err := r.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load warehouses: %w", err)
	}
	lots, err := r.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lots: %w", err)
	}
	items, err := r.ListLotItems(ctx, repository.LotItemFilter{})
	if err != nil {
		return nil, fmt.Errorf("load lot items: %w", err)
	}
	orders, err := r.ListSalesOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales orders: %w", err)
	}
	lines, err := r.ListPickLines(ctx, repository.PickLineFilter{})
	if err != nil {
		return nil, fmt.Errorf("load pick lines: %w", err)
	}
	purchases, err := r.ListPurchasePayments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load purchase payments: %w", err)
	}
	sales, err := r.ListSalesPayments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load sales payments: %w", err)
	}

	return &dataset{
		farmers:       index(farmers, func(f models.Farmer) string { return f.ID }),
		customers:     index(customers, func(c models.Customer) string { return c.ID }),
		products:      index(products, func(p models.Product) string { return p.ID }),
		warehouses:    index(warehouses, func(w models.Warehouse) string { return w.ID }),
		lots:          lots,
		lotsByID:      index(lots, func(l models.Lot) string { return l.ID }),
		itemsByLot:    group(items, func(i models.LotItem) string { return i.LotID }),
		items:         items,
		orders:        orders,
		linesByOrder:  group(lines, func(l models.PickLine) string { return l.OrderID }),
		purchaseByLot: group(purchases, func(p models.PurchasePayment) string { return p.LotID }),
		salesByOrder:  group(sales, func(p models.SalesPayment) string { return p.OrderID }),
	}, nil
}

func (d *dataset) farmerName(id string) string {
	if f, ok := d.farmers[id]; ok {
		return f.AuctionName
	}
	return id
}

func (d *dataset) customerName(id string) string {
	if c, ok := d.customers[id]; ok {
		return c.CompanyName
	}
	return id
}

func (d *dataset) productName(id string) string {
	if p, ok := d.products[id]; ok {
		return p.Name
	}
	return id
}

func (d *dataset) warehouseName(id string) string {
	if w, ok := d.warehouses[id]; ok {
		return w.Name
	}
	return ""
}

func (d *dataset) lotBalance(lot models.Lot) models.LotBalance {
	return models.BalanceOfLot(lot, d.itemsByLot[lot.ID], d.purchaseByLot[lot.ID])
}

func (d *dataset) orderBalance(order models.SalesOrder, basis models.ValueBasis) (models.OrderBalance, models.OrderValue) {
	value := models.ValueOrder(order.ID, d.linesByOrder[order.ID])
	amount := value.For(basis)
	paid := models.SumSalesPayments(d.salesByOrder[order.ID])
	return models.OrderBalance{
		OrderID:    order.ID,
		OrderDate:  order.OrderDate,
		OrderValue: amount,
		TotalPaid:  paid,
		BalanceDue: amount.Sub(paid),
	}, value
}
