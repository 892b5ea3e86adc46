package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueBasis selects which order valuation a report uses.
type ValueBasis string

const (
	// BasisBlended uses packed weight where known and planned weight otherwise.
	BasisBlended ValueBasis = "blended"
	// BasisRealized counts packed lines only.
	BasisRealized ValueBasis = "realized"
	// BasisPlanned counts every line at its planned weight.
	BasisPlanned ValueBasis = "planned"
)

// LotBalance is the payable position of one lot.
type LotBalance struct {
	LotID              string          `json:"lot_id"`
	LotNumber          string          `json:"lot_number"`
	PurchaseDate       time.Time       `json:"purchase_date"`
	TotalPurchaseValue decimal.Decimal `json:"total_purchase_value"`
	TotalPaid          decimal.Decimal `json:"total_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
}

// OrderValue reports the three valuations of a sales order side by side.
type OrderValue struct {
	OrderID     string          `json:"order_id"`
	Realized    decimal.Decimal `json:"realized"`
	Planned     decimal.Decimal `json:"planned"`
	Blended     decimal.Decimal `json:"blended"`
	PackedLines int             `json:"packed_lines"`
	TotalLines  int             `json:"total_lines"`
}

// For returns the valuation matching basis, defaulting to the blended figure.
func (v OrderValue) For(basis ValueBasis) decimal.Decimal {
	switch basis {
	case BasisRealized:
		return v.Realized
	case BasisPlanned:
		return v.Planned
	default:
		return v.Blended
	}
}

// OrderBalance is the receivable position of one order.
type OrderBalance struct {
	OrderID    string          `json:"order_id"`
	OrderDate  time.Time       `json:"order_date"`
	OrderValue decimal.Decimal `json:"order_value"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

// FarmerDue aggregates what is owed to one farmer.
type FarmerDue struct {
	FarmerID           string          `json:"farmer_id" bson:"farmer_id"`
	FarmerName         string          `json:"farmer_name" bson:"farmer_name"`
	LotsCount          int             `json:"lots_count" bson:"lots_count"`
	TotalPurchaseValue decimal.Decimal `json:"total_purchase_value" bson:"total_purchase_value"`
	TotalPaid          decimal.Decimal `json:"total_paid" bson:"total_paid"`
	BalanceDue         decimal.Decimal `json:"balance_due" bson:"balance_due"`
	Lots               []LotBalance    `json:"lots" bson:"-"`
}

// CustomerDue aggregates what one customer owes.
type CustomerDue struct {
	CustomerID      string          `json:"customer_id" bson:"customer_id"`
	CustomerName    string          `json:"customer_name" bson:"customer_name"`
	OrdersCount     int             `json:"orders_count" bson:"orders_count"`
	TotalOrderValue decimal.Decimal `json:"total_order_value" bson:"total_order_value"`
	TotalPaid       decimal.Decimal `json:"total_paid" bson:"total_paid"`
	BalanceDue      decimal.Decimal `json:"balance_due" bson:"balance_due"`
	Orders          []OrderBalance  `json:"orders" bson:"-"`
}

// ProductStock summarises remaining stock of one product across lots.
type ProductStock struct {
	ProductID       string          `json:"product_id"`
	ProductName     string          `json:"product_name"`
	TotalStockKg    decimal.Decimal `json:"total_stock_kg"`
	TotalValue      decimal.Decimal `json:"total_value"`
	AvgPurchaseRate decimal.Decimal `json:"avg_purchase_rate"`
	ActiveLots      int             `json:"active_lots"`
}

// LotInventoryRow is one lot item with stock remaining, resolved to display names.
type LotInventoryRow struct {
	LotID             string          `json:"lot_id"`
	LotNumber         string          `json:"lot_number"`
	LotItemID         string          `json:"lot_item_id"`
	FarmerName        string          `json:"farmer_name"`
	ProductName       string          `json:"product_name"`
	WarehouseName     string          `json:"warehouse_name"`
	BayNumber         string          `json:"bay_number,omitempty"`
	InitialStockKg    decimal.Decimal `json:"initial_stock_kg"`
	CurrentStockKg    decimal.Decimal `json:"current_stock_kg"`
	PurchaseRatePerKg decimal.Decimal `json:"purchase_rate_per_kg"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	PurchaseDate      time.Time       `json:"purchase_date"`
}

// LotRollup is the stock and money position of one lot.
type LotRollup struct {
	LotID         string          `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	FarmerID      string          `json:"farmer_id"`
	PurchaseDate  time.Time       `json:"purchase_date"`
	Items         int             `json:"items"`
	InitialKg     decimal.Decimal `json:"initial_kg"`
	CurrentKg     decimal.Decimal `json:"current_kg"`
	DispatchedKg  decimal.Decimal `json:"dispatched_kg"`
	PurchaseValue decimal.Decimal `json:"purchase_value"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// OrderRollup is the fulfilment and money position of one sales order.
type OrderRollup struct {
	OrderID    string          `json:"order_id"`
	CustomerID string          `json:"customer_id"`
	OrderDate  time.Time       `json:"order_date"`
	Status     OrderStatus     `json:"status"`
	PlannedKg  decimal.Decimal `json:"planned_kg"`
	PackedKg   decimal.Decimal `json:"packed_kg"`
	Value      OrderValue      `json:"value"`
	TotalPaid  decimal.Decimal `json:"total_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`
}

// Dashboard carries the headline business figures.
type Dashboard struct {
	CurrentInventoryKg decimal.Decimal `json:"current_inventory_kg" bson:"current_inventory_kg"`
	InventoryValue     decimal.Decimal `json:"inventory_value" bson:"inventory_value"`
	TotalLots          int             `json:"total_lots" bson:"total_lots"`
	ActiveLots         int             `json:"active_lots" bson:"active_lots"`
	SalesOrders        int             `json:"sales_orders" bson:"sales_orders"`
	FarmerDues         decimal.Decimal `json:"farmer_dues" bson:"farmer_dues"`
	CustomerDues       decimal.Decimal `json:"customer_dues" bson:"customer_dues"`
}

// ReconciliationSnapshot is a point-in-time copy of the derived balances,
// produced by the scheduler for archival and export.
type ReconciliationSnapshot struct {
	ID           string        `json:"id" bson:"_id"`
	TakenAt      time.Time     `json:"taken_at" bson:"taken_at"`
	Dashboard    Dashboard     `json:"dashboard" bson:"dashboard"`
	FarmerDues   []FarmerDue   `json:"farmer_dues" bson:"farmer_dues"`
	CustomerDues []CustomerDue `json:"customer_dues" bson:"customer_dues"`
}

// ValueOrder values an order from its pick lines. Packed lines contribute
// actual weight times rate to Realized and Blended; unpacked lines contribute
// planned weight times rate to Blended. Planned always uses planned weight.
func ValueOrder(orderID string, lines []PickLine) OrderValue {
	v := OrderValue{
		OrderID:    orderID,
		Realized:   decimal.Zero,
		Planned:    decimal.Zero,
		Blended:    decimal.Zero,
		TotalLines: len(lines),
	}
	for _, line := range lines {
		v.Planned = v.Planned.Add(line.PlannedValue())
		if line.IsPacked() {
			v.PackedLines++
			v.Realized = v.Realized.Add(line.RealizedValue())
			v.Blended = v.Blended.Add(line.RealizedValue())
			continue
		}
		v.Blended = v.Blended.Add(line.PlannedValue())
	}
	return v
}

// BalanceOfLot sums the purchase value of items and the payments made
// against lot. Lot items keep their purchase value after stock moves out.
func BalanceOfLot(lot Lot, items []LotItem, payments []PurchasePayment) LotBalance {
	value := decimal.Zero
	for _, item := range items {
		value = value.Add(item.TotalPurchaseValue)
	}
	paid := SumPurchasePayments(payments)
	return LotBalance{
		LotID:              lot.ID,
		LotNumber:          lot.LotNumber,
		PurchaseDate:       lot.PurchaseDate,
		TotalPurchaseValue: value,
		TotalPaid:          paid,
		BalanceDue:         value.Sub(paid),
	}
}
