package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the derived status of a sales order.
type OrderStatus string

const (
	OrderDraft             OrderStatus = "Draft"
	OrderPackingInProgress OrderStatus = "Packing in Progress"
	OrderPacked            OrderStatus = "Packed"
)

// PickStatus is the packing state of a pick line.
type PickStatus string

const (
	PickToBePacked PickStatus = "To Be Packed"
	PickPacked     PickStatus = "Packed"
)

// DefaultPackagingType is used when a pick line does not name one.
const DefaultPackagingType = "Bag"

// SalesOrder is one customer order header.
type SalesOrder struct {
	ID         string      `json:"id" bson:"_id"`
	CustomerID string      `json:"customer_id" bson:"customer_id"`
	OrderDate  time.Time   `json:"order_date" bson:"order_date"`
	Notes      string      `json:"notes,omitempty" bson:"notes,omitempty"`
	Status     OrderStatus `json:"status" bson:"status"`
	CreatedAt  time.Time   `json:"created_at" bson:"created_at"`
}

// PickLine allocates a quantity of one lot item to a sales order.
type PickLine struct {
	ID             string          `json:"id" bson:"_id"`
	OrderID        string          `json:"order_id" bson:"order_id"`
	LotItemID      string          `json:"lot_item_id" bson:"lot_item_id"`
	CustomerMark   string          `json:"customer_mark,omitempty" bson:"customer_mark,omitempty"`
	PlannedBags    int             `json:"planned_bags" bson:"planned_bags"`
	PlannedLooseKg decimal.Decimal `json:"planned_loose_kg" bson:"planned_loose_kg"`
	PlannedTotalKg decimal.Decimal `json:"planned_total_kg" bson:"planned_total_kg"`
	SaleRatePerKg  decimal.Decimal `json:"sale_rate_per_kg" bson:"sale_rate_per_kg"`
	PackagingType  string          `json:"packaging_type" bson:"packaging_type"`
	Status         PickStatus      `json:"status" bson:"status"`
	ActualBags     int             `json:"actual_bags" bson:"actual_bags"`
	ActualLooseKg  decimal.Decimal `json:"actual_loose_kg" bson:"actual_loose_kg"`
	ActualTotalKg  decimal.Decimal `json:"actual_total_kg" bson:"actual_total_kg"`
	PackedAt       *time.Time      `json:"packed_at,omitempty" bson:"packed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at" bson:"created_at"`
}

// IsPacked reports whether the line reached its terminal state.
func (p PickLine) IsPacked() bool {
	return p.Status == PickPacked
}

// VarianceKg is actual minus planned weight; zero until the line is packed.
func (p PickLine) VarianceKg() decimal.Decimal {
	if !p.IsPacked() {
		return decimal.Zero
	}
	return p.ActualTotalKg.Sub(p.PlannedTotalKg)
}

// PlannedValue values the planned weight at the sale rate.
func (p PickLine) PlannedValue() decimal.Decimal {
	return p.PlannedTotalKg.Mul(p.SaleRatePerKg)
}

// RealizedValue values the packed weight at the sale rate; zero while unpacked.
func (p PickLine) RealizedValue() decimal.Decimal {
	if !p.IsPacked() {
		return decimal.Zero
	}
	return p.ActualTotalKg.Mul(p.SaleRatePerKg)
}

// DispatchConfirmation is the immutable record of one packing event.
type DispatchConfirmation struct {
	ID            string          `json:"id" bson:"_id"`
	PickLineID    string          `json:"pick_line_id" bson:"pick_line_id"`
	ActualBags    int             `json:"actual_bags" bson:"actual_bags"`
	ActualLooseKg decimal.Decimal `json:"actual_loose_kg" bson:"actual_loose_kg"`
	ActualTotalKg decimal.Decimal `json:"actual_total_kg" bson:"actual_total_kg"`
	CreatedAt     time.Time       `json:"created_at" bson:"created_at"`
}

// SalesOrderWithLines bundles an order header with its pick lines.
type SalesOrderWithLines struct {
	SalesOrder
	Lines []PickLine `json:"lines"`
}
