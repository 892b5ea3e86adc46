package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one purchase transaction from one farmer on one date.
type Lot struct {
	ID           string    `json:"id" bson:"_id"`
	LotNumber    string    `json:"lot_number" bson:"lot_number"`
	FarmerID     string    `json:"farmer_id" bson:"farmer_id"`
	PurchaseDate time.Time `json:"purchase_date" bson:"purchase_date"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
}

// LotItem is one product's physical stock within a lot.
type LotItem struct {
	ID                 string          `json:"id" bson:"_id"`
	LotID              string          `json:"lot_id" bson:"lot_id"`
	ProductID          string          `json:"product_id" bson:"product_id"`
	WarehouseID        string          `json:"warehouse_id" bson:"warehouse_id"`
	BayNumber          string          `json:"bay_number,omitempty" bson:"bay_number,omitempty"`
	InitialBags        int             `json:"initial_bags" bson:"initial_bags"`
	InitialLooseKg     decimal.Decimal `json:"initial_loose_kg" bson:"initial_loose_kg"`
	BagWeightKg        decimal.Decimal `json:"bag_weight_kg" bson:"bag_weight_kg"`
	PurchaseRatePerKg  decimal.Decimal `json:"purchase_rate_per_kg" bson:"purchase_rate_per_kg"`
	InitialTotalKg     decimal.Decimal `json:"initial_total_kg" bson:"initial_total_kg"`
	CurrentTotalKg     decimal.Decimal `json:"current_total_kg" bson:"current_total_kg"`
	TotalPurchaseValue decimal.Decimal `json:"total_purchase_value" bson:"total_purchase_value"`
	CreatedAt          time.Time       `json:"created_at" bson:"created_at"`
}

// CurrentValue values the remaining stock at the purchase rate.
func (li LotItem) CurrentValue() decimal.Decimal {
	return li.CurrentTotalKg.Mul(li.PurchaseRatePerKg)
}

// LotWithItems bundles a lot header with its items.
type LotWithItems struct {
	Lot
	Items []LotItem `json:"items"`
}

// NormalizeLotNumber produces the key used for case-insensitive lot number lookups.
func NormalizeLotNumber(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}
