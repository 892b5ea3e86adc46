package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings holds process-wide ledger configuration.
type Settings struct {
	DefaultBagWeightKg decimal.Decimal `json:"default_bag_weight_kg" bson:"default_bag_weight_kg"`
	UpdatedAt          time.Time       `json:"updated_at" bson:"updated_at"`
}

// SettingsPatch carries optional settings updates.
type SettingsPatch struct {
	DefaultBagWeightKg *decimal.Decimal `json:"default_bag_weight_kg"`
}
