package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultBagWeightKg is the nominal weight of one sippam (bag).
const DefaultBagWeightKg = 30

// ResolveBagWeight returns override when it is positive, otherwise fallback
// when positive, otherwise DefaultBagWeightKg.
func ResolveBagWeight(override, fallback decimal.Decimal) decimal.Decimal {
	if override.IsPositive() {
		return override
	}
	if fallback.IsPositive() {
		return fallback
	}
	return decimal.NewFromInt(DefaultBagWeightKg)
}

// TotalKg converts a bag count and loose weight into a total weight.
// Negative inputs count as zero so the result is never negative.
func TotalKg(bags int, looseKg, bagWeight decimal.Decimal) decimal.Decimal {
	if bags < 0 {
		bags = 0
	}
	if looseKg.IsNegative() {
		looseKg = decimal.Zero
	}
	if bagWeight.IsNegative() {
		bagWeight = decimal.Zero
	}
	return decimal.NewFromInt(int64(bags)).Mul(bagWeight).Add(looseKg)
}

// CalendarDay drops the time of day from t, keeping the date as written in
// t's own location and returning it at midnight UTC.
func CalendarDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
