package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTotalKg(t *testing.T) {
	d := decimal.RequireFromString
	tests := []struct {
		name   string
		bags   int
		loose  string
		weight string
		want   string
	}{
		{name: "bags and loose", bags: 10, loose: "5", weight: "30", want: "305"},
		{name: "loose only", bags: 0, loose: "12.5", weight: "30", want: "12.5"},
		{name: "custom bag weight", bags: 3, loose: "0", weight: "25", want: "75"},
		{name: "negative bags ignored", bags: -4, loose: "2", weight: "30", want: "2"},
		{name: "negative loose ignored", bags: 1, loose: "-9", weight: "30", want: "30"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TotalKg(tc.bags, d(tc.loose), d(tc.weight))
			assert.True(t, d(tc.want).Equal(got), "got %s", got)
		})
	}
}

func TestResolveBagWeight(t *testing.T) {
	d := decimal.RequireFromString
	assert.True(t, d("25").Equal(ResolveBagWeight(d("25"), d("40"))))
	assert.True(t, d("40").Equal(ResolveBagWeight(decimal.Zero, d("40"))))
	assert.True(t, d("30").Equal(ResolveBagWeight(decimal.Zero, decimal.Zero)))
	assert.True(t, d("30").Equal(ResolveBagWeight(d("-1"), decimal.Zero)))
}

func TestNormalizeLotNumber(t *testing.T) {
	assert.Equal(t, "l100", NormalizeLotNumber("  L100 "))
}

func TestCalendarDay(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	assert.True(t, CalendarDay(time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)).Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, CalendarDay(time.Date(2024, 3, 15, 0, 15, 0, 0, ist)).Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, CalendarDay(time.Time{}).IsZero())
}

func TestParsePaymentMethod(t *testing.T) {
	m, err := ParsePaymentMethod(" rtgs ")
	assert.NoError(t, err)
	assert.Equal(t, PaymentRTGS, m)

	_, err = ParsePaymentMethod("upi")
	assert.Error(t, err)
}
