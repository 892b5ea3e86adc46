package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

func TestDecimalRoundTrip(t *testing.T) {
	reg := newRegistry()

	in := models.LotItem{
		ID:                 "item-1",
		CurrentTotalKg:     decimal.RequireFromString("305.125"),
		PurchaseRatePerKg:  decimal.RequireFromString("40"),
		TotalPurchaseValue: decimal.RequireFromString("12205"),
	}
	raw, err := bson.MarshalWithRegistry(reg, in)
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.IsType(t, primitive.Decimal128{}, doc["current_total_kg"])
	assert.Equal(t, "item-1", doc["_id"])

	var out models.LotItem
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.True(t, in.CurrentTotalKg.Equal(out.CurrentTotalKg))
	assert.True(t, in.TotalPurchaseValue.Equal(out.TotalPurchaseValue))
}

func TestDecimalDecodesLegacyNumbers(t *testing.T) {
	reg := newRegistry()
	raw, err := bson.Marshal(bson.M{
		"current_total_kg":     205.5,
		"initial_total_kg":     int32(300),
		"total_purchase_value": "12000.00",
		"bag_weight_kg":        nil,
	})
	require.NoError(t, err)

	var out models.LotItem
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
	assert.True(t, decimal.RequireFromString("205.5").Equal(out.CurrentTotalKg))
	assert.True(t, decimal.NewFromInt(300).Equal(out.InitialTotalKg))
	assert.True(t, decimal.NewFromInt(12000).Equal(out.TotalPurchaseValue))
	assert.True(t, out.BagWeightKg.IsZero())
}
