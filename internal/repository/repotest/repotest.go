// Package repotest holds the behaviour every repository.Store backend must
// share. Backends call Run from their own tests.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
)

// Opener returns an empty store for one test.
type Opener func(t *testing.T) repository.Store

var errRollback = errors.New("rollback")

// Run exercises the store contract against stores produced by open.
func Run(t *testing.T, open Opener) {
	t.Run("master data", func(t *testing.T) { testMasterData(t, open(t)) })
	t.Run("lot number uniqueness", func(t *testing.T) { testLotUniqueness(t, open(t)) })
	t.Run("conditional decrement", func(t *testing.T) { testDecrement(t, open(t)) })
	t.Run("rollback", func(t *testing.T) { testRollback(t, open(t)) })
	t.Run("packing guards", func(t *testing.T) { testPackingGuards(t, open(t)) })
	t.Run("referential deletes", func(t *testing.T) { testReferentialDeletes(t, open(t)) })
	t.Run("settings", func(t *testing.T) { testSettings(t, open(t)) })
	t.Run("decimal precision", func(t *testing.T) { testDecimalPrecision(t, open(t)) })
}

func at(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func write(t *testing.T, s repository.Store, fn func(ctx context.Context, tx repository.Tx) error) error {
	t.Helper()
	return s.RunInTransaction(context.Background(), fn)
}

// seeded is one farmer, product, lot of 300 kg and one customer order.
type seeded struct {
	farmer   models.Farmer
	customer models.Customer
	product  models.Product
	lot      models.Lot
	item     models.LotItem
	order    models.SalesOrder
}

func seed(t *testing.T, s repository.Store) seeded {
	t.Helper()
	d := seeded{
		farmer:   models.Farmer{ID: uuid.NewString(), AuctionName: "Raman", CreatedAt: at(1)},
		customer: models.Customer{ID: uuid.NewString(), CompanyName: "Sri Traders", CreatedAt: at(1)},
		product:  models.Product{ID: uuid.NewString(), Name: "Cube", CreatedAt: at(1)},
	}
	d.lot = models.Lot{ID: uuid.NewString(), LotNumber: "L-" + d.farmer.ID[:8], FarmerID: d.farmer.ID, PurchaseDate: at(2), CreatedAt: at(2)}
	d.item = models.LotItem{
		ID:                 uuid.NewString(),
		LotID:              d.lot.ID,
		ProductID:          d.product.ID,
		InitialBags:        10,
		InitialLooseKg:     decimal.Zero,
		BagWeightKg:        decimal.NewFromInt(30),
		PurchaseRatePerKg:  decimal.NewFromInt(40),
		InitialTotalKg:     decimal.NewFromInt(300),
		CurrentTotalKg:     decimal.NewFromInt(300),
		TotalPurchaseValue: decimal.NewFromInt(12000),
		CreatedAt:          at(2),
	}
	d.order = models.SalesOrder{ID: uuid.NewString(), CustomerID: d.customer.ID, OrderDate: at(3), Status: models.OrderDraft, CreatedAt: at(3)}

	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.SaveFarmer(ctx, d.farmer); err != nil {
			return err
		}
		if err := tx.SaveCustomer(ctx, d.customer); err != nil {
			return err
		}
		if err := tx.SaveProduct(ctx, d.product); err != nil {
			return err
		}
		if err := tx.CreateLot(ctx, d.lot); err != nil {
			return err
		}
		if err := tx.CreateLotItems(ctx, []models.LotItem{d.item}); err != nil {
			return err
		}
		return tx.CreateSalesOrder(ctx, d.order)
	}))
	return d
}

func (d seeded) pickLine() models.PickLine {
	return models.PickLine{
		ID:             uuid.NewString(),
		OrderID:        d.order.ID,
		LotItemID:      d.item.ID,
		PlannedBags:    2,
		PlannedLooseKg: decimal.Zero,
		PlannedTotalKg: decimal.NewFromInt(60),
		SaleRatePerKg:  decimal.NewFromInt(55),
		PackagingType:  models.DefaultPackagingType,
		Status:         models.PickToBePacked,
		ActualLooseKg:  decimal.Zero,
		ActualTotalKg:  decimal.Zero,
		CreatedAt:      at(4),
	}
}

func testMasterData(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)

	got, err := s.GetFarmer(ctx, d.farmer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Raman", got.AuctionName)

	got.Phone = "9800000000"
	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.SaveFarmer(ctx, got)
	}))
	farmers, err := s.ListFarmers(ctx)
	require.NoError(t, err)
	require.Len(t, farmers, 1)
	assert.Equal(t, "9800000000", farmers[0].Phone)

	_, err = s.GetProduct(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	item, err := s.GetLotItem(ctx, d.item.ID)
	require.NoError(t, err)
	assert.True(t, d.item.TotalPurchaseValue.Equal(item.TotalPurchaseValue))
	assert.True(t, d.item.CurrentTotalKg.Equal(item.CurrentTotalKg))
}

func testLotUniqueness(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)

	found, err := s.FindLotsByNumber(ctx, "  "+d.lot.LotNumber+" ")
	require.NoError(t, err)
	require.Len(t, found, 1)

	dup := models.Lot{ID: uuid.NewString(), LotNumber: d.lot.LotNumber, FarmerID: d.farmer.ID, PurchaseDate: at(5), CreatedAt: at(5)}
	// Swap the case of the first letter.
	dup.LotNumber = "l" + dup.LotNumber[1:]
	err = write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreateLot(ctx, dup)
	})
	assert.True(t, repository.IsKind(err, repository.KindUniqueness), "got %v", err)
}

func testDecrement(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)

	var after models.LotItem
	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.LockLotItem(ctx, d.item.ID); err != nil {
			return err
		}
		var err error
		after, err = tx.DecrementLotItemStock(ctx, d.item.ID, decimal.RequireFromString("100.5"))
		return err
	}))
	assert.True(t, decimal.RequireFromString("199.5").Equal(after.CurrentTotalKg))

	err := write(t, s, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.DecrementLotItemStock(ctx, d.item.ID, decimal.NewFromInt(200))
		return err
	})
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	inStock, err := s.ListLotItems(ctx, repository.LotItemFilter{InStockOnly: true})
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	assert.True(t, decimal.RequireFromString("199.5").Equal(inStock[0].CurrentTotalKg))

	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		_, err := tx.DecrementLotItemStock(ctx, d.item.ID, decimal.RequireFromString("199.5"))
		return err
	}))
	inStock, err = s.ListLotItems(ctx, repository.LotItemFilter{InStockOnly: true})
	require.NoError(t, err)
	assert.Empty(t, inStock)
}

func testRollback(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)

	err := write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.DecrementLotItemStock(ctx, d.item.ID, decimal.NewFromInt(50)); err != nil {
			return err
		}
		if err := tx.CreatePickLine(ctx, d.pickLine()); err != nil {
			return err
		}
		return errRollback
	})
	require.ErrorIs(t, err, errRollback)

	item, err := s.GetLotItem(ctx, d.item.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(item.CurrentTotalKg))
	lines, err := s.ListPickLines(ctx, repository.PickLineFilter{OrderID: d.order.ID})
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func testPackingGuards(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)
	line := d.pickLine()
	other := d.pickLine()

	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreatePickLine(ctx, line); err != nil {
			return err
		}
		if err := tx.CreatePickLine(ctx, other); err != nil {
			return err
		}
		return tx.UpdateSalesOrderStatus(ctx, d.order.ID, models.OrderPackingInProgress)
	}))

	packedAt := at(6)
	packed := line
	packed.Status = models.PickPacked
	packed.ActualBags = 2
	packed.ActualTotalKg = decimal.NewFromInt(60)
	packed.PackedAt = &packedAt
	dispatch := models.DispatchConfirmation{ID: uuid.NewString(), PickLineID: line.ID, ActualBags: 2, ActualLooseKg: decimal.Zero, ActualTotalKg: decimal.NewFromInt(60), CreatedAt: packedAt}

	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateDispatch(ctx, dispatch); err != nil {
			return err
		}
		return tx.MarkPickLinePacked(ctx, packed)
	}))

	err := write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.MarkPickLinePacked(ctx, packed)
	})
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = write(t, s, func(ctx context.Context, tx repository.Tx) error {
		again := dispatch
		again.ID = uuid.NewString()
		return tx.CreateDispatch(ctx, again)
	})
	assert.True(t, repository.IsKind(err, repository.KindUniqueness), "got %v", err)

	queue, err := s.ListPickLines(ctx, repository.PickLineFilter{Status: models.PickToBePacked})
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, other.ID, queue[0].ID)

	stored, err := s.GetPickLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PickPacked, stored.Status)
	assert.True(t, decimal.NewFromInt(60).Equal(stored.ActualTotalKg))
	require.NotNil(t, stored.PackedAt)

	dispatches, err := s.ListDispatches(ctx, line.ID)
	require.NoError(t, err)
	assert.Len(t, dispatches, 1)

	order, err := s.GetSalesOrder(ctx, d.order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPackingInProgress, order.Status)
}

func testReferentialDeletes(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)

	err := write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteFarmer(ctx, d.farmer.ID)
	})
	assert.True(t, repository.IsKind(err, repository.KindReferential), "got %v", err)

	payment := models.PurchasePayment{ID: uuid.NewString(), LotID: d.lot.ID, Amount: decimal.NewFromInt(500), PaymentDate: at(7), Method: models.PaymentCash, CreatedAt: at(7)}
	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.CreatePurchasePayment(ctx, payment)
	}))

	err = write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteLot(ctx, d.lot.ID)
	})
	assert.True(t, repository.IsKind(err, repository.KindReferential), "got %v", err)

	payments, err := s.ListPurchasePayments(ctx, d.lot.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(payments[0].Amount))

	err = write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.DeleteWarehouse(ctx, uuid.NewString())
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testSettings(t *testing.T, s repository.Store) {
	ctx := context.Background()

	_, err := s.GetSettings(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	want := models.Settings{DefaultBagWeightKg: decimal.RequireFromString("32.5"), UpdatedAt: at(8)}
	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		return tx.SaveSettings(ctx, want)
	}))

	got, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.True(t, want.DefaultBagWeightKg.Equal(got.DefaultBagWeightKg))
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

// testDecimalPrecision stores amounts finer than paise and grams and expects
// them back unrounded.
func testDecimalPrecision(t *testing.T, s repository.Store) {
	ctx := context.Background()
	d := seed(t, s)
	dec := decimal.RequireFromString

	lot := models.Lot{ID: uuid.NewString(), LotNumber: "P-" + d.lot.ID[:8], FarmerID: d.farmer.ID, PurchaseDate: at(5), CreatedAt: at(5)}
	item := models.LotItem{
		ID:                 uuid.NewString(),
		LotID:              lot.ID,
		ProductID:          d.product.ID,
		InitialBags:        3,
		InitialLooseKg:     dec("0.1234"),
		BagWeightKg:        dec("30.0625"),
		PurchaseRatePerKg:  dec("40.555"),
		InitialTotalKg:     dec("90.3109"),
		CurrentTotalKg:     dec("90.3109"),
		TotalPurchaseValue: dec("3662.55854995"),
		CreatedAt:          at(5),
	}
	line := d.pickLine()
	line.SaleRatePerKg = dec("55.125")
	line.PlannedLooseKg = dec("0.0005")
	line.PlannedTotalKg = dec("60.0005")
	payment := models.SalesPayment{ID: uuid.NewString(), OrderID: d.order.ID, Amount: dec("1234.567"), PaymentDate: at(6), Method: models.PaymentCash, CreatedAt: at(6)}

	require.NoError(t, write(t, s, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateLot(ctx, lot); err != nil {
			return err
		}
		if err := tx.CreateLotItems(ctx, []models.LotItem{item}); err != nil {
			return err
		}
		if err := tx.CreatePickLine(ctx, line); err != nil {
			return err
		}
		return tx.CreateSalesPayment(ctx, payment)
	}))

	gotItem, err := s.GetLotItem(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, item.PurchaseRatePerKg.Equal(gotItem.PurchaseRatePerKg), "rate %s", gotItem.PurchaseRatePerKg)
	assert.True(t, item.BagWeightKg.Equal(gotItem.BagWeightKg), "bag weight %s", gotItem.BagWeightKg)
	assert.True(t, item.CurrentTotalKg.Equal(gotItem.CurrentTotalKg), "current %s", gotItem.CurrentTotalKg)
	assert.True(t, item.TotalPurchaseValue.Equal(gotItem.TotalPurchaseValue), "value %s", gotItem.TotalPurchaseValue)

	gotLine, err := s.GetPickLine(ctx, line.ID)
	require.NoError(t, err)
	assert.True(t, line.SaleRatePerKg.Equal(gotLine.SaleRatePerKg), "sale rate %s", gotLine.SaleRatePerKg)
	assert.True(t, line.PlannedTotalKg.Equal(gotLine.PlannedTotalKg), "planned %s", gotLine.PlannedTotalKg)

	payments, err := s.ListSalesPayments(ctx, d.order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.True(t, payment.Amount.Equal(payments[0].Amount), "amount %s", payments[0].Amount)
}
