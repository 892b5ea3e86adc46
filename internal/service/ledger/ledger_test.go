package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/repository"
	"github.com/mamadbah2/jaggery/internal/repository/memory"
)

// fixture wires a ledger over an empty memory store with one farmer,
// customer, product and warehouse.
type fixture struct {
	svc       *Service
	store     *memory.Store
	farmer    models.Farmer
	customer  models.Customer
	product   models.Product
	warehouse models.Warehouse
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.New(zap.NewNop())
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(store, zap.NewNop(), WithClock(func() time.Time { return clock }))

	farmer, err := svc.SaveFarmer(ctx, models.Farmer{AuctionName: "Raman", BillingName: "Raman & Sons"})
	require.NoError(t, err)
	customer, err := svc.SaveCustomer(ctx, models.Customer{CompanyName: "Sri Traders", BagMarking: "ST"})
	require.NoError(t, err)
	product, err := svc.SaveProduct(ctx, models.Product{Name: "Cube Jaggery"})
	require.NoError(t, err)
	warehouse, err := svc.SaveWarehouse(ctx, models.Warehouse{Name: "Main", Location: "Erode"})
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, farmer: farmer, customer: customer, product: product, warehouse: warehouse}
}

func (f *fixture) lot(t *testing.T, number string, bags int, loose, rate string) models.LotWithItems {
	t.Helper()
	lot, err := f.svc.CreateLot(context.Background(), CreateLotInput{
		LotNumber:    number,
		FarmerID:     f.farmer.ID,
		PurchaseDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		Items: []LotItemInput{{
			ProductID:         f.product.ID,
			WarehouseID:       f.warehouse.ID,
			Bags:              bags,
			LooseKg:           dec(loose),
			PurchaseRatePerKg: dec(rate),
		}},
	})
	require.NoError(t, err)
	require.Len(t, lot.Items, 1)
	return lot
}

func (f *fixture) order(t *testing.T) models.SalesOrder {
	t.Helper()
	order, err := f.svc.CreateSalesOrder(context.Background(), CreateSalesOrderInput{CustomerID: f.customer.ID})
	require.NoError(t, err)
	return order
}

func (f *fixture) currentKg(t *testing.T, lotItemID string) decimal.Decimal {
	t.Helper()
	item, err := f.store.GetLotItem(context.Background(), lotItemID)
	require.NoError(t, err)
	return item.CurrentTotalKg
}

func TestPurchaseToPackingScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lot := f.lot(t, "L100", 10, "5", "40")
	item := lot.Items[0]
	assert.True(t, dec("305").Equal(item.InitialTotalKg))
	assert.True(t, dec("305").Equal(item.CurrentTotalKg))
	assert.True(t, dec("12200").Equal(item.TotalPurchaseValue))

	_, err := f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("5000"), Method: "cash"})
	require.NoError(t, err)

	balance, err := f.svc.GetLotBalance(ctx, lot.ID)
	require.NoError(t, err)
	assert.True(t, dec("12200").Equal(balance.TotalPurchaseValue))
	assert.True(t, dec("5000").Equal(balance.TotalPaid))
	assert.True(t, dec("7200").Equal(balance.BalanceDue))

	order := f.order(t)
	assert.Equal(t, models.OrderDraft, order.Status)

	line, err := f.svc.AddPickLine(ctx, AddPickLineInput{
		OrderID:        order.ID,
		LotItemID:      item.ID,
		PlannedLooseKg: dec("100"),
		SaleRatePerKg:  dec("55"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PickToBePacked, line.Status)
	assert.Equal(t, models.DefaultPackagingType, line.PackagingType)
	assert.True(t, dec("305").Equal(f.currentKg(t, item.ID)), "reservation must not move stock")

	withLines, err := f.svc.GetSalesOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPackingInProgress, withLines.Status)

	result, err := f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID, ActualBags: 3, ActualLooseKg: dec("10")})
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(result.Line.ActualTotalKg))
	assert.True(t, result.Line.VarianceKg().IsZero())
	assert.True(t, dec("205").Equal(result.LotItem.CurrentTotalKg))
	assert.True(t, dec("205").Equal(f.currentKg(t, item.ID)))
	assert.Equal(t, models.OrderPacked, result.Order.Status)
	assert.Equal(t, line.ID, result.Dispatch.PickLineID)

	// A second reservation bigger than what is left fails.
	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{
		OrderID:        order.ID,
		LotItemID:      item.ID,
		PlannedLooseKg: dec("250"),
		SaleRatePerKg:  dec("55"),
	})
	require.ErrorIs(t, err, ErrExceedsAvailableStock)

	value, err := f.svc.GetOrderValue(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, dec("5500").Equal(value.Realized))
	assert.True(t, dec("5500").Equal(value.Blended))
	assert.Equal(t, 1, value.TotalLines)
}

func TestCreateLotRejectsDuplicateNumberIgnoringCase(t *testing.T) {
	f := newFixture(t)
	f.lot(t, "L100", 1, "0", "40")

	for _, number := range []string{"L100", "l100", "  L100 "} {
		_, err := f.svc.CreateLot(context.Background(), CreateLotInput{
			LotNumber:    number,
			FarmerID:     f.farmer.ID,
			PurchaseDate: time.Now(),
			Items:        []LotItemInput{{ProductID: f.product.ID, Bags: 1, PurchaseRatePerKg: dec("40")}},
		})
		assert.ErrorIs(t, err, ErrDuplicateLotNumber, number)
	}

	lots, err := f.svc.ListLots(context.Background())
	require.NoError(t, err)
	assert.Len(t, lots, 1)
}

func TestCreateLotValidation(t *testing.T) {
	f := newFixture(t)
	base := func() CreateLotInput {
		return CreateLotInput{
			LotNumber:    "L1",
			FarmerID:     f.farmer.ID,
			PurchaseDate: time.Now(),
			Items:        []LotItemInput{{ProductID: f.product.ID, Bags: 2, PurchaseRatePerKg: dec("40")}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*CreateLotInput)
		target error
		field  string
	}{
		{name: "no items", mutate: func(in *CreateLotInput) { in.Items = nil }, target: ErrEmptyItemList},
		{name: "only empty items", mutate: func(in *CreateLotInput) { in.Items[0].Bags = 0 }, target: ErrEmptyItemList},
		{name: "negative rate", mutate: func(in *CreateLotInput) { in.Items[0].PurchaseRatePerKg = dec("-1") }, target: ErrInvalidRate},
		{name: "missing number", mutate: func(in *CreateLotInput) { in.LotNumber = " " }, field: "lot_number"},
		{name: "missing date", mutate: func(in *CreateLotInput) { in.PurchaseDate = time.Time{} }, field: "purchase_date"},
		{name: "unknown farmer", mutate: func(in *CreateLotInput) { in.FarmerID = "nobody" }, field: "farmer_id"},
		{name: "unknown product", mutate: func(in *CreateLotInput) { in.Items[0].ProductID = "nothing" }, field: "items[0].product_id"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := base()
			tc.mutate(&in)
			_, err := f.svc.CreateLot(context.Background(), in)
			require.Error(t, err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	lots, err := f.svc.ListLots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lots, "failed creations must not leave partial lots")
}

func TestCreateLotSkipsEmptyItemsAndUsesBagWeights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	lot, err := f.svc.CreateLot(ctx, CreateLotInput{
		LotNumber:    "L7",
		FarmerID:     f.farmer.ID,
		PurchaseDate: time.Now(),
		Items: []LotItemInput{
			{ProductID: f.product.ID, Bags: 0, PurchaseRatePerKg: dec("40")},
			{ProductID: f.product.ID, Bags: 2, BagWeightKg: dec("25"), PurchaseRatePerKg: dec("40")},
			{ProductID: f.product.ID, Bags: 1, LooseKg: dec("2.5"), PurchaseRatePerKg: dec("0")},
		},
	})
	require.NoError(t, err)
	require.Len(t, lot.Items, 2)
	assert.True(t, dec("50").Equal(lot.Items[0].InitialTotalKg))
	assert.True(t, dec("32.5").Equal(lot.Items[1].InitialTotalKg))
	assert.True(t, lot.Items[1].TotalPurchaseValue.IsZero())

	available, err := f.svc.AvailableLotItems(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 2)
}

func TestSettingsDriveDefaultBagWeight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	weight, err := f.svc.DefaultBagWeight(ctx)
	require.NoError(t, err)
	assert.True(t, dec("30").Equal(weight))

	_, err = f.svc.UpdateSettings(ctx, models.SettingsPatch{DefaultBagWeightKg: ptr(dec("0"))})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	updated, err := f.svc.UpdateSettings(ctx, models.SettingsPatch{DefaultBagWeightKg: ptr(dec("40"))})
	require.NoError(t, err)
	assert.True(t, dec("40").Equal(updated.DefaultBagWeightKg))

	lot := f.lot(t, "L40", 2, "0", "10")
	assert.True(t, dec("80").Equal(lot.Items[0].InitialTotalKg))
	assert.True(t, dec("40").Equal(lot.Items[0].BagWeightKg))
}

func ptr[T any](v T) *T { return &v }

func TestAddPickLineValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 10, "0", "40").Items[0]
	order := f.order(t)

	_, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 1, SaleRatePerKg: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, SaleRatePerKg: dec("50")})
	assert.ErrorIs(t, err, ErrEmptyQuantity)

	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 11, SaleRatePerKg: dec("50")})
	assert.ErrorIs(t, err, ErrExceedsAvailableStock)

	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: "missing", LotItemID: item.ID, PlannedBags: 1, SaleRatePerKg: dec("50")})
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := f.svc.GetSalesOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderDraft, got.Status, "rejected lines leave the order untouched")
	assert.Empty(t, got.Lines)

	// Exactly the available stock is allowed.
	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 10, SaleRatePerKg: dec("50")})
	require.NoError(t, err)
}

func TestConfirmPackingIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 10, "0", "40").Items[0]
	order := f.order(t)

	line, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 2, SaleRatePerKg: dec("50")})
	require.NoError(t, err)

	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID})
	assert.ErrorIs(t, err, ErrEmptyQuantity)

	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: "missing", ActualBags: 1})
	assert.ErrorIs(t, err, ErrPickLineNotFound)

	first, err := f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID, ActualBags: 2, ActualLooseKg: dec("1.5")})
	require.NoError(t, err)
	assert.True(t, dec("1.5").Equal(first.Line.VarianceKg()))

	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID, ActualBags: 2})
	assert.ErrorIs(t, err, ErrAlreadyPacked)

	dispatches, err := f.store.ListDispatches(ctx, line.ID)
	require.NoError(t, err)
	assert.Len(t, dispatches, 1)
	assert.True(t, dec("238.5").Equal(f.currentKg(t, item.ID)))
}

func TestConfirmPackingRefusesMoreThanStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 2, "0", "40").Items[0]
	order := f.order(t)

	line, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 2, SaleRatePerKg: dec("50")})
	require.NoError(t, err)

	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID, ActualBags: 2, ActualLooseKg: dec("0.5")})
	require.ErrorIs(t, err, ErrExceedsAvailableStock)

	assert.True(t, dec("60").Equal(f.currentKg(t, item.ID)))
	got, err := f.store.GetPickLine(ctx, line.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PickToBePacked, got.Status)
	dispatches, err := f.store.ListDispatches(ctx, line.ID)
	require.NoError(t, err)
	assert.Empty(t, dispatches)
}

func TestOrderStatusProgression(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 10, "0", "40").Items[0]
	order := f.order(t)

	add := func() models.PickLine {
		line, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 1, SaleRatePerKg: dec("50")})
		require.NoError(t, err)
		return line
	}
	status := func() models.OrderStatus {
		o, err := f.svc.GetSalesOrder(ctx, order.ID)
		require.NoError(t, err)
		return o.Status
	}

	a, b := add(), add()
	assert.Equal(t, models.OrderPackingInProgress, status())

	_, err := f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: a.ID, ActualBags: 1})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPackingInProgress, status())

	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: b.ID, ActualBags: 1})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPacked, status())

	// A new line reopens the order.
	add()
	assert.Equal(t, models.OrderPackingInProgress, status())

	queue, err := f.svc.PackingQueue(ctx)
	require.NoError(t, err)
	assert.Len(t, queue, 1)
}

func TestOrderValueBases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 10, "0", "40").Items[0]
	order := f.order(t)

	packed, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 2, SaleRatePerKg: dec("50")})
	require.NoError(t, err)
	_, err = f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedLooseKg: dec("10"), SaleRatePerKg: dec("60")})
	require.NoError(t, err)
	_, err = f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: packed.ID, ActualBags: 2, ActualLooseKg: dec("2")})
	require.NoError(t, err)

	value, err := f.svc.GetOrderValue(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, dec("3100").Equal(value.Realized), value.Realized.String())
	assert.True(t, dec("3600").Equal(value.Planned), value.Planned.String())
	assert.True(t, dec("3700").Equal(value.Blended), value.Blended.String())
	assert.Equal(t, 1, value.PackedLines)

	_, err = f.svc.RecordSalesPayment(ctx, RecordPaymentInput{ParentID: order.ID, Amount: dec("1000"), Method: "RTGS", Reference: "UTR1"})
	require.NoError(t, err)

	balance, err := f.svc.GetOrderBalance(ctx, order.ID, "")
	require.NoError(t, err)
	assert.True(t, dec("2100").Equal(balance.BalanceDue))

	blended, err := f.svc.GetOrderBalance(ctx, order.ID, models.BasisBlended)
	require.NoError(t, err)
	assert.True(t, dec("2700").Equal(blended.BalanceDue))
}

func TestPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "L1", 10, "0", "40")

	_, err := f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("0"), Method: "Cash"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("10"), Method: "cheque"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "method", verr.Field)

	_, err = f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: "missing", Amount: dec("10"), Method: "Cash"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lot_id", verr.Field)

	paid, err := f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("10"), Method: "rtgs"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRTGS, paid.Method)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).Equal(paid.PaymentDate), "payment date is the calendar day of the clock")

	history, err := f.svc.PurchasePayments(ctx, lot.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.SalesPayments(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBalanceIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lot := f.lot(t, "L1", 10, "0", "40")
	_, err := f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("1234.56"), Method: "Cash"})
	require.NoError(t, err)

	first, err := f.svc.GetLotBalance(ctx, lot.ID)
	require.NoError(t, err)
	second, err := f.svc.GetLotBalance(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.True(t, dec("10765.44").Equal(first.BalanceDue))
}

func TestStockIsConserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 20, "7", "40").Items[0]
	order := f.order(t)

	packedKg := decimal.Zero
	for i := 1; i <= 4; i++ {
		line, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: i, SaleRatePerKg: dec("50")})
		require.NoError(t, err)
		res, err := f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: line.ID, ActualBags: i, ActualLooseKg: dec("0.25")})
		require.NoError(t, err)
		packedKg = packedKg.Add(res.Line.ActualTotalKg)
	}

	current := f.currentKg(t, item.ID)
	assert.True(t, item.InitialTotalKg.Equal(current.Add(packedKg)))
	assert.False(t, current.IsNegative())
}

func TestConcurrentPackingNeverOversells(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.lot(t, "L1", 10, "0", "40").Items[0]

	const workers = 8
	lines := make([]models.PickLine, 0, workers)
	for i := 0; i < workers; i++ {
		order := f.order(t)
		line, err := f.svc.AddPickLine(ctx, AddPickLineInput{OrderID: order.ID, LotItemID: item.ID, PlannedBags: 2, SaleRatePerKg: dec("50")})
		require.NoError(t, err)
		lines = append(lines, line)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for _, line := range lines {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.svc.ConfirmPacking(ctx, ConfirmPackingInput{PickLineID: id, ActualBags: 2})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrExceedsAvailableStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(line.ID)
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	assert.Equal(t, workers-5, rejected)
	assert.True(t, f.currentKg(t, item.ID).IsZero())
}

func TestMasterDataLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SaveFarmer(ctx, models.Farmer{AuctionName: "  "})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	renamed := f.farmer
	renamed.AuctionName = "Raman K"
	saved, err := f.svc.SaveFarmer(ctx, renamed)
	require.NoError(t, err)
	assert.Equal(t, f.farmer.CreatedAt, saved.CreatedAt)

	_, err = f.svc.SaveProduct(ctx, models.Product{ID: "ghost", Name: "Powder"})
	assert.ErrorIs(t, err, ErrNotFound)

	lot := f.lot(t, "L1", 1, "0", "40")
	err = f.svc.DeleteFarmer(ctx, f.farmer.ID)
	assert.True(t, repository.IsKind(err, repository.KindReferential), fmt.Sprint(err))

	_, err = f.svc.RecordPurchasePayment(ctx, RecordPaymentInput{ParentID: lot.ID, Amount: dec("5"), Method: "Cash"})
	require.NoError(t, err)
	err = f.svc.DeleteLot(ctx, lot.ID)
	assert.True(t, repository.IsKind(err, repository.KindReferential))

	spare := f.lot(t, "L2", 1, "0", "40")
	require.NoError(t, f.svc.DeleteLot(ctx, spare.ID))
	_, err = f.svc.GetLot(ctx, spare.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The number is free again after deletion.
	f.lot(t, "l2", 1, "0", "40")
}
