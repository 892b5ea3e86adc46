package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

type farmerRow struct {
	ID          string `gorm:"type:text;primaryKey"`
	AuctionName string `gorm:"not null"`
	BillingName string
	Phone       string
	CreatedAt   time.Time `gorm:"index"`
}

func (farmerRow) TableName() string { return "farmers" }

type customerRow struct {
	ID            string `gorm:"type:text;primaryKey"`
	CompanyName   string `gorm:"not null"`
	ContactPerson string
	BagMarking    string
	Phone         string
	CreatedAt     time.Time `gorm:"index"`
}

func (customerRow) TableName() string { return "customers" }

type productRow struct {
	ID        string `gorm:"type:text;primaryKey"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
}

func (productRow) TableName() string { return "products" }

type warehouseRow struct {
	ID        string `gorm:"type:text;primaryKey"`
	Name      string `gorm:"not null"`
	Location  string
	CreatedAt time.Time
}

func (warehouseRow) TableName() string { return "warehouses" }

type lotRow struct {
	ID           string    `gorm:"type:text;primaryKey"`
	LotNumber    string    `gorm:"not null"`
	LotNumberKey string    `gorm:"not null;uniqueIndex"`
	FarmerID     string    `gorm:"type:text;not null;index"`
	Farmer       farmerRow `gorm:"foreignKey:FarmerID;constraint:OnDelete:RESTRICT"`
	PurchaseDate time.Time `gorm:"not null"`
	CreatedAt    time.Time
}

func (lotRow) TableName() string { return "lots" }

type lotItemRow struct {
	ID                 string       `gorm:"type:text;primaryKey"`
	LotID              string       `gorm:"type:text;not null;index"`
	Lot                lotRow       `gorm:"foreignKey:LotID;constraint:OnDelete:RESTRICT"`
	ProductID          string       `gorm:"type:text;not null;index"`
	Product            productRow   `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	WarehouseID        *string      `gorm:"type:text;index"`
	Warehouse          warehouseRow `gorm:"foreignKey:WarehouseID;constraint:OnDelete:RESTRICT"`
	BayNumber          string
	InitialBags        int             `gorm:"not null"`
	InitialLooseKg     decimal.Decimal `gorm:"type:numeric;not null"`
	BagWeightKg        decimal.Decimal `gorm:"type:numeric;not null"`
	PurchaseRatePerKg  decimal.Decimal `gorm:"type:numeric;not null"`
	InitialTotalKg     decimal.Decimal `gorm:"type:numeric;not null"`
	CurrentTotalKg     decimal.Decimal `gorm:"type:numeric;not null;check:chk_lot_items_current_total_kg,current_total_kg >= 0"`
	TotalPurchaseValue decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt          time.Time
}

func (lotItemRow) TableName() string { return "lot_items" }

type salesOrderRow struct {
	ID         string      `gorm:"type:text;primaryKey"`
	CustomerID string      `gorm:"type:text;not null;index"`
	Customer   customerRow `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
	OrderDate  time.Time   `gorm:"not null"`
	Notes      string
	Status     string `gorm:"not null"`
	CreatedAt  time.Time
}

func (salesOrderRow) TableName() string { return "sales_orders" }

type pickLineRow struct {
	ID             string        `gorm:"type:text;primaryKey"`
	OrderID        string        `gorm:"type:text;not null;index"`
	Order          salesOrderRow `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	LotItemID      string        `gorm:"type:text;not null;index"`
	LotItem        lotItemRow    `gorm:"foreignKey:LotItemID;constraint:OnDelete:RESTRICT"`
	CustomerMark   string
	PlannedBags    int             `gorm:"not null"`
	PlannedLooseKg decimal.Decimal `gorm:"type:numeric;not null"`
	PlannedTotalKg decimal.Decimal `gorm:"type:numeric;not null"`
	SaleRatePerKg  decimal.Decimal `gorm:"type:numeric;not null"`
	PackagingType  string
	Status         string          `gorm:"not null;index"`
	ActualBags     int             `gorm:"not null"`
	ActualLooseKg  decimal.Decimal `gorm:"type:numeric;not null"`
	ActualTotalKg  decimal.Decimal `gorm:"type:numeric;not null"`
	PackedAt       *time.Time
	CreatedAt      time.Time
}

func (pickLineRow) TableName() string { return "pick_lines" }

type dispatchRow struct {
	ID            string          `gorm:"type:text;primaryKey"`
	PickLineID    string          `gorm:"type:text;not null;uniqueIndex"`
	PickLine      pickLineRow     `gorm:"foreignKey:PickLineID;constraint:OnDelete:RESTRICT"`
	ActualBags    int             `gorm:"not null"`
	ActualLooseKg decimal.Decimal `gorm:"type:numeric;not null"`
	ActualTotalKg decimal.Decimal `gorm:"type:numeric;not null"`
	CreatedAt     time.Time
}

func (dispatchRow) TableName() string { return "dispatch_confirmations" }

type purchasePaymentRow struct {
	ID          string          `gorm:"type:text;primaryKey"`
	LotID       string          `gorm:"type:text;not null;index"`
	Lot         lotRow          `gorm:"foreignKey:LotID;constraint:OnDelete:RESTRICT"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	PaymentDate time.Time       `gorm:"not null"`
	Method      string          `gorm:"not null"`
	Reference   string
	CreatedAt   time.Time
}

func (purchasePaymentRow) TableName() string { return "purchase_payments" }

type salesPaymentRow struct {
	ID          string          `gorm:"type:text;primaryKey"`
	OrderID     string          `gorm:"type:text;not null;index"`
	Order       salesOrderRow   `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	Amount      decimal.Decimal `gorm:"type:numeric;not null"`
	PaymentDate time.Time       `gorm:"not null"`
	Method      string          `gorm:"not null"`
	Reference   string
	CreatedAt   time.Time
}

func (salesPaymentRow) TableName() string { return "sales_payments" }

type settingsRow struct {
	ID                 string          `gorm:"type:text;primaryKey"`
	DefaultBagWeightKg decimal.Decimal `gorm:"type:numeric;not null"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime:false"`
}

func (settingsRow) TableName() string { return "settings" }

type snapshotRow struct {
	ID      string    `gorm:"type:text;primaryKey"`
	TakenAt time.Time `gorm:"not null;index"`
	Payload []byte    `gorm:"type:jsonb;not null"`
}

func (snapshotRow) TableName() string { return "reconciliation_snapshots" }

func allRows() []interface{} {
	return []interface{}{
		&farmerRow{}, &customerRow{}, &productRow{}, &warehouseRow{},
		&lotRow{}, &lotItemRow{}, &salesOrderRow{}, &pickLineRow{}, &dispatchRow{},
		&purchasePaymentRow{}, &salesPaymentRow{}, &settingsRow{}, &snapshotRow{},
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func farmerFrom(f models.Farmer) farmerRow {
	return farmerRow{ID: f.ID, AuctionName: f.AuctionName, BillingName: f.BillingName, Phone: f.Phone, CreatedAt: f.CreatedAt}
}

func (r farmerRow) model() models.Farmer {
	return models.Farmer{ID: r.ID, AuctionName: r.AuctionName, BillingName: r.BillingName, Phone: r.Phone, CreatedAt: r.CreatedAt}
}

func customerFrom(c models.Customer) customerRow {
	return customerRow{ID: c.ID, CompanyName: c.CompanyName, ContactPerson: c.ContactPerson, BagMarking: c.BagMarking, Phone: c.Phone, CreatedAt: c.CreatedAt}
}

func (r customerRow) model() models.Customer {
	return models.Customer{ID: r.ID, CompanyName: r.CompanyName, ContactPerson: r.ContactPerson, BagMarking: r.BagMarking, Phone: r.Phone, CreatedAt: r.CreatedAt}
}

func productFrom(p models.Product) productRow {
	return productRow{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt}
}

func (r productRow) model() models.Product {
	return models.Product{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func warehouseFrom(w models.Warehouse) warehouseRow {
	return warehouseRow{ID: w.ID, Name: w.Name, Location: w.Location, CreatedAt: w.CreatedAt}
}

func (r warehouseRow) model() models.Warehouse {
	return models.Warehouse{ID: r.ID, Name: r.Name, Location: r.Location, CreatedAt: r.CreatedAt}
}

func lotFrom(l models.Lot) lotRow {
	return lotRow{
		ID:           l.ID,
		LotNumber:    l.LotNumber,
		LotNumberKey: models.NormalizeLotNumber(l.LotNumber),
		FarmerID:     l.FarmerID,
		PurchaseDate: l.PurchaseDate,
		CreatedAt:    l.CreatedAt,
	}
}

func (r lotRow) model() models.Lot {
	return models.Lot{ID: r.ID, LotNumber: r.LotNumber, FarmerID: r.FarmerID, PurchaseDate: r.PurchaseDate, CreatedAt: r.CreatedAt}
}

func lotItemFrom(li models.LotItem) lotItemRow {
	return lotItemRow{
		ID:                 li.ID,
		LotID:              li.LotID,
		ProductID:          li.ProductID,
		WarehouseID:        optional(li.WarehouseID),
		BayNumber:          li.BayNumber,
		InitialBags:        li.InitialBags,
		InitialLooseKg:     li.InitialLooseKg,
		BagWeightKg:        li.BagWeightKg,
		PurchaseRatePerKg:  li.PurchaseRatePerKg,
		InitialTotalKg:     li.InitialTotalKg,
		CurrentTotalKg:     li.CurrentTotalKg,
		TotalPurchaseValue: li.TotalPurchaseValue,
		CreatedAt:          li.CreatedAt,
	}
}

func (r lotItemRow) model() models.LotItem {
	return models.LotItem{
		ID:                 r.ID,
		LotID:              r.LotID,
		ProductID:          r.ProductID,
		WarehouseID:        deref(r.WarehouseID),
		BayNumber:          r.BayNumber,
		InitialBags:        r.InitialBags,
		InitialLooseKg:     r.InitialLooseKg,
		BagWeightKg:        r.BagWeightKg,
		PurchaseRatePerKg:  r.PurchaseRatePerKg,
		InitialTotalKg:     r.InitialTotalKg,
		CurrentTotalKg:     r.CurrentTotalKg,
		TotalPurchaseValue: r.TotalPurchaseValue,
		CreatedAt:          r.CreatedAt,
	}
}

func salesOrderFrom(o models.SalesOrder) salesOrderRow {
	return salesOrderRow{ID: o.ID, CustomerID: o.CustomerID, OrderDate: o.OrderDate, Notes: o.Notes, Status: string(o.Status), CreatedAt: o.CreatedAt}
}

func (r salesOrderRow) model() models.SalesOrder {
	return models.SalesOrder{ID: r.ID, CustomerID: r.CustomerID, OrderDate: r.OrderDate, Notes: r.Notes, Status: models.OrderStatus(r.Status), CreatedAt: r.CreatedAt}
}

func pickLineFrom(p models.PickLine) pickLineRow {
	return pickLineRow{
		ID:             p.ID,
		OrderID:        p.OrderID,
		LotItemID:      p.LotItemID,
		CustomerMark:   p.CustomerMark,
		PlannedBags:    p.PlannedBags,
		PlannedLooseKg: p.PlannedLooseKg,
		PlannedTotalKg: p.PlannedTotalKg,
		SaleRatePerKg:  p.SaleRatePerKg,
		PackagingType:  p.PackagingType,
		Status:         string(p.Status),
		ActualBags:     p.ActualBags,
		ActualLooseKg:  p.ActualLooseKg,
		ActualTotalKg:  p.ActualTotalKg,
		PackedAt:       p.PackedAt,
		CreatedAt:      p.CreatedAt,
	}
}

func (r pickLineRow) model() models.PickLine {
	return models.PickLine{
		ID:             r.ID,
		OrderID:        r.OrderID,
		LotItemID:      r.LotItemID,
		CustomerMark:   r.CustomerMark,
		PlannedBags:    r.PlannedBags,
		PlannedLooseKg: r.PlannedLooseKg,
		PlannedTotalKg: r.PlannedTotalKg,
		SaleRatePerKg:  r.SaleRatePerKg,
		PackagingType:  r.PackagingType,
		Status:         models.PickStatus(r.Status),
		ActualBags:     r.ActualBags,
		ActualLooseKg:  r.ActualLooseKg,
		ActualTotalKg:  r.ActualTotalKg,
		PackedAt:       r.PackedAt,
		CreatedAt:      r.CreatedAt,
	}
}

func dispatchFrom(d models.DispatchConfirmation) dispatchRow {
	return dispatchRow{ID: d.ID, PickLineID: d.PickLineID, ActualBags: d.ActualBags, ActualLooseKg: d.ActualLooseKg, ActualTotalKg: d.ActualTotalKg, CreatedAt: d.CreatedAt}
}

func (r dispatchRow) model() models.DispatchConfirmation {
	return models.DispatchConfirmation{ID: r.ID, PickLineID: r.PickLineID, ActualBags: r.ActualBags, ActualLooseKg: r.ActualLooseKg, ActualTotalKg: r.ActualTotalKg, CreatedAt: r.CreatedAt}
}

func purchasePaymentFrom(p models.PurchasePayment) purchasePaymentRow {
	return purchasePaymentRow{ID: p.ID, LotID: p.LotID, Amount: p.Amount, PaymentDate: p.PaymentDate, Method: string(p.Method), Reference: p.Reference, CreatedAt: p.CreatedAt}
}

func (r purchasePaymentRow) model() models.PurchasePayment {
	return models.PurchasePayment{ID: r.ID, LotID: r.LotID, Amount: r.Amount, PaymentDate: r.PaymentDate, Method: models.PaymentMethod(r.Method), Reference: r.Reference, CreatedAt: r.CreatedAt}
}

func salesPaymentFrom(p models.SalesPayment) salesPaymentRow {
	return salesPaymentRow{ID: p.ID, OrderID: p.OrderID, Amount: p.Amount, PaymentDate: p.PaymentDate, Method: string(p.Method), Reference: p.Reference, CreatedAt: p.CreatedAt}
}

func (r salesPaymentRow) model() models.SalesPayment {
	return models.SalesPayment{ID: r.ID, OrderID: r.OrderID, Amount: r.Amount, PaymentDate: r.PaymentDate, Method: models.PaymentMethod(r.Method), Reference: r.Reference, CreatedAt: r.CreatedAt}
}
