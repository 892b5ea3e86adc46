// Package repository defines the persistence collaborator used by the ledger.
// Backends live in the memory, mongodb and postgres subpackages.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/jaggery/internal/domain/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientStock is returned when a conditional stock decrement
	// finds less stock than requested.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict is returned when a guarded write matched no rows because
	// the record changed state.
	ErrConflict = errors.New("record state changed")
)

// ErrorKind classifies storage failures into causes a user can act on.
type ErrorKind string

const (
	KindUniqueness  ErrorKind = "uniqueness"
	KindReferential ErrorKind = "referential"
	KindMalformed   ErrorKind = "malformed"
	KindGeneric     ErrorKind = "generic"
)

// PersistenceError wraps a backend failure with its classified cause.
type PersistenceError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s conflict: %v", e.Op, e.Kind, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// UserMessage returns the operator-facing explanation for the failure.
func (e *PersistenceError) UserMessage() string {
	switch e.Kind {
	case KindUniqueness:
		return "This record already exists. Please use a different value."
	case KindReferential:
		return "Cannot delete this record as it is being used elsewhere."
	case KindMalformed:
		return "Invalid data format. Please check your inputs."
	default:
		return "An error occurred. Please try again."
	}
}

// NewPersistenceError builds a PersistenceError, returning nil for a nil err.
func NewPersistenceError(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Kind: kind, Err: err}
}

// IsKind reports whether err is a PersistenceError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *PersistenceError
	return errors.As(err, &pe) && pe.Kind == kind
}

// LotItemFilter narrows lot item listings. Zero values match everything.
type LotItemFilter struct {
	LotID       string
	ProductID   string
	InStockOnly bool
}

// PickLineFilter narrows pick line listings. Zero values match everything.
type PickLineFilter struct {
	OrderID   string
	LotItemID string
	Status    models.PickStatus
}

// Reader exposes the read side of the store.
type Reader interface {
	GetFarmer(ctx context.Context, id string) (models.Farmer, error)
	ListFarmers(ctx context.Context) ([]models.Farmer, error)
	GetCustomer(ctx context.Context, id string) (models.Customer, error)
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetWarehouse(ctx context.Context, id string) (models.Warehouse, error)
	ListWarehouses(ctx context.Context) ([]models.Warehouse, error)

	GetLot(ctx context.Context, id string) (models.Lot, error)
	ListLots(ctx context.Context) ([]models.Lot, error)
	FindLotsByNumber(ctx context.Context, number string) ([]models.Lot, error)
	GetLotItem(ctx context.Context, id string) (models.LotItem, error)
	ListLotItems(ctx context.Context, filter LotItemFilter) ([]models.LotItem, error)

	GetSalesOrder(ctx context.Context, id string) (models.SalesOrder, error)
	ListSalesOrders(ctx context.Context) ([]models.SalesOrder, error)
	GetPickLine(ctx context.Context, id string) (models.PickLine, error)
	ListPickLines(ctx context.Context, filter PickLineFilter) ([]models.PickLine, error)
	ListDispatches(ctx context.Context, pickLineID string) ([]models.DispatchConfirmation, error)

	ListPurchasePayments(ctx context.Context, lotID string) ([]models.PurchasePayment, error)
	ListSalesPayments(ctx context.Context, orderID string) ([]models.SalesPayment, error)

	GetSettings(ctx context.Context) (models.Settings, error)
}

// Tx is the write side of the store, valid only inside RunInTransaction.
type Tx interface {
	Reader

	SaveFarmer(ctx context.Context, farmer models.Farmer) error
	DeleteFarmer(ctx context.Context, id string) error
	SaveCustomer(ctx context.Context, customer models.Customer) error
	DeleteCustomer(ctx context.Context, id string) error
	SaveProduct(ctx context.Context, product models.Product) error
	DeleteProduct(ctx context.Context, id string) error
	SaveWarehouse(ctx context.Context, warehouse models.Warehouse) error
	DeleteWarehouse(ctx context.Context, id string) error

	CreateLot(ctx context.Context, lot models.Lot) error
	CreateLotItems(ctx context.Context, items []models.LotItem) error
	DeleteLot(ctx context.Context, id string) error
	// LockLotItem reads a lot item and holds it against concurrent writers
	// until the transaction ends.
	LockLotItem(ctx context.Context, id string) (models.LotItem, error)
	// DecrementLotItemStock subtracts kg only when at least kg remains,
	// otherwise it returns ErrInsufficientStock.
	DecrementLotItemStock(ctx context.Context, id string, kg decimal.Decimal) (models.LotItem, error)

	CreateSalesOrder(ctx context.Context, order models.SalesOrder) error
	// LockSalesOrder reads an order and holds it against concurrent status
	// changes until the transaction ends.
	LockSalesOrder(ctx context.Context, id string) (models.SalesOrder, error)
	UpdateSalesOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
	CreatePickLine(ctx context.Context, line models.PickLine) error
	// MarkPickLinePacked stores the packed quantities only while the line is
	// still To Be Packed, otherwise it returns ErrConflict.
	MarkPickLinePacked(ctx context.Context, line models.PickLine) error
	CreateDispatch(ctx context.Context, dispatch models.DispatchConfirmation) error

	CreatePurchasePayment(ctx context.Context, payment models.PurchasePayment) error
	CreateSalesPayment(ctx context.Context, payment models.SalesPayment) error

	SaveSettings(ctx context.Context, settings models.Settings) error
}

// Store is the persistence collaborator consumed by the ledger services.
type Store interface {
	Reader
	// RunInTransaction executes fn atomically: either every write made
	// through tx lands or none does.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close(ctx context.Context) error
}
