package ledger

import (
	"errors"
	"fmt"

	"github.com/mamadbah2/jaggery/internal/repository"
)

var (
	// ErrDuplicateLotNumber indicates another lot already uses the number, ignoring case.
	ErrDuplicateLotNumber = errors.New("lot number already exists")
	// ErrEmptyItemList indicates a lot was submitted without any item carrying quantity.
	ErrEmptyItemList = errors.New("lot must contain at least one item with quantity")
	// ErrExceedsAvailableStock indicates the requested weight is more than the lot item holds.
	ErrExceedsAvailableStock = errors.New("quantity exceeds available stock")
	// ErrEmptyQuantity indicates a zero weight reservation or packing.
	ErrEmptyQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidAmount indicates a payment amount that is zero or negative.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrInvalidRate indicates a sale rate that is not positive or a negative purchase rate.
	ErrInvalidRate = errors.New("invalid rate")
	// ErrPickLineNotFound indicates the pick line does not exist.
	ErrPickLineNotFound = errors.New("pick line not found")
	// ErrAlreadyPacked indicates the pick line has already been packed.
	ErrAlreadyPacked = errors.New("pick line already packed")
	// ErrNotFound indicates a referenced record does not exist.
	ErrNotFound = repository.ErrNotFound
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// unknownReference turns a missing master record into a validation failure
// on the field that referenced it.
func unknownReference(err error, field string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return invalid(field, "unknown reference")
	}
	return err
}
