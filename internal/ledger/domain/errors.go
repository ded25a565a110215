package domain

import "errors"

var (
	ErrItemNotFound      = errors.New("ledger: item not found")
	ErrOrderNotFound     = errors.New("ledger: order not found")
	ErrPartitionNotFound = errors.New("ledger: partition has no items or orders")
	ErrAlreadyExists     = errors.New("ledger: item already exists in partition")
	ErrConflict          = errors.New("ledger: concurrent write conflict, retry")
	ErrInvalidQuantity   = errors.New("ledger: quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("ledger: price cannot be negative")
	ErrInvalidStock      = errors.New("ledger: stock cannot be negative")
	ErrInvalidStatus     = errors.New("ledger: unknown order status")
	ErrInvalidUnitType   = errors.New("ledger: unknown unit type")
	ErrInvalidPartition  = errors.New("ledger: invalid partition key")
	ErrTotalMismatch     = errors.New("ledger: order total does not match its line items")
	ErrEmptyOrder        = errors.New("ledger: order has no line items")
	ErrInvalidItemID     = errors.New("ledger: item id is required")
)

// IsNotFound reports whether err is one of the recoverable not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrPartitionNotFound)
}

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidQuantity,
		ErrInvalidPrice,
		ErrInvalidStock,
		ErrInvalidStatus,
		ErrInvalidUnitType,
		ErrInvalidPartition,
		ErrEmptyOrder,
		ErrInvalidItemID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
