package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySale             = errors.New("sale resolves to no lines")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrDuplicateInvoiceID    = errors.New("duplicate invoice id")
	ErrIDGenerationExhausted = errors.New("invoice id generation exhausted retries")

	ErrPartNotFound     = errors.New("part not found")
	ErrComboNotFound    = errors.New("combo not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// InsufficientStockError reports the exact per-part shortfall so callers can
// tell the user what was missing. No stock was changed when it is returned.
type InsufficientStockError struct {
	PartID    int64
	Required  int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for part %d: required %d, available %d",
		e.PartID, e.Required, e.Available)
}

// IncompatibleComponentsError carries the first compatibility rule a
// proposed combo violated. Rules are checked in a fixed order so the reason
// is deterministic for a given line set.
type IncompatibleComponentsError struct {
	Reason string
}

func (e *IncompatibleComponentsError) Error() string {
	return "incompatible components: " + e.Reason
}

// PersistenceError wraps any storage failure that is not a duplicate invoice
// id. It always means the surrounding transaction was rolled back.
type PersistenceError struct {
	Cause error
}

func (e *PersistenceError) Error() string {
	return "persistence failure: " + e.Cause.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
