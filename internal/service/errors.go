package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyOrder           = errors.New("empty order: basket has no items")
	ErrQuantityInvalid      = errors.New("quantity must be > 0")
	ErrPriceInvalid         = errors.New("unit price must be non-negative")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPaymentRequired      = errors.New("payment confirmation required before status can advance")
	ErrAlreadyCancelled     = errors.New("order already cancelled")
)

// FieldError names a single invalid shipping/billing field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries field-level problems with the checkout input.
// Surfaced inline to the user, never retried automatically.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// PersistenceError wraps a storage failure during order creation or update.
// The caller decides whether to retry; a retried create must reuse the same
// idempotency key.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func persistErr(op string, err error) error {
	return &PersistenceError{Op: op, Err: err}
}
