package utils

import (
	"errors"
	"fmt"
)

var ErrorRecordNotFound = errors.New("record not found")

// ValidationError rejects malformed input before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidTransitionError is returned when a status change violates the
// lifecycle state machine. No partial mutation is committed.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}

func NewInvalidTransitionError(entity, from, to string) error {
	return &InvalidTransitionError{Entity: entity, From: from, To: to}
}

func IsInvalidTransitionError(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// InsufficientStockError is a policy rejection: the projected stock
// level would go negative and backorders are not allowed.
type InsufficientStockError struct {
	ProductId int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductId, e.Requested, e.Available)
}

func IsInsufficientStockError(err error) bool {
	var se *InsufficientStockError
	return errors.As(err, &se)
}

// ConcurrencyConflictError signals an optimistic-lock collision. Callers
// may retry the whole operation.
type ConcurrencyConflictError struct {
	Resource string
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s, retry", e.Resource)
}

func IsConcurrencyConflictError(err error) bool {
	var ce *ConcurrencyConflictError
	return errors.As(err, &ce)
}

// ExternalServiceError wraps a payment-provider or relay dependency
// failure. The local record keeps a pending/failed sub-state; an
// external job retries. Never silently dropped.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("external service %s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func IsExternalServiceError(err error) bool {
	var ee *ExternalServiceError
	return errors.As(err, &ee)
}
