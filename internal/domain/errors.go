package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique field clash or a reference that blocks the change.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidRequest indicates the payload is well-formed but not acceptable.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInsufficientStock indicates a line item asks for more units than are available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidTransition indicates a disallowed order status change.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnauthorized indicates a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller acting on something it does not own.
	ErrForbidden = errors.New("forbidden")
)

// NotFound wraps ErrNotFound with the entity kind and id.
func NotFound(entity string, id int64) error {
	return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
}

// InvalidRequest wraps ErrInvalidRequest with a reason.
func InvalidRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// Conflict wraps ErrAlreadyExists with a reason.
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrAlreadyExists, reason)
}

// InsufficientStockError names the line item that could not be reserved.
type InsufficientStockError struct {
	ProductID int64
	VariantID *int64
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("insufficient stock for variant '%s' (product %d, variant %d): requested %d, available %d",
			e.Name, e.ProductID, *e.VariantID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product '%s' (product %d): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
