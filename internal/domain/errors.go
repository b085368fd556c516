package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("product is not available")
	ErrOwnership    = errors.New("cannot act on your own product")
	ErrDuplicate    = errors.New("product already in cart")
	ErrValidation   = errors.New("purchase validation failed")
	ErrTransaction  = errors.New("purchase transaction failed")
	ErrWrite        = errors.New("write failed")
	ErrRead         = errors.New("read failed")
	ErrCartClear    = errors.New("cart clear failed")
	ErrInvalidState = errors.New("invalid product state")
	ErrInvalidInput = errors.New("invalid input")

	// Backend classes, carried alongside ErrRead / ErrWrite.
	ErrPermissionDenied   = errors.New("permission denied")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Reasons attached to InvalidItem.
const (
	ReasonNotFound    = "not_found"
	ReasonUnavailable = "unavailable"
	ReasonOwnProduct  = "own_product"
	ReasonDuplicate   = "duplicate"
)

type InvalidItem struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// ValidationError is returned when the purchase validation gate rejects a batch.
// Nothing has been mutated when it is returned.
type ValidationError struct {
	Items []InvalidItem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Items))
	for i, it := range e.Items {
		parts[i] = it.ProductID + " (" + it.Reason + ")"
	}
	return fmt.Sprintf("some items are no longer available for purchase: %s", strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransactionError reports the item whose commit failed. Committed holds the purchases
// that were durably written before the failure.
type TransactionError struct {
	ProductID string
	Committed []*Purchase
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("purchase transaction failed for product %s: %v", e.ProductID, e.Err)
}

func (e *TransactionError) Is(target error) bool {
	return target == ErrTransaction
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// BackendError is a generic store failure. Kind is ErrRead or ErrWrite, Class is
// ErrPermissionDenied, ErrBackendUnavailable or nil for unknown.
type BackendError struct {
	Op    string
	Kind  error
	Class error
	Err   error
}

func (e *BackendError) Error() string {
	if e.Class != nil {
		return fmt.Sprintf("%s: %v (%v): %v", e.Op, e.Kind, e.Class, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Class != nil {
		errs = append(errs, e.Class)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewReadError(op string, class, err error) error {
	return &BackendError{Op: op, Kind: ErrRead, Class: class, Err: err}
}

func NewWriteError(op string, class, err error) error {
	return &BackendError{Op: op, Kind: ErrWrite, Class: class, Err: err}
}

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
