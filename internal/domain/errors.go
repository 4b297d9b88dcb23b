package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuantity indicates a line quantity outside the allowed bounds.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 100")

	// ErrInsufficientStock indicates the requested quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConflict indicates a uniqueness or usage-limit conflict.
	ErrConflict = errors.New("conflict")

	// ErrForbidden indicates the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstream indicates the payment gateway failed or answered unexpectedly.
	ErrUpstream = errors.New("upstream failure")
)
