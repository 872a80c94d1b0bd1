package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique key collision on create.
	ErrAlreadyExists = errors.New("already exists")
	// ErrLineItemNotFound is returned when a cart operation names an unknown line.
	ErrLineItemNotFound = errors.New("line item not found")
	// ErrInvalidItem rejects line items without a product id.
	ErrInvalidItem = errors.New("product id required")
	// ErrInvalidQuantity rejects quantities below one.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrStockExceeded rejects adds and increments past available stock.
	ErrStockExceeded = errors.New("requested quantity exceeds available stock")
	// ErrSessionExpired signals a missing, expired or rejected credential.
	// Callers must force logout rather than show an inline error.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is returned when the backend refuses an authenticated call.
	ErrForbidden = errors.New("forbidden")
	// ErrRejected is returned when the backend refuses a request as invalid.
	ErrRejected = errors.New("rejected by backend")
	// ErrUpstream covers transport failures and unexpected backend responses.
	ErrUpstream = errors.New("backend unavailable")
	// ErrEmptyCart is returned when checkout is attempted without items.
	ErrEmptyCart = errors.New("cart is empty")
)

// IsValidation reports whether err is a local validation failure that was
// detected before any state change or network call.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidItem) ||
		errors.Is(err, ErrStockExceeded) ||
		errors.Is(err, ErrLineItemNotFound)
}
