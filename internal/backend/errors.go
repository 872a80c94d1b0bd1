package backend

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/buger/jsonparser"

	"storefront/internal/domain"
)

// APIError carries the status and message of a failed backend call. It
// unwraps to one of the domain sentinels.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("backend status %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// statusError maps a non-2xx response to an error. Session expiry is kept
// as a bare sentinel so callers can branch on it before anything else.
func statusError(status int, body []byte) error {
	msg := errorMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		return domain.ErrSessionExpired
	case status == http.StatusForbidden:
		return &APIError{Status: status, Message: msg, Err: domain.ErrForbidden}
	case status == http.StatusNotFound:
		return &APIError{Status: status, Message: msg, Err: domain.ErrNotFound}
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		return &APIError{Status: status, Message: msg, Err: domain.ErrRejected}
	default:
		return &APIError{Status: status, Message: msg, Err: domain.ErrUpstream}
	}
}

func transportError(err error) error {
	return &APIError{Message: err.Error(), Err: fmt.Errorf("%w: %w", domain.ErrUpstream, err)}
}

// errorMessage pulls a human readable message out of an error body.
func errorMessage(body []byte) string {
	for _, path := range [][]string{{"message"}, {"error", "message"}, {"error"}, {"detail"}} {
		if v, err := jsonparser.GetString(body, path...); err == nil && v != "" {
			return v
		}
	}
	return ""
}

// Message returns the backend message carried by err, if any.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}
