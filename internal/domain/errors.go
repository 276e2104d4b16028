package domain

import (
	"errors"
	"fmt"
)

// ErrNoPriceData is returned when the cache has never held any price data.
// It is the only upstream failure allowed to reach HTTP callers.
var ErrNoPriceData = errors.New("no price data available")

// ErrDuplicateSubscription is returned when an email is already actively
// subscribed to the newsletter.
var ErrDuplicateSubscription = errors.New("email already subscribed")

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError describes a rejected request parameter. The web layer maps
// it to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
