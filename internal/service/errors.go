package service

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrOrderClosed        = errors.New("order is closed")
	ErrTotalMismatch      = errors.New("payment items do not add up to the order total")
	ErrUpstream           = errors.New("upstream service failed")
)

// ValidationError is a field-level input rejection
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
