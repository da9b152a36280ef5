package errors

import (
	"errors"
	"fmt"
)

var (
	// Bridge boundary errors
	ErrUnknownEvent   = errors.New("unknown native event")
	ErrMalformedEvent = errors.New("malformed native event")

	// Listener registry errors
	ErrNilListener           = errors.New("listener is nil")
	ErrListenerNotComparable = errors.New("listener type is not comparable")
	ErrEventSourceAttach     = errors.New("failed to attach to native event source")

	// Native module errors
	ErrNativeModuleUnavailable = errors.New("native module unavailable")
	ErrPromoPurchaseNotFound   = errors.New("no intercepted purchase for callback id")
	ErrPurchaserInfoNotFound   = errors.New("purchaser info not found")

	// ErrUserCancelled matches a PurchasesError whose UserCancelled flag is set
	ErrUserCancelled = errors.New("purchase cancelled by user")
)

// NotFoundError wraps an error with not found context
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found: %v", e.Entity, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// EventError annotates a boundary decoding failure with the event name
type EventError struct {
	Event string
	Err   error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("event '%s': %v", e.Event, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}
