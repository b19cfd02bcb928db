package relay

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned when a connection id is registered twice.
	ErrAlreadyExists = errors.New("relay: connection already registered")

	// ErrNotFound is returned for operations on a connection that is not registered.
	ErrNotFound = errors.New("relay: connection not found")

	// ErrInvalidID is returned for empty connection or room identifiers.
	ErrInvalidID = errors.New("relay: identifier must not be empty")

	// ErrConnectionClosed is returned when a connection that is closing receives a join.
	ErrConnectionClosed = errors.New("relay: connection is closing")
)

// DeliveryError records why a single recipient did not get an envelope.
type DeliveryError struct {
	ConnID string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("relay: delivery to %s failed: %v", e.ConnID, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// TransitionError indicates a lifecycle event that is not valid in the
// connection's current state.
type TransitionError struct {
	ConnID string
	From   State
	To     State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("relay: connection %s cannot move from %s to %s", e.ConnID, e.From, e.To)
}
