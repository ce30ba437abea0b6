package action

import (
	"errors"
	"fmt"
)

var (
	// ErrActionNotFound indicates that a requested action doesn't exist in the registry.
	ErrActionNotFound = errors.New("action not found in registry")

	// ErrInvalidConfig indicates that an action's configuration is invalid.
	ErrInvalidConfig = errors.New("invalid action configuration")

	// ErrMaxRetriesExceeded indicates that an action failed after all retry attempts.
	ErrMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")

	// ErrWrongChannel indicates an intervention was routed to a channel that
	// carries a different type.
	ErrWrongChannel = fmt.Errorf("intervention routed to the wrong channel: %w", ErrInvalidConfig)

	// ErrMissingDeliverer indicates that a channel has no delivery collaborator.
	ErrMissingDeliverer = errors.New("missing delivery collaborator")
)
