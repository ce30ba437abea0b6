package pipeline

import (
	"errors"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
)

var (
	// ErrChainInFlight is returned when a second chain starts for an actor
	// whose previous chain has not finished.
	ErrChainInFlight = fmt.Errorf("intervention chain already in flight: %w", common.ErrInvariantViolation)

	// ErrNoRoute is returned when no delivery action carries an intervention type.
	ErrNoRoute = errors.New("no delivery route for intervention type")
)
