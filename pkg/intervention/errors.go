package intervention

import (
	"errors"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
)

var (
	// ErrUnknownIntervention is returned for ids the book has never seen.
	ErrUnknownIntervention = errors.New("unknown intervention")

	// ErrAlreadyLabeled is returned when an outcome is written twice.
	ErrAlreadyLabeled = fmt.Errorf("intervention already labeled: %w", common.ErrInvariantViolation)

	// ErrInvalidTransition is returned when a status change skips a step.
	ErrInvalidTransition = fmt.Errorf("invalid intervention status transition: %w", common.ErrInvariantViolation)
)
