package action

import (
	"context"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
)

// Action delivers an approved intervention over one channel.
// Actions are registered in a Registry and executed by the Executor.
type Action interface {
	// ID returns unique action identifier.
	ID() string

	// Name returns human-readable action name.
	Name() string

	// Carries returns the intervention type this channel delivers.
	Carries() intervention.Type

	// Execute makes one delivery attempt. attempt starts at 1.
	// Wrap errors that retrying cannot fix with backoff.Permanent.
	Execute(ctx context.Context, iv intervention.Intervention, attempt int) error

	// Config returns the action's configuration.
	Config() ActionConfig
}

// ActionResult represents the outcome of an action execution.
type ActionResult struct {
	ActionID string
	Success  bool
	Attempts int
	Error    error
	Metadata map[string]interface{}
}

// NewActionResult creates a successful action result.
func NewActionResult(actionID string, attempts int) *ActionResult {
	return &ActionResult{
		ActionID: actionID,
		Success:  true,
		Attempts: attempts,
		Metadata: make(map[string]interface{}),
	}
}

// NewActionError creates a failed action result with an error.
func NewActionError(actionID string, attempts int, err error) *ActionResult {
	return &ActionResult{
		ActionID: actionID,
		Success:  false,
		Attempts: attempts,
		Error:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithMetadata adds metadata to the result and returns it for chaining.
func (r *ActionResult) WithMetadata(key string, value interface{}) *ActionResult {
	r.Metadata[key] = value
	return r
}
