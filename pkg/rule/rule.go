package rule

import (
	"context"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

const (
	// SourceRule marks triggers raised by a deterministic rule.
	SourceRule = "rule"
	// SourceOracle marks triggers decided by the reasoning oracle.
	SourceOracle = "oracle"
)

// Rule evaluates signals and emits triggers when conditions are met.
// Rules are registered in a Registry and evaluated by the Engine.
type Rule interface {
	// ID returns unique rule identifier.
	ID() string

	// Name returns human-readable rule name.
	Name() string

	// SignalTypes returns which signal types this rule handles.
	// An empty slice means the rule handles all signal types.
	SignalTypes() []string

	// Evaluate checks if the signal matches rule conditions.
	// Returns true and trigger data if rule matches, false otherwise.
	// Returns error only for unexpected failures, not rule mismatches.
	Evaluate(ctx context.Context, sig signal.Signal) (bool, *Trigger, error)

	// Config returns the rule's configuration.
	Config() RuleConfig
}

// Trigger represents a rule match that should open a flag.
type Trigger struct {
	RuleID    string                 // ID of the rule that triggered
	ActorID   int                    // Player who triggered the rule
	Timestamp time.Time              // Simulated time of the triggering bet
	Reason    string                 // Flag reason, e.g. loss_streak or escalated
	Detail    string                 // Human-readable explanation
	Source    string                 // SourceRule or SourceOracle
	Metadata  map[string]interface{} // Rule-specific evidence
	Priority  int                    // Evaluation order (higher = first)
}

// NewTrigger creates a deterministic trigger for sig.
func NewTrigger(ruleID string, sig signal.Signal, reason string, priority int) *Trigger {
	return &Trigger{
		RuleID:    ruleID,
		ActorID:   sig.ActorID(),
		Timestamp: sig.Timestamp(),
		Reason:    reason,
		Source:    SourceRule,
		Metadata:  make(map[string]interface{}),
		Priority:  priority,
	}
}

// WithMetadata adds metadata to the trigger and returns it for chaining.
func (t *Trigger) WithMetadata(key string, value interface{}) *Trigger {
	t.Metadata[key] = value
	return t
}

// WithDetail sets the explanation and returns the trigger for chaining.
func (t *Trigger) WithDetail(detail string) *Trigger {
	t.Detail = detail
	return t
}
