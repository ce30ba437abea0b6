package intervention

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// Rejection reasons, in the order they are checked.
const (
	ReasonUnknownJurisdiction = "unknown_jurisdiction"
	ReasonExcluded            = "excluded"
	ReasonCoolingOff          = "cooling_off"
	ReasonMinGap              = "min_gap"
	ReasonTypeNotAllowed      = "type_not_allowed"
	ReasonDailyCap            = "daily_cap"
	ReasonMonthlyCap          = "monthly_cap"
)

// Jurisdiction holds the regulatory limits of one market.
type Jurisdiction struct {
	Name         string        `yaml:"name"`
	MonthlyCap   float64       `yaml:"monthly_cap"`
	DailyCap     float64       `yaml:"daily_cap"`
	AllowedTypes []Type        `yaml:"allowed_types"`
	MinGap       time.Duration `yaml:"min_gap"`
}

// Allows reports whether t may be offered in the jurisdiction.
func (j Jurisdiction) Allows(t Type) bool {
	for _, a := range j.AllowedTypes {
		if a == t {
			return true
		}
	}
	return false
}

// ComplianceState is an actor's compliance record as of one instant. The
// totals cover the calendar day and month of that instant.
type ComplianceState struct {
	ActorID         int       `json:"actorId"`
	Jurisdiction    string    `json:"jurisdiction"`
	Excluded        bool      `json:"excluded"`
	CoolingOffUntil time.Time `json:"coolingOffUntil,omitempty"`
	LastApprovedAt  time.Time `json:"lastApprovedAt,omitempty"`
	DailyTotal      float64   `json:"dailyTotal"`
	MonthlyTotal    float64   `json:"monthlyTotal"`
}

// Decision is the outcome of a compliance check. A rejection is a value,
// not an error.
type Decision struct {
	Approved bool     `json:"approved"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Approval is appended to the actor's compliance history on approval.
type Approval struct {
	ProposalID string    `json:"proposalId"`
	ActorID    int       `json:"actorId"`
	Type       Type      `json:"type"`
	Amount     float64   `json:"amount"`
	At         time.Time `json:"at"`
}

// ComplianceStore persists compliance state. Apply must read the state,
// call decide and, on approval, add the amount to the day and month totals,
// stamp LastApprovedAt and append the approval, all atomically.
type ComplianceStore interface {
	Enroll(ctx context.Context, st ComplianceState) error
	Load(ctx context.Context, actorID int, now time.Time) (ComplianceState, error)
	Apply(ctx context.Context, a Approval, decide func(ComplianceState) Decision) (Decision, error)
}

// Evaluate is the pure compliance decision. It has no side effects.
func Evaluate(p Proposal, st ComplianceState, jurisdictions map[string]Jurisdiction, now time.Time) Decision {
	j, ok := jurisdictions[st.Jurisdiction]
	if !ok {
		return Decision{Reasons: []string{ReasonUnknownJurisdiction}}
	}

	var reasons []string
	if st.Excluded {
		reasons = append(reasons, ReasonExcluded)
	}
	if now.Before(st.CoolingOffUntil) {
		reasons = append(reasons, ReasonCoolingOff)
	}
	if j.MinGap > 0 && !st.LastApprovedAt.IsZero() && now.Sub(st.LastApprovedAt) < j.MinGap {
		reasons = append(reasons, ReasonMinGap)
	}
	if !j.Allows(p.Type) {
		reasons = append(reasons, ReasonTypeNotAllowed)
	}
	if st.DailyTotal+p.Amount > j.DailyCap {
		reasons = append(reasons, ReasonDailyCap)
	}
	if st.MonthlyTotal+p.Amount > j.MonthlyCap {
		reasons = append(reasons, ReasonMonthlyCap)
	}
	return Decision{Approved: len(reasons) == 0, Reasons: reasons}
}

// Validator gates proposals against the compliance store.
type Validator struct {
	jurisdictions map[string]Jurisdiction
	store         ComplianceStore
	metrics       *metrics.Metrics
}

// NewValidator creates a validator.
func NewValidator(jurisdictions map[string]Jurisdiction, store ComplianceStore, m *metrics.Metrics) *Validator {
	return &Validator{jurisdictions: jurisdictions, store: store, metrics: metrics.OrNew(m)}
}

// Validate decides p and, on approval, records it in the same atomic step.
// The error is reserved for storage failures.
func (v *Validator) Validate(ctx context.Context, p Proposal, now time.Time) (Decision, error) {
	approval := Approval{ProposalID: p.ID, ActorID: p.ActorID, Type: p.Type, Amount: p.Amount, At: now}
	decision, err := v.store.Apply(ctx, approval, func(st ComplianceState) Decision {
		return Evaluate(p, st, v.jurisdictions, now)
	})
	if err != nil {
		return Decision{}, fmt.Errorf("compliance check for proposal %s: %w", p.ID, err)
	}

	log := logrus.WithFields(logrus.Fields{
		"actor_id":    p.ActorID,
		"proposal_id": p.ID,
		"type":        p.Type,
		"amount":      p.Amount,
		"stage":       "validator",
	})
	if !decision.Approved {
		for _, r := range decision.Reasons {
			v.metrics.ComplianceRejections.WithLabelValues(r).Inc()
		}
		log.WithField("reasons", decision.Reasons).Info("proposal blocked")
		return decision, nil
	}
	log.Info("proposal approved")
	return decision, nil
}
