// Package intervention designs, gates and tracks retention offers.
package intervention

import (
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
)

// Type is the kind of retention offer.
type Type string

const (
	MessageOnly Type = "message_only"
	FreeSpins   Type = "free_spins"
	Cashback    Type = "cashback"
)

// Types lists every type from cheapest to most expensive.
func Types() []Type {
	return []Type{MessageOnly, FreeSpins, Cashback}
}

// Cost ranks types for tie breaking; lower is cheaper.
func (t Type) Cost() int {
	switch t {
	case MessageOnly:
		return 0
	case FreeSpins:
		return 1
	case Cashback:
		return 2
	}
	return 99
}

// Monetary reports whether the type carries an amount.
func (t Type) Monetary() bool {
	return t == FreeSpins || t == Cashback
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t.Cost() < 99
}

// Status tracks an approved intervention through delivery and labeling.
type Status string

const (
	StatusApproved       Status = "approved"
	StatusDelivered      Status = "delivered"
	StatusDeliveryFailed Status = "delivery_failed"
	StatusClosed         Status = "closed"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDeliveryFailed || s == StatusClosed
}

// Proposal is the Designer's output. It becomes an Intervention only once
// the Validator approves it.
type Proposal struct {
	ID           string               `json:"id"`
	FlagID       string               `json:"flagId"`
	AssessmentID string               `json:"assessmentId"`
	ActorID      int                  `json:"actorId"`
	Type         Type                 `json:"type"`
	Amount       float64              `json:"amount"`
	RiskScore    float64              `json:"riskScore"`
	SuccessRate  float64              `json:"successRate"`
	Archetype    actor.Archetype      `json:"archetype"`
	State        actor.EmotionalState `json:"state"`
	Rationale    string               `json:"rationale"`
	Message      string               `json:"message"`
	Vector       []float64            `json:"-"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// StatsKey returns the outcome statistics bucket of the proposal.
func (p Proposal) StatsKey() StatsKey {
	return StatsKey{Archetype: p.Archetype, State: p.State, Type: p.Type}
}

// Intervention is an approved proposal.
type Intervention struct {
	Proposal
	Status      Status           `json:"status"`
	Attempts    int              `json:"attempts"`
	ApprovedAt  time.Time        `json:"approvedAt"`
	DeliveredAt time.Time        `json:"deliveredAt,omitempty"`
	FailureNote string           `json:"failureNote,omitempty"`
	Outcome     similarity.Label `json:"outcome,omitempty"`
	OutcomeAt   time.Time        `json:"outcomeAt,omitempty"`
}

// New creates an approved intervention from p.
func New(p Proposal, approvedAt time.Time) *Intervention {
	return &Intervention{Proposal: p, Status: StatusApproved, ApprovedAt: approvedAt}
}
