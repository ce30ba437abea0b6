// Package oracle is the typed boundary to the external reasoning service.
package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
)

// ErrUnavailable wraps transport failures and non-2xx responses.
var ErrUnavailable = errors.New("oracle unavailable")

// FlagRequest is the context document sent for an ambiguous case.
type FlagRequest struct {
	ActorID           int                  `json:"actorId"`
	Archetype         actor.Archetype      `json:"archetype"`
	State             actor.EmotionalState `json:"state"`
	BankrollRatio     float64              `json:"bankrollRatio"`
	ConsecutiveLosses int                  `json:"consecutiveLosses"`
	BetsThisSession   int                  `json:"betsThisSession"`
	SessionNorm       int                  `json:"sessionNorm"`
	Trigger           string               `json:"trigger"`
	Window            []actor.BetEvent     `json:"window"`
}

// FlagVerdict is the oracle's answer to a FlagRequest.
type FlagVerdict struct {
	Flag   bool   `json:"flag"`
	Reason string `json:"reason"`
}

// ProposalRequest asks for the rationale and message of a chosen intervention.
type ProposalRequest struct {
	ActorID          int                  `json:"actorId"`
	Archetype        actor.Archetype      `json:"archetype"`
	State            actor.EmotionalState `json:"state"`
	RiskScore        float64              `json:"riskScore"`
	Neighbors        int                  `json:"neighbors"`
	NeighborsChurned int                  `json:"neighborsChurned"`
	Type             string               `json:"type"`
	Amount           float64              `json:"amount"`
	SuccessRate      float64              `json:"successRate"`
	PrefersFreeSpins bool                 `json:"prefersFreeSpins"`
}

// ProposalDraft carries the audit rationale and the player-facing text.
type ProposalDraft struct {
	Rationale string `json:"rationale"`
	Message   string `json:"message"`
}

// Client is implemented by every oracle backend.
type Client interface {
	Judge(ctx context.Context, req FlagRequest) (FlagVerdict, error)
	Compose(ctx context.Context, req ProposalRequest) (ProposalDraft, error)
}

// timed bounds every call with a fixed deadline and counts results.
type timed struct {
	next    Client
	timeout time.Duration
	metrics *metrics.Metrics
}

// WithTimeout wraps c so every call carries the deadline d. m may be nil.
func WithTimeout(c Client, d time.Duration, m *metrics.Metrics) Client {
	return &timed{next: c, timeout: d, metrics: metrics.OrNew(m)}
}

func (t *timed) Judge(ctx context.Context, req FlagRequest) (FlagVerdict, error) {
	ctx, cancel := t.deadline(ctx)
	defer cancel()
	v, err := t.next.Judge(ctx, req)
	t.count(ctx, "judge", err)
	return v, err
}

func (t *timed) Compose(ctx context.Context, req ProposalRequest) (ProposalDraft, error) {
	ctx, cancel := t.deadline(ctx)
	defer cancel()
	d, err := t.next.Compose(ctx, req)
	t.count(ctx, "compose", err)
	return d, err
}

func (t *timed) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *timed) count(ctx context.Context, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result = "timeout"
	default:
		result = "error"
	}
	t.metrics.OracleCalls.WithLabelValues(op, result).Inc()
}
