// Package monitor turns bet signals into flags. Deterministic rules run first;
// the oracle escalation rule is consulted only when none of them fire.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/rule"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Resolution is how a flag was closed.
type Resolution string

const (
	Accepted       Resolution = "accepted"
	Dismissed      Resolution = "dismissed"
	Rejected       Resolution = "rejected"
	Delivered      Resolution = "delivered"
	DeliveryFailed Resolution = "delivery_failed"
)

// Flag says an actor's recent behavior warrants a risk assessment.
type Flag struct {
	ID        string           `json:"id"`
	ActorID   int              `json:"actorId"`
	Timestamp time.Time        `json:"timestamp"`
	RuleID    string           `json:"ruleId"`
	Reason    string           `json:"reason"`
	Source    string           `json:"source"`
	Detail    string           `json:"detail,omitempty"`
	Evidence  []actor.BetEvent `json:"evidence"`
	Snapshot  actor.Snapshot   `json:"snapshot"`
}

// Recorder persists flags and their resolutions.
type Recorder interface {
	RecordFlag(ctx context.Context, f Flag) error
	ResolveFlag(ctx context.Context, flagID string, res Resolution, at time.Time) error
}

// Monitor keeps at most one open flag per actor.
type Monitor struct {
	engine   *rule.Engine
	recorder Recorder
	metrics  *metrics.Metrics

	mu   sync.Mutex
	open map[int]string
}

// New creates a monitor. recorder may be nil.
func New(engine *rule.Engine, recorder Recorder, m *metrics.Metrics) *Monitor {
	return &Monitor{
		engine:   engine,
		recorder: recorder,
		metrics:  metrics.OrNew(m),
		open:     make(map[int]string),
	}
}

// Observe evaluates sig and opens a flag when a rule fires. It returns nil
// when the actor is churned, already has an open flag or an outstanding
// intervention, or when no rule matches.
func (m *Monitor) Observe(ctx context.Context, sig signal.Signal) (*Flag, error) {
	pc := sig.Context()
	if pc == nil {
		return nil, fmt.Errorf("signal for actor %d has no player context", sig.ActorID())
	}
	snap := pc.Snapshot
	if snap.Churned || snap.InterventionID != "" {
		return nil, nil
	}
	if m.IsOpen(snap.ID) {
		m.metrics.FlagsDeduplicated.Inc()
		return nil, nil
	}

	trigger, err := m.engine.EvaluateFirst(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("evaluate rules for actor %d: %w", snap.ID, err)
	}
	if trigger == nil {
		return nil, nil
	}

	flag := Flag{
		ID:        uuid.NewString(),
		ActorID:   snap.ID,
		Timestamp: trigger.Timestamp,
		RuleID:    trigger.RuleID,
		Reason:    trigger.Reason,
		Source:    trigger.Source,
		Detail:    trigger.Detail,
		Evidence:  pc.Window,
		Snapshot:  snap,
	}

	m.mu.Lock()
	if _, exists := m.open[snap.ID]; exists {
		m.mu.Unlock()
		m.metrics.FlagsDeduplicated.Inc()
		return nil, nil
	}
	m.open[snap.ID] = flag.ID
	m.mu.Unlock()

	m.metrics.FlagsTotal.WithLabelValues(flag.Reason, flag.Source).Inc()
	logrus.WithFields(logrus.Fields{
		"actor_id": flag.ActorID,
		"flag_id":  flag.ID,
		"reason":   flag.Reason,
		"source":   flag.Source,
	}).Info("actor flagged")

	if m.recorder != nil {
		if err := m.recorder.RecordFlag(ctx, flag); err != nil {
			logrus.WithError(err).WithField("flag_id", flag.ID).Error("failed to record flag")
		}
	}
	return &flag, nil
}

// IsOpen reports whether the actor has an unresolved flag.
func (m *Monitor) IsOpen(actorID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.open[actorID]
	return ok
}

// Resolve closes the actor's open flag. Resolving a flag that is not open is
// an invariant violation.
func (m *Monitor) Resolve(ctx context.Context, f *Flag, res Resolution, at time.Time) error {
	m.mu.Lock()
	if id, ok := m.open[f.ActorID]; !ok || id != f.ID {
		m.mu.Unlock()
		return fmt.Errorf("resolve flag %s for actor %d: not open: %w", f.ID, f.ActorID, common.ErrInvariantViolation)
	}
	delete(m.open, f.ActorID)
	m.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"actor_id":   f.ActorID,
		"flag_id":    f.ID,
		"resolution": res,
	}).Debug("flag resolved")

	if m.recorder != nil {
		if err := m.recorder.ResolveFlag(ctx, f.ID, res, at); err != nil {
			logrus.WithError(err).WithField("flag_id", f.ID).Error("failed to record flag resolution")
		}
	}
	return nil
}

// OpenFlags returns the number of unresolved flags.
func (m *Monitor) OpenFlags() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}
