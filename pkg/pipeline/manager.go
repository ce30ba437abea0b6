package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/action"
	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/feedback"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/monitor"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"
	"github.com/AccelByte/extend-casino-retention/pkg/predictor"
	"github.com/AccelByte/extend-casino-retention/pkg/signal"
)

// Store persists the chain's decisions. state.Store implements it.
type Store interface {
	RecordIntervention(ctx context.Context, iv intervention.Intervention) error
	UpdateDelivery(ctx context.Context, iv intervention.Intervention, at time.Time) error
	MarkChurned(ctx context.Context, actorID int, reason actor.ChurnReason, at time.Time) error
}

// Components are the stages of the chain. Store, Publisher and Metrics are
// optional.
type Components struct {
	Processor *signal.Processor
	Monitor   *monitor.Monitor
	Predictor *predictor.Predictor
	Designer  *intervention.Designer
	Validator *intervention.Validator
	Executor  *action.Executor
	Analyzer  *feedback.Analyzer
	Delays    feedback.Scheduler
	Book      *intervention.Book
	Store     Store
	Publisher observer.Publisher
	Metrics   *metrics.Metrics
}

// Manager orchestrates the intervention chain for every settled bet:
// Bet → Signal → Monitor → Predictor → Designer → Validator → Executor → Analyzer (delayed)
type Manager struct {
	c       Components
	routes  *Routes
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	inFlight map[int]struct{}
}

// NewManager creates a new pipeline manager with all required components.
// routes maps intervention types to the action IDs that deliver them.
func NewManager(c Components, routes *Routes, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if routes == nil {
		routes = NewRoutes()
	}
	if c.Publisher == nil {
		c.Publisher = observer.Nop{}
	}

	return &Manager{
		c:        c,
		routes:   routes,
		logger:   logger,
		metrics:  metrics.OrNew(c.Metrics),
		inFlight: make(map[int]struct{}),
	}
}

// HandleBet runs on the worker holding a. It records the bet, publishes churn
// and runs the intervention chain to completion before returning.
func (m *Manager) HandleBet(ctx context.Context, a *actor.Actor, ev actor.BetEvent) error {
	m.metrics.BetsTotal.Inc()
	m.c.Publisher.Publish(observer.KindBet, ev.ActorID, ev.Timestamp, ev)

	sig, err := m.c.Processor.Process(ctx, a.Snapshot(), ev)
	if err != nil {
		return fmt.Errorf("signal processing failed: %w", err)
	}

	if a.Churned {
		m.recordChurn(ctx, a)
		return nil
	}

	return m.RunChain(ctx, a, sig)
}

func (m *Manager) recordChurn(ctx context.Context, a *actor.Actor) {
	m.metrics.ChurnTotal.WithLabelValues(string(a.ChurnReason)).Inc()
	m.c.Publisher.Publish(observer.KindChurn, a.ID, a.ChurnedAt, map[string]any{
		"reason":       a.ChurnReason,
		"bankroll":     a.Bankroll,
		"intervention": a.InterventionID,
	})
	m.logger.Info("actor churned",
		slog.Int("actor_id", a.ID),
		slog.String("reason", string(a.ChurnReason)))

	if m.c.Store != nil {
		if err := m.c.Store.MarkChurned(ctx, a.ID, a.ChurnReason, a.ChurnedAt); err != nil {
			m.logger.Error("failed to record churn",
				slog.Int("actor_id", a.ID),
				slog.String("error", err.Error()))
		}
	}
}

func (m *Manager) acquire(actorID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[actorID]; busy {
		return fmt.Errorf("actor %d: %w", actorID, ErrChainInFlight)
	}
	m.inFlight[actorID] = struct{}{}
	return nil
}

func (m *Manager) release(actorID int) {
	m.mu.Lock()
	delete(m.inFlight, actorID)
	m.mu.Unlock()
}

// InFlight returns the number of chains currently running.
func (m *Manager) InFlight() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inFlight)
}

// RunChain evaluates sig and, when the actor is flagged, drives the flag to
// a resolution. Only invariant violations and cancellation are returned;
// every other failure resolves the flag and is logged.
func (m *Manager) RunChain(ctx context.Context, a *actor.Actor, sig signal.Signal) error {
	if err := m.acquire(a.ID); err != nil {
		return err
	}
	defer m.release(a.ID)

	scope := common.StartScope(ctx, "pipeline.chain", a.ID)
	defer scope.Finish()
	ctx = scope.Ctx

	flag, err := m.c.Monitor.Observe(ctx, sig)
	if err != nil {
		return scope.Fail(fmt.Errorf("monitor failed: %w", err))
	}
	if flag == nil {
		return nil
	}
	now := sig.Timestamp()

	a.Flagged = true
	scope.Tag("flag_id", flag.ID)
	scope.Tag("reason", flag.Reason)
	m.c.Publisher.Publish(observer.KindFlagged, a.ID, now, flag)

	return scope.Fail(m.escalate(ctx, scope, a, flag, sig, now))
}

func (m *Manager) escalate(ctx context.Context, scope *common.Scope, a *actor.Actor, flag *monitor.Flag, sig signal.Signal, now time.Time) error {
	snap := a.Snapshot()

	scope.Stage("risk_assessment")
	as := m.c.Predictor.Assess(ctx, flag.ID, snap, sig.Context().Window, now)
	m.c.Publisher.Publish(observer.KindRiskAssessed, a.ID, now, as)
	if !as.Escalate {
		m.logger.Debug("risk below threshold, dismissing flag",
			slog.Int("actor_id", a.ID),
			slog.String("flag_id", flag.ID),
			slog.Float64("score", as.Score))
		return m.dismiss(ctx, a, flag, monitor.Dismissed, now, "below_threshold")
	}

	scope.Stage("design")
	proposal, err := m.c.Designer.Design(ctx, as, snap, now)
	if err != nil {
		if errors.Is(err, common.ErrInvariantViolation) {
			return err
		}
		m.logger.Error("designer failed",
			slog.Int("actor_id", a.ID),
			slog.String("error", err.Error()))
		return m.dismiss(ctx, a, flag, monitor.Dismissed, now, "designer_error")
	}
	if proposal == nil {
		return m.dismiss(ctx, a, flag, monitor.Dismissed, now, "no_feasible_intervention")
	}
	m.c.Publisher.Publish(observer.KindInterventionProposed, a.ID, now, proposal)

	scope.Stage("validate")
	decision, err := m.c.Validator.Validate(ctx, *proposal, now)
	if err != nil {
		// the gate never opens on a storage failure
		m.logger.Error("compliance check failed, blocking proposal",
			slog.Int("actor_id", a.ID),
			slog.String("proposal_id", proposal.ID),
			slog.String("error", err.Error()))
		decision = intervention.Decision{Reasons: []string{"compliance_unavailable"}}
	}
	if !decision.Approved {
		m.metrics.Interventions.WithLabelValues("rejected").Inc()
		m.c.Publisher.Publish(observer.KindInterventionBlocked, a.ID, now, map[string]any{
			"proposal": proposal,
			"reasons":  decision.Reasons,
		})
		return m.dismiss(ctx, a, flag, monitor.Rejected, now, "")
	}

	iv := intervention.New(*proposal, now)
	if err := m.c.Book.Add(iv); err != nil {
		return err
	}
	m.metrics.Interventions.WithLabelValues(string(intervention.StatusApproved)).Inc()
	m.c.Publisher.Publish(observer.KindInterventionApproved, a.ID, now, iv)
	if m.c.Store != nil {
		if err := m.c.Store.RecordIntervention(ctx, *iv); err != nil {
			m.logger.Error("failed to record intervention",
				slog.String("intervention_id", iv.ID),
				slog.String("error", err.Error()))
		}
	}

	scope.Stage("deliver")
	return m.deliver(ctx, a, flag, iv, now)
}

func (m *Manager) deliver(ctx context.Context, a *actor.Actor, flag *monitor.Flag, iv *intervention.Intervention, now time.Time) error {
	actionID, ok := m.routes.ActionFor(iv.Type)
	var (
		result *action.ActionResult
		err    error
	)
	if !ok {
		err = fmt.Errorf("%w: %s", ErrNoRoute, iv.Type)
	} else {
		result, err = m.c.Executor.Deliver(ctx, actionID, *iv)
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		attempts := 0
		if result != nil {
			attempts = result.Attempts
		}
		if markErr := m.c.Book.MarkFailed(iv.ID, attempts, err.Error()); markErr != nil {
			return markErr
		}
		failed, _ := m.c.Book.Get(iv.ID)
		m.persistDelivery(ctx, failed, now)
		m.metrics.Interventions.WithLabelValues(string(intervention.StatusDeliveryFailed)).Inc()
		m.c.Publisher.Publish(observer.KindDeliveryFailed, a.ID, now, failed)
		m.logger.Warn("intervention delivery failed",
			slog.Int("actor_id", a.ID),
			slog.String("intervention_id", iv.ID),
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()))
		return m.dismiss(ctx, a, flag, monitor.DeliveryFailed, now, "")
	}

	if err := m.c.Book.MarkDelivered(iv.ID, result.Attempts, now); err != nil {
		return err
	}
	if err := a.MarkInterventionDelivered(iv.ID, string(iv.Type)); err != nil {
		return err
	}
	delivered, _ := m.c.Book.Get(iv.ID)
	m.persistDelivery(ctx, delivered, now)

	fireAt, err := m.c.Analyzer.Schedule(m.c.Delays, delivered)
	if err != nil {
		return fmt.Errorf("%v: %w", err, common.ErrInvariantViolation)
	}

	m.metrics.Interventions.WithLabelValues(string(intervention.StatusDelivered)).Inc()
	m.c.Publisher.Publish(observer.KindInterventionDelivered, a.ID, now, delivered)
	m.logger.Info("intervention delivered",
		slog.Int("actor_id", a.ID),
		slog.String("intervention_id", iv.ID),
		slog.String("type", string(iv.Type)),
		slog.Float64("amount", iv.Amount),
		slog.Int("attempts", result.Attempts),
		slog.Time("analyze_at", fireAt))

	// the flag bit stays set until the outcome is labeled
	return m.c.Monitor.Resolve(ctx, flag, monitor.Delivered, now)
}

func (m *Manager) persistDelivery(ctx context.Context, iv intervention.Intervention, now time.Time) {
	if m.c.Store == nil {
		return
	}
	if err := m.c.Store.UpdateDelivery(ctx, iv, now); err != nil {
		m.logger.Error("failed to record delivery",
			slog.String("intervention_id", iv.ID),
			slog.String("error", err.Error()))
	}
}

// dismiss resolves the flag without an outstanding intervention and clears
// the actor's flagged bit.
func (m *Manager) dismiss(ctx context.Context, a *actor.Actor, flag *monitor.Flag, res monitor.Resolution, now time.Time, why string) error {
	a.Flagged = false
	if res == monitor.Dismissed {
		m.c.Publisher.Publish(observer.KindFlagDismissed, a.ID, now, map[string]any{
			"flagId": flag.ID,
			"why":    why,
		})
	}
	return m.c.Monitor.Resolve(ctx, flag, res, now)
}

// Stats returns pipeline statistics (for observability).
type Stats struct {
	OpenFlags     int            `json:"openFlags"`
	ChainsRunning int            `json:"chainsRunning"`
	Interventions map[string]int `json:"interventions"`
}

// GetStats returns current pipeline statistics.
func (m *Manager) GetStats() Stats {
	counts := m.c.Book.Counts()
	byStatus := make(map[string]int, len(counts))
	for s, n := range counts {
		byStatus[string(s)] = n
	}
	return Stats{
		OpenFlags:     m.c.Monitor.OpenFlags(),
		ChainsRunning: m.InFlight(),
		Interventions: byStatus,
	}
}
