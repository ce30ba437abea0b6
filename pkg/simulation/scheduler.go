package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// BetHandler consumes every bet right after it is applied to the actor. It
// runs on the worker holding the actor, so it may read and mutate the actor.
type BetHandler interface {
	HandleBet(ctx context.Context, a *actor.Actor, ev actor.BetEvent) error
}

// BetHandlerFunc adapts a function to BetHandler.
type BetHandlerFunc func(ctx context.Context, a *actor.Actor, ev actor.BetEvent) error

// HandleBet implements BetHandler.
func (f BetHandlerFunc) HandleBet(ctx context.Context, a *actor.Actor, ev actor.BetEvent) error {
	return f(ctx, a, ev)
}

// Config controls the clock and the worker pool.
type Config struct {
	// Tick is the simulated time added per tick.
	Tick time.Duration
	// Interval paces ticks in wall time. Zero runs as fast as possible.
	Interval time.Duration
	// Duration stops the run after this much simulated time. Zero runs until
	// the context ends or every actor has churned.
	Duration time.Duration
	// Workers bounds how many actors are processed at once.
	Workers int
	// StatsEvery publishes population stats every n ticks. Zero disables it.
	StatsEvery int
}

// Scheduler owns the shared clock and fans each tick out over the arena.
type Scheduler struct {
	cfg     Config
	clock   *common.ManualClock
	arena   *actor.Arena
	gen     *Generator
	delays  *DelayQueue
	handler BetHandler
	obs     observer.Publisher
	metrics *metrics.Metrics
	ticks   int
	started time.Time
}

// NewScheduler wires a scheduler. obs and m may be nil.
func NewScheduler(cfg Config, clock *common.ManualClock, arena *actor.Arena, gen *Generator,
	delays *DelayQueue, handler BetHandler, obs observer.Publisher, m *metrics.Metrics) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if obs == nil {
		obs = observer.Nop{}
	}
	return &Scheduler{
		cfg:     cfg,
		clock:   clock,
		arena:   arena,
		gen:     gen,
		delays:  delays,
		handler: handler,
		obs:     obs,
		metrics: metrics.OrNew(m),
		started: clock.Now(),
	}
}

// Ticks returns how many ticks have completed.
func (s *Scheduler) Ticks() int {
	return s.ticks
}

// Tick advances the clock once, fires due delayed tasks, then processes
// every live actor with bounded parallelism.
func (s *Scheduler) Tick(ctx context.Context) error {
	start := time.Now()
	now := s.clock.Advance(s.cfg.Tick)

	// delayed tasks touch actors, so they run before any worker starts
	if _, err := s.delays.RunDue(ctx, now); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for _, a := range s.arena.All() {
		if a.Churned {
			continue
		}
		a := a
		g.Go(func() error {
			return s.advance(gctx, a, now)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.ticks++
	s.metrics.TickDuration.Observe(time.Since(start).Seconds())
	s.metrics.DelayedTasks.Set(float64(s.delays.Len()))

	if s.cfg.StatsEvery > 0 && s.ticks%s.cfg.StatsEvery == 0 {
		s.publishStats(now)
	}
	return nil
}

func (s *Scheduler) advance(ctx context.Context, a *actor.Actor, now time.Time) error {
	if !a.Claim() {
		return fmt.Errorf("actor %d claimed twice in one tick: %w", a.ID, common.ErrInvariantViolation)
	}
	defer a.Release()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev, err := s.gen.Step(a, now)
		if err != nil {
			return err
		}
		if ev == nil {
			return nil
		}
		if err := s.handler.HandleBet(ctx, a, *ev); err != nil {
			if errors.Is(err, common.ErrInvariantViolation) {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"actor_id": a.ID,
				"seq":      ev.Seq,
			}).WithError(err).Error("bet handling failed")
		}
	}
}

// Run ticks until the context ends, the configured duration passes or every
// actor has churned. Invariant violations stop the run with an error.
func (s *Scheduler) Run(ctx context.Context) error {
	var pace <-chan time.Time
	if s.cfg.Interval > 0 {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		pace = ticker.C
	}

	logrus.WithFields(logrus.Fields{
		"actors":  s.arena.Len(),
		"tick":    s.cfg.Tick,
		"workers": s.cfg.Workers,
	}).Info("simulation started")

	for {
		if s.cfg.Duration > 0 && !s.clock.Now().Before(s.started.Add(s.cfg.Duration)) {
			break
		}
		if s.arena.Stats().Active == 0 {
			logrus.Info("every actor has churned")
			break
		}

		if err := s.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}

		if pace != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-pace:
			}
		} else if ctx.Err() != nil {
			break
		}
	}

	s.publishStats(s.clock.Now())
	logrus.WithField("ticks", s.ticks).Info("simulation finished")
	return nil
}

func (s *Scheduler) publishStats(now time.Time) {
	stats := s.arena.Stats()
	s.metrics.ActiveActors.Set(float64(stats.Active))
	s.obs.Publish(observer.KindSimulationStats, -1, now, SimulationStats{
		Stats:        stats,
		Tick:         s.ticks,
		DelayedTasks: s.delays.Len(),
	})
}

// SimulationStats is the payload of a simulation_stats event.
type SimulationStats struct {
	actor.Stats
	Tick         int `json:"tick"`
	DelayedTasks int `json:"delayedTasks"`
}
