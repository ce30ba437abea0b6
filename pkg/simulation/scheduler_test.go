package simulation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"
)

type betLog struct {
	mu   sync.Mutex
	seqs map[int][]int
	all  int
}

func (l *betLog) HandleBet(_ context.Context, a *actor.Actor, ev actor.BetEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seqs == nil {
		l.seqs = make(map[int][]int)
	}
	l.seqs[a.ID] = append(l.seqs[a.ID], ev.Seq)
	l.all++
	return nil
}

func newTestScheduler(t *testing.T, size int, cfg Config, handler BetHandler, obs observer.Publisher) (*Scheduler, *actor.Arena, *DelayQueue, *common.ManualClock) {
	t.Helper()
	arena, _ := actor.Populate(actor.PopulationConfig{Size: size, Seed: 11, Jurisdictions: []string{"malta"}}, t0)
	clock := common.NewManualClock(t0)
	delays := NewDelayQueue()
	s := NewScheduler(cfg, clock, arena, NewGenerator(DefaultGeneratorConfig()), delays, handler, obs, nil)
	return s, arena, delays, clock
}

func TestScheduler_TickProcessesEveryActor(t *testing.T) {
	log := &betLog{}
	s, arena, _, clock := newTestScheduler(t, 8, Config{Tick: time.Minute, Workers: 3}, log, nil)

	for i := 0; i < 5; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}

	if s.Ticks() != 5 || !clock.Now().Equal(t0.Add(5*time.Minute)) {
		t.Errorf("ticks=%d now=%v", s.Ticks(), clock.Now())
	}
	if log.all == 0 {
		t.Fatal("Expected bets")
	}
	for _, a := range arena.All() {
		seqs := log.seqs[a.ID]
		for i, seq := range seqs {
			if seq != i+1 {
				t.Fatalf("actor %d: seq %v not contiguous", a.ID, seqs)
			}
		}
		if !a.Churned && a.NextBetAt.Before(clock.Now()) {
			t.Errorf("actor %d has a bet due at %v after the tick", a.ID, a.NextBetAt)
		}
	}
}

func TestScheduler_DelayedTasksRunBeforeWorkers(t *testing.T) {
	var (
		mu     sync.Mutex
		fired  bool
		before int
	)
	handler := BetHandlerFunc(func(_ context.Context, _ *actor.Actor, ev actor.BetEvent) error {
		mu.Lock()
		defer mu.Unlock()
		if !fired && ev.Timestamp.After(t0.Add(time.Minute)) {
			before++
		}
		return nil
	})
	s, _, delays, _ := newTestScheduler(t, 4, Config{Tick: time.Minute, Workers: 2}, handler, nil)

	if err := delays.Schedule("late-task", t0.Add(90*time.Second), func(context.Context, time.Time) error {
		mu.Lock()
		fired = true
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick: %v", err)
		}
	}
	if !fired {
		t.Fatal("Expected delayed task to fire")
	}
	if before != 0 {
		t.Errorf("%d bets of the firing tick ran before the delayed task", before)
	}
	if delays.Len() != 0 {
		t.Errorf("Expected queue drained, %d left", delays.Len())
	}
}

func TestScheduler_InvariantStopsTick(t *testing.T) {
	handler := BetHandlerFunc(func(context.Context, *actor.Actor, actor.BetEvent) error {
		return fmt.Errorf("double label: %w", common.ErrInvariantViolation)
	})
	s, _, _, _ := newTestScheduler(t, 2, Config{Tick: time.Minute}, handler, nil)

	err := s.Tick(context.Background())
	if !errors.Is(err, common.ErrInvariantViolation) {
		t.Fatalf("Tick = %v, want invariant violation", err)
	}

	err = s.Run(context.Background())
	if !errors.Is(err, common.ErrInvariantViolation) {
		t.Fatalf("Run = %v, want invariant violation", err)
	}
}

func TestScheduler_HandlerErrorIsLogged(t *testing.T) {
	calls := 0
	handler := BetHandlerFunc(func(context.Context, *actor.Actor, actor.BetEvent) error {
		calls++
		return errors.New("store unavailable")
	})
	s, _, _, _ := newTestScheduler(t, 1, Config{Tick: time.Minute}, handler, nil)

	if err := s.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if calls < 2 {
		t.Errorf("Expected the actor to keep betting after a handler error, got %d calls", calls)
	}
}

type kindCounter struct {
	mu    sync.Mutex
	kinds map[observer.Kind]int
}

func (k *kindCounter) Publish(kind observer.Kind, _ int, _ time.Time, _ any) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.kinds == nil {
		k.kinds = make(map[observer.Kind]int)
	}
	k.kinds[kind]++
}

func TestScheduler_RunStopsAfterDuration(t *testing.T) {
	obs := &kindCounter{}
	s, _, _, clock := newTestScheduler(t, 3, Config{Tick: time.Minute, Duration: 10 * time.Minute, StatsEvery: 5}, &betLog{}, obs)

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Ticks() != 10 || !clock.Now().Equal(t0.Add(10*time.Minute)) {
		t.Errorf("ticks=%d now=%v", s.Ticks(), clock.Now())
	}
	// every 5 ticks plus the final summary
	if obs.kinds[observer.KindSimulationStats] != 3 {
		t.Errorf("stats events = %d, want 3", obs.kinds[observer.KindSimulationStats])
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ticks := 0
	handler := BetHandlerFunc(func(context.Context, *actor.Actor, actor.BetEvent) error { return nil })
	s, _, delays, _ := newTestScheduler(t, 2, Config{Tick: time.Minute}, handler, nil)
	var schedule func(context.Context, time.Time) error
	schedule = func(_ context.Context, now time.Time) error {
		ticks++
		if ticks == 3 {
			cancel()
			return nil
		}
		return delays.Schedule(fmt.Sprintf("tick-%d", ticks), now.Add(time.Minute), schedule)
	}
	if err := delays.Schedule("tick-0", t0.Add(time.Minute), schedule); err != nil {
		t.Fatal(err)
	}

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Ticks() > 3 {
		t.Errorf("Expected the run to stop after cancel, ran %d ticks", s.Ticks())
	}
}
