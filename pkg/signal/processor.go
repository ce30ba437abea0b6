package signal

import (
	"context"
	"fmt"
	"sync"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"

	"github.com/sirupsen/logrus"
)

// WindowStore keeps the most recent bets of each actor.
// This allows for easier testing and different storage implementations.
type WindowStore interface {
	Append(ctx context.Context, ev actor.BetEvent, max int) error
	Recent(ctx context.Context, actorID int, n int) ([]actor.BetEvent, error)
}

// Processor converts settled bets into signals with enriched context.
type Processor struct {
	windows WindowStore
	size    int
}

// NewProcessor creates a processor keeping size bets per actor.
func NewProcessor(windows WindowStore, size int) *Processor {
	if size <= 0 {
		size = 20
	}
	return &Processor{windows: windows, size: size}
}

// Process records ev in the actor's window and returns its signal.
func (p *Processor) Process(ctx context.Context, snap actor.Snapshot, ev actor.BetEvent) (Signal, error) {
	if ev.ActorID != snap.ID {
		return nil, fmt.Errorf("bet for actor %d processed with snapshot of actor %d", ev.ActorID, snap.ID)
	}

	if err := p.windows.Append(ctx, ev, p.size); err != nil {
		return nil, fmt.Errorf("failed to append bet for actor %d: %w", ev.ActorID, err)
	}
	window, err := p.windows.Recent(ctx, ev.ActorID, p.size)
	if err != nil {
		return nil, fmt.Errorf("failed to load window for actor %d: %w", ev.ActorID, err)
	}

	sig := NewBetSignal(ev, BuildPlayerContext(snap, window))
	logrus.Tracef("processed bet %d of actor %d into %s signal", ev.Seq, ev.ActorID, sig.Type())
	return sig, nil
}

// Window returns the current window of an actor.
func (p *Processor) Window(ctx context.Context, actorID int) ([]actor.BetEvent, error) {
	return p.windows.Recent(ctx, actorID, p.size)
}

// GetWindowStore returns the window store used by this processor.
func (p *Processor) GetWindowStore() WindowStore {
	return p.windows
}

// MemoryWindowStore keeps windows in process.
type MemoryWindowStore struct {
	mu      sync.Mutex
	windows map[int][]actor.BetEvent
}

// NewMemoryWindowStore creates an empty store.
func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{windows: make(map[int][]actor.BetEvent)}
}

// Append implements WindowStore.
func (m *MemoryWindowStore) Append(_ context.Context, ev actor.BetEvent, max int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := append(m.windows[ev.ActorID], ev)
	if len(w) > max {
		w = append([]actor.BetEvent(nil), w[len(w)-max:]...)
	}
	m.windows[ev.ActorID] = w
	return nil
}

// Recent implements WindowStore.
func (m *MemoryWindowStore) Recent(_ context.Context, actorID int, n int) ([]actor.BetEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.windows[actorID]
	if len(w) > n {
		w = w[len(w)-n:]
	}
	return append([]actor.BetEvent(nil), w...), nil
}
