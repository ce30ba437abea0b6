package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/service"
)

// Deliverer is a mock delivery channel that fails at a configured rate.
type Deliverer struct {
	// DeliverFunc is called when Deliver is invoked, overriding the failure rate.
	DeliverFunc func(ctx context.Context, d service.Delivery) error

	// FailureRate is the probability that an attempt is rejected.
	FailureRate float64

	mu          sync.Mutex
	rng         *rand.Rand
	calls       []service.Delivery
	preferences map[int]service.ContactPreferences
}

// NewDeliverer creates a mock channel with a deterministic random source.
func NewDeliverer(failureRate float64, seed int64) *Deliverer {
	return &Deliverer{
		FailureRate: failureRate,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// SetPreferences records how a player may be contacted. Message-only
// deliveries to players without preferences are let through.
func (m *Deliverer) SetPreferences(p service.ContactPreferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.preferences == nil {
		m.preferences = make(map[int]service.ContactPreferences)
	}
	m.preferences[p.ActorID] = p
}

// Deliver implements service.Deliverer. A message-only delivery to an
// unreachable player fails with service.ErrNotContactable before the
// failure roll, so reachable players see the same random sequence.
func (m *Deliverer) Deliver(ctx context.Context, d service.Delivery) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.calls = append(m.calls, d)
	if p, ok := m.preferences[d.ActorID]; ok && d.Type == string(intervention.MessageOnly) && !p.Reachable() {
		m.mu.Unlock()
		return fmt.Errorf("intervention %s to actor %d: %w", d.InterventionID, d.ActorID, service.ErrNotContactable)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(1))
	}
	fail := m.FailureRate > 0 && m.rng.Float64() < m.FailureRate
	m.mu.Unlock()

	if m.DeliverFunc != nil {
		return m.DeliverFunc(ctx, d)
	}
	if fail {
		return fmt.Errorf("intervention %s attempt %d: %w", d.InterventionID, d.Attempt, service.ErrDeliveryRejected)
	}
	return nil
}

// Calls returns every delivery attempt seen so far.
func (m *Deliverer) Calls() []service.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]service.Delivery(nil), m.calls...)
}

// Reset clears all call tracking
func (m *Deliverer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// AssertDelivered verifies an intervention reached the channel.
func (m *Deliverer) AssertDelivered(interventionID string) error {
	for _, call := range m.Calls() {
		if call.InterventionID == interventionID {
			return nil
		}
	}
	return fmt.Errorf("expected delivery of intervention %s, but got calls: %v", interventionID, m.Calls())
}
