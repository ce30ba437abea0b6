package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
)

type memoryCompliance struct {
	jurisdiction    string
	excluded        bool
	coolingOffUntil time.Time
	lastApprovedAt  time.Time
	totals          map[string]float64
	approvals       []intervention.Approval
}

// MemoryComplianceStore is the in-process compliance store used when Redis
// is not configured. A single mutex serializes approvals.
type MemoryComplianceStore struct {
	mu     sync.Mutex
	actors map[int]*memoryCompliance
}

// NewMemoryComplianceStore creates an empty store.
func NewMemoryComplianceStore() *MemoryComplianceStore {
	return &MemoryComplianceStore{actors: make(map[int]*memoryCompliance)}
}

// Enroll implements intervention.ComplianceStore.
func (m *MemoryComplianceStore) Enroll(_ context.Context, st intervention.ComplianceState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.actors[st.ActorID]
	if !ok {
		rec = &memoryCompliance{totals: make(map[string]float64)}
		m.actors[st.ActorID] = rec
	}
	rec.jurisdiction = st.Jurisdiction
	rec.excluded = st.Excluded
	rec.coolingOffUntil = st.CoolingOffUntil
	return nil
}

// Load implements intervention.ComplianceStore.
func (m *MemoryComplianceStore) Load(_ context.Context, actorID int, now time.Time) (intervention.ComplianceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state(actorID, now)
}

// Apply implements intervention.ComplianceStore.
func (m *MemoryComplianceStore) Apply(_ context.Context, a intervention.Approval, decide func(intervention.ComplianceState) intervention.Decision) (intervention.Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.state(a.ActorID, a.At)
	if err != nil {
		return intervention.Decision{}, err
	}
	d := decide(st)
	if !d.Approved {
		return d, nil
	}

	rec := m.actors[a.ActorID]
	rec.totals[monthlyField(a.At)] = common.RoundMoney(rec.totals[monthlyField(a.At)] + a.Amount)
	rec.totals[dailyField(a.At)] = common.RoundMoney(rec.totals[dailyField(a.At)] + a.Amount)
	rec.lastApprovedAt = a.At
	rec.approvals = append(rec.approvals, a)
	return d, nil
}

// Approvals returns the recorded approvals of an actor, oldest first.
func (m *MemoryComplianceStore) Approvals(_ context.Context, actorID int) ([]intervention.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.actors[actorID]
	if !ok {
		return nil, fmt.Errorf("compliance for actor %d: %w", actorID, ErrUnknownActor)
	}
	return append([]intervention.Approval(nil), rec.approvals...), nil
}

func (m *MemoryComplianceStore) state(actorID int, now time.Time) (intervention.ComplianceState, error) {
	rec, ok := m.actors[actorID]
	if !ok {
		return intervention.ComplianceState{ActorID: actorID}, fmt.Errorf("compliance for actor %d: %w", actorID, ErrUnknownActor)
	}
	return intervention.ComplianceState{
		ActorID:         actorID,
		Jurisdiction:    rec.jurisdiction,
		Excluded:        rec.excluded,
		CoolingOffUntil: rec.coolingOffUntil,
		LastApprovedAt:  rec.lastApprovedAt,
		MonthlyTotal:    rec.totals[monthlyField(now)],
		DailyTotal:      rec.totals[dailyField(now)],
	}, nil
}
