package intervention

import (
	"sync"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

// StatsKey buckets outcomes by who was helped, in what state, with what.
type StatsKey struct {
	Archetype actor.Archetype      `json:"archetype"`
	State     actor.EmotionalState `json:"state"`
	Type      Type                 `json:"type"`
}

// Tally counts labeled outcomes of one bucket.
type Tally struct {
	Trials    int `json:"trials"`
	Successes int `json:"successes"`
}

// SuccessRate is the Laplace smoothed rate, 0.5 for an empty tally.
func (t Tally) SuccessRate() float64 {
	return float64(t.Successes+1) / float64(t.Trials+2)
}

// OutcomeStats is safe for concurrent use.
type OutcomeStats struct {
	mu      sync.RWMutex
	tallies map[StatsKey]Tally
}

// NewOutcomeStats creates empty statistics.
func NewOutcomeStats() *OutcomeStats {
	return &OutcomeStats{tallies: make(map[StatsKey]Tally)}
}

// Record adds one labeled outcome and returns the updated tally.
func (s *OutcomeStats) Record(key StatsKey, retained bool) Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tallies[key]
	t.Trials++
	if retained {
		t.Successes++
	}
	s.tallies[key] = t
	return t
}

// Set replaces a tally, used when restoring from storage.
func (s *OutcomeStats) Set(key StatsKey, t Tally) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tallies[key] = t
}

// Get returns the tally for key.
func (s *OutcomeStats) Get(key StatsKey) Tally {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tallies[key]
}

// SuccessRate returns the smoothed success rate for key.
func (s *OutcomeStats) SuccessRate(key StatsKey) float64 {
	return s.Get(key).SuccessRate()
}

// All returns a copy of every tally.
func (s *OutcomeStats) All() map[StatsKey]Tally {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[StatsKey]Tally, len(s.tallies))
	for k, v := range s.tallies {
		out[k] = v
	}
	return out
}
