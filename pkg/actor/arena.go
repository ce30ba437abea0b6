package actor

import (
	"fmt"
	"math/rand"
	"time"
)

// Arena owns every actor of a run, addressed by a stable integer id.
// The slice never changes after construction, so lookups need no lock.
type Arena struct {
	actors []*Actor
}

// PopulationConfig controls how a population is drawn.
type PopulationConfig struct {
	Size          int
	Seed          int64
	Jurisdictions []string
	// ExcludedShare of actors start self-excluded.
	ExcludedShare float64
}

// NewArena wraps an existing set of actors. Ids must equal slice positions.
func NewArena(actors []*Actor) (*Arena, error) {
	for i, a := range actors {
		if a.ID != i {
			return nil, fmt.Errorf("actor at position %d has id %d", i, a.ID)
		}
	}
	return &Arena{actors: actors}, nil
}

// Populate draws a population by archetype weight. It also returns the ids
// picked for self-exclusion so the caller can seed compliance state.
func Populate(cfg PopulationConfig, now time.Time) (*Arena, []int) {
	r := rand.New(rand.NewSource(cfg.Seed))
	actors := make([]*Actor, cfg.Size)
	var excluded []int

	for i := 0; i < cfg.Size; i++ {
		profile := DrawProfile(r)
		jurisdiction := ""
		if len(cfg.Jurisdictions) > 0 {
			jurisdiction = cfg.Jurisdictions[r.Intn(len(cfg.Jurisdictions))]
		}
		a := New(i, profile, jurisdiction, now, cfg.Seed+int64(i)+1)
		// spread first bets so actors do not all fire on the first tick
		a.NextBetAt = now.Add(time.Duration(r.Int63n(int64(10 * time.Second))))
		actors[i] = a

		if r.Float64() < cfg.ExcludedShare {
			excluded = append(excluded, i)
		}
	}

	return &Arena{actors: actors}, excluded
}

// Get returns the actor with id.
func (ar *Arena) Get(id int) (*Actor, error) {
	if id < 0 || id >= len(ar.actors) {
		return nil, fmt.Errorf("actor %d: %w", id, ErrUnknownActor)
	}
	return ar.actors[id], nil
}

// All returns every actor. Callers must not reorder the slice.
func (ar *Arena) All() []*Actor {
	return ar.actors
}

// Len returns the population size.
func (ar *Arena) Len() int {
	return len(ar.actors)
}

// Stats summarizes the population. Only call it while no worker is running.
type Stats struct {
	Active        int                    `json:"active"`
	Churned       int                    `json:"churned"`
	Flagged       int                    `json:"flagged"`
	Interventions int                    `json:"interventions"`
	ByState       map[EmotionalState]int `json:"byState"`
}

// Stats counts actors by lifecycle and state.
func (ar *Arena) Stats() Stats {
	s := Stats{ByState: make(map[EmotionalState]int)}
	for _, a := range ar.actors {
		if a.Churned {
			s.Churned++
			continue
		}
		s.Active++
		s.ByState[a.State]++
		if a.Flagged {
			s.Flagged++
		}
		if a.InterventionID != "" {
			s.Interventions++
		}
	}
	return s
}
