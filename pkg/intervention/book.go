package intervention

import (
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
)

// Book is the in-memory ledger of interventions. All status changes go
// through it so they are checked and serialized in one place.
type Book struct {
	mu    sync.Mutex
	items map[string]*Intervention
}

// NewBook creates an empty ledger.
func NewBook() *Book {
	return &Book{items: make(map[string]*Intervention)}
}

// Add stores iv. Adding an id twice is an invariant violation.
func (b *Book) Add(iv *Intervention) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.items[iv.ID]; ok {
		return fmt.Errorf("add intervention %s: %w", iv.ID, ErrInvalidTransition)
	}
	b.items[iv.ID] = iv
	return nil
}

// Get returns a copy of the intervention.
func (b *Book) Get(id string) (Intervention, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	iv, ok := b.items[id]
	if !ok {
		return Intervention{}, fmt.Errorf("%s: %w", id, ErrUnknownIntervention)
	}
	return *iv, nil
}

// MarkDelivered moves an approved intervention to delivered.
func (b *Book) MarkDelivered(id string, attempts int, at time.Time) error {
	return b.transition(id, StatusApproved, func(iv *Intervention) {
		iv.Status = StatusDelivered
		iv.Attempts = attempts
		iv.DeliveredAt = at
	})
}

// MarkFailed moves an approved intervention to delivery_failed.
func (b *Book) MarkFailed(id string, attempts int, note string) error {
	return b.transition(id, StatusApproved, func(iv *Intervention) {
		iv.Status = StatusDeliveryFailed
		iv.Attempts = attempts
		iv.FailureNote = note
	})
}

// Label closes a delivered intervention with its outcome. A second call
// returns ErrAlreadyLabeled and leaves the first label in place.
func (b *Book) Label(id string, label similarity.Label, at time.Time) (Intervention, error) {
	var out Intervention
	b.mu.Lock()
	defer b.mu.Unlock()

	iv, ok := b.items[id]
	if !ok {
		return out, fmt.Errorf("%s: %w", id, ErrUnknownIntervention)
	}
	if iv.Outcome != "" {
		return *iv, fmt.Errorf("%s labeled %s: %w", id, iv.Outcome, ErrAlreadyLabeled)
	}
	if iv.Status != StatusDelivered {
		return *iv, fmt.Errorf("label %s in status %s: %w", id, iv.Status, ErrInvalidTransition)
	}
	iv.Outcome = label
	iv.OutcomeAt = at
	iv.Status = StatusClosed
	return *iv, nil
}

// Counts returns the number of interventions per status.
func (b *Book) Counts() map[Status]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts := make(map[Status]int)
	for _, iv := range b.items {
		counts[iv.Status]++
	}
	return counts
}

func (b *Book) transition(id string, from Status, apply func(*Intervention)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	iv, ok := b.items[id]
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrUnknownIntervention)
	}
	if iv.Status != from {
		return fmt.Errorf("%s is %s, want %s: %w", id, iv.Status, from, ErrInvalidTransition)
	}
	apply(iv)
	return nil
}
