package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
	"github.com/AccelByte/extend-casino-retention/pkg/simulation"
	"github.com/AccelByte/extend-casino-retention/pkg/state"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// countingCorpus counts upserts per record id.
type countingCorpus struct {
	*similarity.MemoryStore
	mu      sync.Mutex
	upserts map[string]int
}

func newCountingCorpus() *countingCorpus {
	return &countingCorpus{MemoryStore: similarity.NewMemoryStore(), upserts: make(map[string]int)}
}

func (c *countingCorpus) Upsert(ctx context.Context, rec similarity.Record) error {
	c.mu.Lock()
	c.upserts[rec.ID]++
	c.mu.Unlock()
	return c.MemoryStore.Upsert(ctx, rec)
}

type fakeLabelStore struct {
	labels map[string]similarity.Label
	stats  map[intervention.StatsKey]intervention.Tally
}

func newFakeLabelStore() *fakeLabelStore {
	return &fakeLabelStore{
		labels: make(map[string]similarity.Label),
		stats:  make(map[intervention.StatsKey]intervention.Tally),
	}
}

func (f *fakeLabelStore) LabelIntervention(_ context.Context, id string, _ int, label similarity.Label, _ time.Time) error {
	if _, ok := f.labels[id]; ok {
		return intervention.ErrAlreadyLabeled
	}
	f.labels[id] = label
	return nil
}

func (f *fakeLabelStore) SaveOutcomeStat(_ context.Context, key intervention.StatsKey, t intervention.Tally) error {
	f.stats[key] = t
	return nil
}

type recordingPublisher struct {
	kinds []observer.Kind
}

func (p *recordingPublisher) Publish(kind observer.Kind, _ int, _ time.Time, _ any) {
	p.kinds = append(p.kinds, kind)
}

type fixture struct {
	analyzer  *Analyzer
	arena     *actor.Arena
	book      *intervention.Book
	corpus    *countingCorpus
	stats     *intervention.OutcomeStats
	store     *fakeLabelStore
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	profile, _ := actor.ProfileFor(actor.Steady)
	arena, err := actor.NewArena([]*actor.Actor{actor.New(0, profile, "malta", t0, 1)})
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	f := &fixture{
		arena:     arena,
		book:      intervention.NewBook(),
		corpus:    newCountingCorpus(),
		stats:     intervention.NewOutcomeStats(),
		store:     newFakeLabelStore(),
		publisher: &recordingPublisher{},
	}
	f.analyzer = New(DefaultConfig(), Dependencies{
		Arena:     arena,
		Book:      f.book,
		Corpus:    f.corpus,
		Stats:     f.stats,
		Store:     f.store,
		Publisher: f.publisher,
	})
	return f
}

// deliver books a delivered intervention for actor 0 and marks the actor.
func (f *fixture) deliver(t *testing.T, id string) intervention.Intervention {
	t.Helper()
	iv := intervention.New(intervention.Proposal{
		ID:           id,
		AssessmentID: "as-" + id,
		ActorID:      0,
		Type:         intervention.FreeSpins,
		Amount:       10,
		Archetype:    actor.Steady,
		State:        actor.Tilting,
		Vector:       []float64{0.1, 0.9, 0.3},
	}, t0)
	if err := f.book.Add(iv); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.book.MarkDelivered(id, 1, t0); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	a, _ := f.arena.Get(0)
	a.Flagged = true
	if err := a.MarkInterventionDelivered(id, string(iv.Type)); err != nil {
		t.Fatalf("MarkInterventionDelivered: %v", err)
	}
	got, _ := f.book.Get(id)
	return got
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
	if err := (Config{}).Validate(); err == nil {
		t.Error("Expected zero delay to be rejected")
	}
}

func TestEvaluate_Labels(t *testing.T) {
	tests := []struct {
		name      string
		churn     bool
		wantLabel similarity.Label
		wantTally intervention.Tally
		flagged   bool
	}{
		{"active actor is retained", false, similarity.LabelRetained, intervention.Tally{Trials: 1, Successes: 1}, false},
		{"churned actor is churned", true, similarity.LabelChurned, intervention.Tally{Trials: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			iv := f.deliver(t, "iv-1")
			a, _ := f.arena.Get(0)
			if tt.churn {
				a.Churn(actor.ChurnAbandoned, t0.Add(time.Hour))
			}

			res, err := f.analyzer.Evaluate(context.Background(), iv.ID, t0.Add(DefaultDelay))
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if res.Label != tt.wantLabel {
				t.Errorf("label = %s, want %s", res.Label, tt.wantLabel)
			}
			if res.Tally != tt.wantTally {
				t.Errorf("tally = %+v, want %+v", res.Tally, tt.wantTally)
			}
			if f.corpus.upserts["as-iv-1"] != 1 {
				t.Errorf("Expected exactly one upsert for the assessment, got %v", f.corpus.upserts)
			}
			if f.store.labels["iv-1"] != tt.wantLabel {
				t.Errorf("stored label = %s", f.store.labels["iv-1"])
			}
			if f.store.stats[iv.StatsKey()] != tt.wantTally {
				t.Errorf("stored tally = %+v", f.store.stats[iv.StatsKey()])
			}
			if a.InterventionID != "" {
				t.Errorf("Expected outstanding intervention cleared, got %q", a.InterventionID)
			}
			if a.Flagged != tt.flagged {
				t.Errorf("Flagged = %v, want %v", a.Flagged, tt.flagged)
			}
			got, _ := f.book.Get("iv-1")
			if got.Status != intervention.StatusClosed || got.Outcome != tt.wantLabel {
				t.Errorf("book entry = %s/%s", got.Status, got.Outcome)
			}
			if len(f.publisher.kinds) != 1 || f.publisher.kinds[0] != observer.KindOutcomeLabeled {
				t.Errorf("published %v", f.publisher.kinds)
			}
		})
	}
}

func TestEvaluate_SecondFireIsRejected(t *testing.T) {
	f := newFixture(t)
	iv := f.deliver(t, "iv-1")

	if _, err := f.analyzer.Evaluate(context.Background(), iv.ID, t0.Add(DefaultDelay)); err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}
	// The actor churns afterwards; the label must not flip.
	a, _ := f.arena.Get(0)
	a.Churn(actor.ChurnBankrupt, t0.Add(DefaultDelay+time.Hour))

	_, err := f.analyzer.Evaluate(context.Background(), iv.ID, t0.Add(2*DefaultDelay))
	if !errors.Is(err, intervention.ErrAlreadyLabeled) {
		t.Fatalf("second Evaluate = %v, want ErrAlreadyLabeled", err)
	}
	if !errors.Is(err, common.ErrInvariantViolation) {
		t.Error("Expected re-label to be an invariant violation")
	}

	got, _ := f.book.Get(iv.ID)
	if got.Outcome != similarity.LabelRetained {
		t.Errorf("label changed to %s", got.Outcome)
	}
	if f.corpus.upserts["as-iv-1"] != 1 {
		t.Errorf("Expected one upsert, got %d", f.corpus.upserts["as-iv-1"])
	}
	if tally := f.stats.Get(iv.StatsKey()); tally.Trials != 1 {
		t.Errorf("statistics double counted: %+v", tally)
	}
}

func TestEvaluate_NotDelivered(t *testing.T) {
	f := newFixture(t)
	iv := intervention.New(intervention.Proposal{ID: "iv-2", ActorID: 0, Type: intervention.MessageOnly}, t0)
	if err := f.book.Add(iv); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := f.book.MarkFailed("iv-2", 4, "rejected"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	if _, err := f.analyzer.Evaluate(context.Background(), "iv-2", t0); !errors.Is(err, intervention.ErrInvalidTransition) {
		t.Errorf("Evaluate = %v, want ErrInvalidTransition", err)
	}
	if _, err := f.analyzer.Evaluate(context.Background(), "missing", t0); !errors.Is(err, intervention.ErrUnknownIntervention) {
		t.Errorf("Evaluate(missing) = %v, want ErrUnknownIntervention", err)
	}
}

func TestEvaluate_CorpusFailureStillLabels(t *testing.T) {
	f := newFixture(t)
	iv := f.deliver(t, "iv-1")
	// A record with the same id already exists; the corpus refuses the write.
	if err := f.corpus.MemoryStore.Upsert(context.Background(), similarity.Record{
		ID: iv.AssessmentID, Vector: []float64{1}, Label: similarity.LabelChurned,
	}); err != nil {
		t.Fatalf("seed corpus: %v", err)
	}

	res, err := f.analyzer.Evaluate(context.Background(), iv.ID, t0.Add(DefaultDelay))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if res.Label != similarity.LabelRetained {
		t.Errorf("label = %s", res.Label)
	}
	if f.store.labels[iv.ID] != similarity.LabelRetained {
		t.Error("Expected label persisted despite corpus failure")
	}
}

func TestSchedule_FiresAfterDelay(t *testing.T) {
	f := newFixture(t)
	iv := f.deliver(t, "iv-1")
	q := simulation.NewDelayQueue()

	at, err := f.analyzer.Schedule(q, iv)
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if !at.Equal(t0.Add(DefaultDelay)) {
		t.Errorf("fire time = %v, want %v", at, t0.Add(DefaultDelay))
	}
	if _, err := f.analyzer.Schedule(q, iv); err == nil {
		t.Error("Expected duplicate schedule to fail")
	}

	ctx := context.Background()
	if ran, err := q.RunDue(ctx, t0.Add(DefaultDelay-time.Second)); err != nil || ran != 0 {
		t.Fatalf("early drain ran %d tasks, err %v", ran, err)
	}
	if ran, err := q.RunDue(ctx, t0.Add(DefaultDelay)); err != nil || ran != 1 {
		t.Fatalf("drain ran %d tasks, err %v", ran, err)
	}

	got, _ := f.book.Get(iv.ID)
	if got.Outcome != similarity.LabelRetained {
		t.Errorf("outcome = %q", got.Outcome)
	}
}

func TestSchedule_RequiresDelivered(t *testing.T) {
	f := newFixture(t)
	iv := intervention.New(intervention.Proposal{ID: "iv-3"}, t0)

	if _, err := f.analyzer.Schedule(simulation.NewDelayQueue(), *iv); !errors.Is(err, intervention.ErrInvalidTransition) {
		t.Errorf("Schedule = %v, want ErrInvalidTransition", err)
	}
}

func TestEvaluate_MissingRelationalRowIsDegraded(t *testing.T) {
	f := newFixture(t)
	store, err := state.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	// RecordIntervention failed earlier, so the row was never written.
	f.analyzer = New(DefaultConfig(), Dependencies{
		Arena:     f.arena,
		Book:      f.book,
		Corpus:    f.corpus,
		Stats:     f.stats,
		Store:     store,
		Publisher: f.publisher,
	})
	iv := f.deliver(t, "iv1")

	q := simulation.NewDelayQueue()
	if _, err := f.analyzer.Schedule(q, iv); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	ran, err := q.RunDue(context.Background(), t0.Add(DefaultDelay))
	if err != nil {
		t.Fatalf("RunDue = %v, want the run to continue", err)
	}
	if ran != 1 {
		t.Fatalf("ran %d tasks, want 1", ran)
	}

	a, _ := f.arena.Get(0)
	if a.InterventionID != "" || a.Flagged {
		t.Errorf("actor not released: InterventionID=%q Flagged=%v", a.InterventionID, a.Flagged)
	}
	got, _ := f.book.Get("iv1")
	if got.Outcome != similarity.LabelRetained {
		t.Errorf("book outcome = %q", got.Outcome)
	}
	if tally := f.stats.Get(iv.StatsKey()); tally.Trials != 1 {
		t.Errorf("tally = %+v", tally)
	}
}

func TestMirrorState(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{intervention.ErrUnknownIntervention, "label_row_missing"},
		{intervention.ErrAlreadyLabeled, "label_row_already_set"},
		{errors.New("disk full"), "label_write_failed"},
	}
	for _, tt := range tests {
		if got := mirrorState(tt.err); got != tt.want {
			t.Errorf("mirrorState(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}
