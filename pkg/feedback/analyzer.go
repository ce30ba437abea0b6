// Package feedback closes the loop: it grades each delivered intervention a
// fixed delay after delivery and feeds the label back to the corpus and the
// outcome statistics.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/observer"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
	"github.com/AccelByte/extend-casino-retention/pkg/simulation"

	"github.com/sirupsen/logrus"
)

// DefaultDelay is how long after delivery an intervention is graded.
const DefaultDelay = 24 * time.Hour

// Config tunes the Analyzer.
type Config struct {
	Delay time.Duration `yaml:"delay"`
}

// DefaultConfig returns the 24 hour grading delay.
func DefaultConfig() Config {
	return Config{Delay: DefaultDelay}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Delay <= 0 {
		return fmt.Errorf("analyzer delay must be positive, got %s", c.Delay)
	}
	return nil
}

// LabelStore is the relational mirror of labels and statistics.
type LabelStore interface {
	LabelIntervention(ctx context.Context, id string, actorID int, label similarity.Label, at time.Time) error
	SaveOutcomeStat(ctx context.Context, key intervention.StatsKey, t intervention.Tally) error
}

// Scheduler queues delayed tasks. A scheduled grading is never withdrawn by
// the pipeline.
type Scheduler interface {
	Schedule(id string, at time.Time, task simulation.Task) error
}

// Result is what one grading produced.
type Result struct {
	InterventionID string                `json:"interventionId"`
	AssessmentID   string                `json:"assessmentId"`
	ActorID        int                   `json:"actorId"`
	Type           intervention.Type     `json:"type"`
	Label          similarity.Label      `json:"label"`
	Tally          intervention.Tally    `json:"tally"`
	Key            intervention.StatsKey `json:"-"`
}

// Analyzer grades delivered interventions.
type Analyzer struct {
	cfg       Config
	arena     *actor.Arena
	book      *intervention.Book
	corpus    similarity.Store
	stats     *intervention.OutcomeStats
	store     LabelStore
	publisher observer.Publisher
	metrics   *metrics.Metrics
}

// Dependencies wires the Analyzer. Store, Publisher and Metrics are optional.
type Dependencies struct {
	Arena     *actor.Arena
	Book      *intervention.Book
	Corpus    similarity.Store
	Stats     *intervention.OutcomeStats
	Store     LabelStore
	Publisher observer.Publisher
	Metrics   *metrics.Metrics
}

// New creates an Analyzer.
func New(cfg Config, deps Dependencies) *Analyzer {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = observer.Nop{}
	}
	return &Analyzer{
		cfg:       cfg,
		arena:     deps.Arena,
		book:      deps.Book,
		corpus:    deps.Corpus,
		stats:     deps.Stats,
		store:     deps.Store,
		publisher: publisher,
		metrics:   metrics.OrNew(deps.Metrics),
	}
}

// Delay returns the grading delay.
func (a *Analyzer) Delay() time.Duration {
	return a.cfg.Delay
}

// TaskID names the delayed task of an intervention.
func TaskID(interventionID string) string {
	return "analyze:" + interventionID
}

// Schedule queues the grading of a delivered intervention at DeliveredAt + delay.
func (a *Analyzer) Schedule(q Scheduler, iv intervention.Intervention) (time.Time, error) {
	if iv.Status != intervention.StatusDelivered {
		return time.Time{}, fmt.Errorf("schedule analysis of %s in status %s: %w",
			iv.ID, iv.Status, intervention.ErrInvalidTransition)
	}
	at := iv.DeliveredAt.Add(a.cfg.Delay)
	id := iv.ID
	err := q.Schedule(TaskID(id), at, func(ctx context.Context, now time.Time) error {
		_, err := a.Evaluate(ctx, id, now)
		return err
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule analysis of %s: %w", id, err)
	}
	return at, nil
}

// Evaluate grades one intervention: churned if the actor has churned by now,
// retained otherwise. It must run while no worker holds the actor. A second
// call returns intervention.ErrAlreadyLabeled and writes nothing.
func (a *Analyzer) Evaluate(ctx context.Context, interventionID string, now time.Time) (*Result, error) {
	iv, err := a.book.Get(interventionID)
	if err != nil {
		return nil, err
	}
	act, err := a.arena.Get(iv.ActorID)
	if err != nil {
		return nil, err
	}

	label := similarity.LabelRetained
	if act.Churned {
		label = similarity.LabelChurned
	}

	iv, err = a.book.Label(interventionID, label, now)
	if err != nil {
		return nil, err
	}
	retained := label == similarity.LabelRetained
	// the book is authoritative; everything after this only mirrors the label
	act.CloseIntervention(iv.ID, retained)

	log := logrus.WithFields(logrus.Fields{
		"intervention_id": iv.ID,
		"actor_id":        iv.ActorID,
		"stage":           "analyzer",
		"label":           label,
	})

	if err := a.writeCorpus(ctx, iv, label, now); err != nil {
		log.WithError(err).WithField("degraded", "corpus_write_skipped").Warn("similarity upsert failed")
	}

	key := iv.StatsKey()
	tally := a.stats.Record(key, retained)

	if a.store != nil {
		if err := a.store.LabelIntervention(ctx, iv.ID, iv.ActorID, label, now); err != nil {
			log.WithError(err).WithField("degraded", mirrorState(err)).Error("failed to persist label")
		}
		if err := a.store.SaveOutcomeStat(ctx, key, tally); err != nil {
			log.WithError(err).Error("failed to persist outcome statistics")
		}
	}

	result := &Result{
		InterventionID: iv.ID,
		AssessmentID:   iv.AssessmentID,
		ActorID:        iv.ActorID,
		Type:           iv.Type,
		Label:          label,
		Tally:          tally,
		Key:            key,
	}
	a.metrics.Outcomes.WithLabelValues(string(label)).Inc()
	a.publisher.Publish(observer.KindOutcomeLabeled, iv.ActorID, now, result)

	log.WithFields(logrus.Fields{
		"trials":       tally.Trials,
		"success_rate": tally.SuccessRate(),
	}).Info("intervention outcome labeled")
	return result, nil
}

// writeCorpus upserts the labeled assessment vector, keyed by assessment id.
func (a *Analyzer) writeCorpus(ctx context.Context, iv intervention.Intervention, label similarity.Label, now time.Time) error {
	if len(iv.Vector) == 0 {
		return fmt.Errorf("%s: %w", iv.ID, ErrNoVector)
	}
	return a.corpus.Upsert(ctx, similarity.Record{
		ID:     iv.AssessmentID,
		Vector: iv.Vector,
		Label:  label,
		Metadata: map[string]string{
			"intervention_id": iv.ID,
			"archetype":       string(iv.Archetype),
			"state":           string(iv.State),
			"type":            string(iv.Type),
		},
		CreatedAt: now,
	})
}

// mirrorState names how the relational copy diverged from the book.
func mirrorState(err error) string {
	switch {
	case errors.Is(err, intervention.ErrUnknownIntervention):
		return "label_row_missing"
	case errors.Is(err, intervention.ErrAlreadyLabeled):
		return "label_row_already_set"
	default:
		return "label_write_failed"
	}
}
