// Package predictor scores a flagged actor's churn risk from the outcomes of
// similar past cases.
package predictor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Config tunes the risk scorer.
type Config struct {
	K            int           `yaml:"k"`
	MinNeighbors int           `yaml:"min_neighbors"`
	Prior        float64       `yaml:"prior"`
	Threshold    float64       `yaml:"threshold"`
	Window       int           `yaml:"window"`
	Timeout      time.Duration `yaml:"timeout"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		K:            10,
		MinNeighbors: 3,
		Prior:        0.5,
		Threshold:    0.70,
		Window:       20,
		Timeout:      500 * time.Millisecond,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.K <= 0 {
		return fmt.Errorf("k must be positive")
	}
	if c.MinNeighbors < 0 || c.MinNeighbors > c.K {
		return fmt.Errorf("min_neighbors must be between 0 and k")
	}
	if c.Prior < 0 || c.Prior > 1 {
		return fmt.Errorf("prior must be in [0,1]")
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("threshold must be in [0,1]")
	}
	if c.Window <= 0 {
		return fmt.Errorf("window must be positive")
	}
	return nil
}

// Assessment is the predictor's verdict on one flag.
type Assessment struct {
	ID               string    `json:"id"`
	FlagID           string    `json:"flagId"`
	ActorID          int       `json:"actorId"`
	Score            float64   `json:"score"`
	Neighbors        int       `json:"neighbors"`
	NeighborsChurned int       `json:"neighborsChurned"`
	Evidence         []string  `json:"evidence"`
	LowConfidence    bool      `json:"lowConfidence"`
	Degraded         bool      `json:"degraded"`
	Escalate         bool      `json:"escalate"`
	Vector           []float64 `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Predictor runs k-nearest-neighbor queries against the corpus.
type Predictor struct {
	cfg     Config
	store   similarity.Store
	metrics *metrics.Metrics
}

// New creates a predictor. m may be nil.
func New(cfg Config, store similarity.Store, m *metrics.Metrics) *Predictor {
	return &Predictor{cfg: cfg, store: store, metrics: metrics.OrNew(m)}
}

// Config returns the predictor tuning.
func (p *Predictor) Config() Config {
	return p.cfg
}

// Assess scores one flag. It never fails: a store error or timeout falls back
// to the prior, marked low confidence and degraded.
func (p *Predictor) Assess(ctx context.Context, flagID string, snap actor.Snapshot, window []actor.BetEvent, now time.Time) Assessment {
	if len(window) > p.cfg.Window {
		window = window[len(window)-p.cfg.Window:]
	}
	vec := Features(snap, window)

	as := Assessment{
		ID:        uuid.NewString(),
		FlagID:    flagID,
		ActorID:   snap.ID,
		Vector:    vec,
		CreatedAt: now,
	}

	qctx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	neighbors, err := p.store.Query(qctx, vec, p.cfg.K)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"actor_id": snap.ID,
			"flag_id":  flagID,
			"degraded": "similarity_prior",
		}).WithError(err).Warn("similarity query failed, using prior")
		as.Degraded = true
		neighbors = nil
	}

	p.score(&as, neighbors)
	p.record(as)
	return as
}

func (p *Predictor) score(as *Assessment, neighbors []similarity.Neighbor) {
	as.Neighbors = len(neighbors)
	as.Evidence = make([]string, 0, len(neighbors))
	for _, n := range neighbors {
		as.Evidence = append(as.Evidence, n.ID)
		if n.Label == similarity.LabelChurned {
			as.NeighborsChurned++
		}
	}

	if len(neighbors) < p.cfg.MinNeighbors || len(neighbors) == 0 {
		as.Score = p.cfg.Prior
		as.LowConfidence = true
	} else {
		as.Score = float64(as.NeighborsChurned) / float64(len(neighbors))
	}
	as.Escalate = as.Score >= p.cfg.Threshold
}

func (p *Predictor) record(as Assessment) {
	confidence := "normal"
	if as.LowConfidence {
		confidence = "low"
	}
	p.metrics.Assessments.WithLabelValues(confidence, strconv.FormatBool(as.Escalate)).Inc()
	p.metrics.RiskScore.Observe(as.Score)
}
