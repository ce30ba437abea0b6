package intervention

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/common"
	"github.com/AccelByte/extend-casino-retention/pkg/metrics"
	"github.com/AccelByte/extend-casino-retention/pkg/oracle"
	"github.com/AccelByte/extend-casino-retention/pkg/predictor"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DesignerConfig bounds what an offer may cost.
type DesignerConfig struct {
	// MaxLTVFraction caps a monetary amount at this share of lifetime value.
	MaxLTVFraction float64 `yaml:"max_ltv_fraction"`
	// MinAmount is the smallest monetary amount worth offering.
	MinAmount float64 `yaml:"min_amount"`
}

// DefaultDesignerConfig returns the stock bounds.
func DefaultDesignerConfig() DesignerConfig {
	return DesignerConfig{MaxLTVFraction: 0.10, MinAmount: 5}
}

// Validate checks the bounds.
func (c DesignerConfig) Validate() error {
	if c.MaxLTVFraction <= 0 || c.MaxLTVFraction > 1 {
		return fmt.Errorf("designer max_ltv_fraction must be in (0,1], got %v", c.MaxLTVFraction)
	}
	if c.MinAmount < 0 {
		return fmt.Errorf("designer min_amount must not be negative, got %v", c.MinAmount)
	}
	return nil
}

// Designer picks the intervention type and amount for an at-risk actor.
type Designer struct {
	cfg     DesignerConfig
	stats   *OutcomeStats
	oracle  oracle.Client
	metrics *metrics.Metrics
}

// NewDesigner creates a designer. client may be nil, in which case the
// templated rationale is used.
func NewDesigner(cfg DesignerConfig, stats *OutcomeStats, client oracle.Client, m *metrics.Metrics) *Designer {
	return &Designer{cfg: cfg, stats: stats, oracle: client, metrics: metrics.OrNew(m)}
}

// Budget is the largest monetary amount the actor's lifetime value allows.
func (d *Designer) Budget(p actor.Profile) float64 {
	return common.RoundMoney(p.LTV * d.cfg.MaxLTVFraction)
}

// Candidates returns the types the actor may receive, cheapest first.
func (d *Designer) Candidates(snap actor.Snapshot) []Type {
	affordable := d.Budget(snap.Profile) >= d.cfg.MinAmount
	var out []Type
	for _, t := range Types() {
		if string(t) == snap.LastInterventionType {
			continue
		}
		if t.Monetary() && !affordable {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Design proposes an intervention. It returns nil without error when no type
// is feasible for the actor.
func (d *Designer) Design(ctx context.Context, as predictor.Assessment, snap actor.Snapshot, now time.Time) (*Proposal, error) {
	if as.ActorID != snap.ID {
		return nil, fmt.Errorf("assessment %s is for actor %d, not %d: %w",
			as.ID, as.ActorID, snap.ID, common.ErrInvariantViolation)
	}

	log := logrus.WithFields(logrus.Fields{
		"actor_id":      snap.ID,
		"assessment_id": as.ID,
		"stage":         "designer",
	})

	candidates := d.Candidates(snap)
	if len(candidates) == 0 {
		log.WithField("budget", d.Budget(snap.Profile)).Info("no feasible intervention type")
		return nil, nil
	}

	best, bestRate := candidates[0], -1.0
	for _, t := range candidates {
		rate := d.stats.SuccessRate(StatsKey{Archetype: snap.Profile.Archetype, State: snap.State, Type: t})
		// candidates are cheapest first, so strict > keeps ties on the cheaper type
		if rate > bestRate {
			best, bestRate = t, rate
		}
	}

	p := &Proposal{
		ID:           uuid.NewString(),
		FlagID:       as.FlagID,
		AssessmentID: as.ID,
		ActorID:      snap.ID,
		Type:         best,
		Amount:       d.amount(best, snap.Profile, as.Score),
		RiskScore:    as.Score,
		SuccessRate:  bestRate,
		Archetype:    snap.Profile.Archetype,
		State:        snap.State,
		Vector:       as.Vector,
		CreatedAt:    now,
	}

	req := oracle.ProposalRequest{
		ActorID:          p.ActorID,
		Archetype:        p.Archetype,
		State:            p.State,
		RiskScore:        p.RiskScore,
		Neighbors:        as.Neighbors,
		NeighborsChurned: as.NeighborsChurned,
		Type:             string(p.Type),
		Amount:           p.Amount,
		SuccessRate:      p.SuccessRate,
		PrefersFreeSpins: snap.Profile.PrefersFreeSpins,
	}
	draft, err := d.compose(ctx, req)
	if err != nil {
		log.WithField("degraded", "oracle_template").WithError(err).Warn("oracle compose failed, using template")
		draft = oracle.TemplateDraft(req)
	}
	p.Rationale = draft.Rationale
	p.Message = draft.Message

	d.metrics.Proposals.WithLabelValues(string(p.Type)).Inc()
	log.WithFields(logrus.Fields{
		"type":   p.Type,
		"amount": p.Amount,
		"rate":   p.SuccessRate,
	}).Info("intervention proposed")
	return p, nil
}

func (d *Designer) compose(ctx context.Context, req oracle.ProposalRequest) (oracle.ProposalDraft, error) {
	if d.oracle == nil {
		return oracle.ProposalDraft{}, errors.New("no oracle configured")
	}
	return d.oracle.Compose(ctx, req)
}

// amount scales the budget by risk, never below the minimum.
func (d *Designer) amount(t Type, p actor.Profile, risk float64) float64 {
	if !t.Monetary() {
		return 0
	}
	budget := d.Budget(p)
	return common.RoundMoney(math.Min(budget, math.Max(d.cfg.MinAmount, budget*risk)))
}
