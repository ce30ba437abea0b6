package simulation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/predictor"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WarmupConfig controls the offline run that seeds the similarity corpus.
type WarmupConfig struct {
	Actors int
	Seed   int64
	Start  time.Time
	// Horizon is how much simulated time each actor lives before its
	// at-risk points are labeled.
	Horizon time.Duration
	// MinLosses is the loss streak that marks an at-risk point.
	MinLosses int
	Window    int
	Workers   int
}

// DefaultWarmupConfig returns the stock warm-up.
func DefaultWarmupConfig() WarmupConfig {
	return WarmupConfig{
		Actors:    200,
		Horizon:   7 * 24 * time.Hour,
		MinLosses: 3,
		Window:    20,
		Workers:   4,
	}
}

// WarmupResult summarizes what the warm-up wrote.
type WarmupResult struct {
	Actors   int `json:"actors"`
	Records  int `json:"records"`
	Churned  int `json:"churned"`
	Retained int `json:"retained"`
}

type riskPoint struct {
	seq    int
	vector []float64
	at     time.Time
}

// Warmup simulates cfg.Actors players without interventions. Each time a
// player's loss streak reaches cfg.MinLosses the feature vector is kept; once
// the horizon passes every kept vector is labeled by whether the player
// churned and upserted to corpus.
func Warmup(ctx context.Context, cfg WarmupConfig, gen *Generator, corpus similarity.Store) (WarmupResult, error) {
	var res WarmupResult
	if cfg.Actors <= 0 {
		return res, nil
	}
	if cfg.MinLosses <= 0 || cfg.Horizon <= 0 {
		return res, fmt.Errorf("warm-up needs a positive loss streak and horizon")
	}
	if cfg.Window <= 0 {
		cfg.Window = 20
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	// a distinct seed keeps warm-up players apart from the live population
	arena, _ := actor.Populate(actor.PopulationConfig{Size: cfg.Actors, Seed: cfg.Seed ^ 0x5eed}, cfg.Start)
	end := cfg.Start.Add(cfg.Horizon)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for _, a := range arena.All() {
		a := a
		g.Go(func() error {
			points, err := warmupActor(gctx, cfg, gen, a, end)
			if err != nil {
				return err
			}

			label := similarity.LabelRetained
			if a.Churned {
				label = similarity.LabelChurned
			}
			for _, p := range points {
				rec := similarity.Record{
					ID:     "warmup-" + strconv.Itoa(a.ID) + "-" + strconv.Itoa(p.seq),
					Vector: p.vector,
					Label:  label,
					Metadata: map[string]string{
						"source":    "warmup",
						"archetype": string(a.Profile.Archetype),
					},
					CreatedAt: p.at,
				}
				if err := corpus.Upsert(gctx, rec); err != nil {
					return fmt.Errorf("warm-up upsert %s: %w", rec.ID, err)
				}
			}

			mu.Lock()
			res.Records += len(points)
			if label == similarity.LabelChurned {
				res.Churned += len(points)
			} else {
				res.Retained += len(points)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	res.Actors = cfg.Actors
	logrus.WithFields(logrus.Fields{
		"actors":   res.Actors,
		"records":  res.Records,
		"churned":  res.Churned,
		"retained": res.Retained,
	}).Info("similarity corpus warmed up")
	return res, nil
}

func warmupActor(ctx context.Context, cfg WarmupConfig, gen *Generator, a *actor.Actor, end time.Time) ([]riskPoint, error) {
	var (
		points []riskPoint
		window []actor.BetEvent
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ev, err := gen.Step(a, end)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			return points, nil
		}

		window = append(window, *ev)
		if len(window) > cfg.Window {
			window = window[len(window)-cfg.Window:]
		}
		// one point per streak, taken when it first reaches the threshold
		if !a.Churned && a.ConsecutiveLosses == cfg.MinLosses {
			points = append(points, riskPoint{
				seq:    ev.Seq,
				vector: predictor.Features(a.Snapshot(), window),
				at:     ev.Timestamp,
			})
		}
	}
}
