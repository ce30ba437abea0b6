// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
)

// SaveOutcomeStat mirrors one in-memory tally.
func (s *Store) SaveOutcomeStat(ctx context.Context, key intervention.StatsKey, t intervention.Tally) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outcome_stats (archetype, emotional_state, intervention_type, trials, successes)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(archetype, emotional_state, intervention_type)
		DO UPDATE SET trials = excluded.trials, successes = excluded.successes`,
		string(key.Archetype), string(key.State), string(key.Type), t.Trials, t.Successes)
	if err != nil {
		return fmt.Errorf("save outcome stat %v: %w", key, err)
	}
	return nil
}

// LoadOutcomeStats reads every stored tally, for warm starts.
func (s *Store) LoadOutcomeStats(ctx context.Context) (map[intervention.StatsKey]intervention.Tally, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT archetype, emotional_state, intervention_type, trials, successes FROM outcome_stats`)
	if err != nil {
		return nil, fmt.Errorf("load outcome stats: %w", err)
	}
	defer rows.Close()

	out := make(map[intervention.StatsKey]intervention.Tally)
	for rows.Next() {
		var archetype, st, ty string
		var t intervention.Tally
		if err := rows.Scan(&archetype, &st, &ty, &t.Trials, &t.Successes); err != nil {
			return nil, err
		}
		out[intervention.StatsKey{
			Archetype: actor.Archetype(archetype),
			State:     actor.EmotionalState(st),
			Type:      intervention.Type(ty),
		}] = t
	}
	return out, rows.Err()
}
