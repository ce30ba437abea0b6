// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/monitor"
)

// RecordFlag stores a newly raised flag.
func (s *Store) RecordFlag(ctx context.Context, f monitor.Flag) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flags (id, actor_id, rule_id, reason, source, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ActorID, f.RuleID, f.Reason, f.Source, f.Detail, toMillis(f.Timestamp))
	if err != nil {
		return fmt.Errorf("record flag %s: %w", f.ID, err)
	}
	return nil
}

// ResolveFlag closes a flag. Resolving twice keeps the first resolution.
func (s *Store) ResolveFlag(ctx context.Context, flagID string, res monitor.Resolution, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE flags SET resolution = ?, resolved_at = ? WHERE id = ? AND resolution IS NULL`,
		string(res), toMillis(at), flagID)
	if err != nil {
		return fmt.Errorf("resolve flag %s: %w", flagID, err)
	}
	return nil
}

// FlagResolutions counts flags per resolution. Open flags are counted under "".
func (s *Store) FlagResolutions(ctx context.Context) (map[monitor.Resolution]int, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(resolution, ''), COUNT(*) FROM flags GROUP BY COALESCE(resolution, '')`)
	if err != nil {
		return nil, fmt.Errorf("flag resolutions: %w", err)
	}
	defer rows.Close()

	out := make(map[monitor.Resolution]int)
	for rows.Next() {
		var res string
		var n int
		if err := rows.Scan(&res, &n); err != nil {
			return nil, err
		}
		out[monitor.Resolution(res)] = n
	}
	return out, rows.Err()
}
