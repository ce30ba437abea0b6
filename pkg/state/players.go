// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-casino-retention/pkg/actor"
)

// Player is one row of the players table.
type Player struct {
	ActorID      int
	Archetype    actor.Archetype
	Jurisdiction string
	LTV          float64
	CreatedAt    time.Time
	ChurnedAt    time.Time
	ChurnReason  actor.ChurnReason
}

// RecordPlayers inserts the population in one transaction. Existing rows
// are left alone.
func (s *Store) RecordPlayers(ctx context.Context, actors []*actor.Actor, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO players (actor_id, archetype, jurisdiction, ltv, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(actor_id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, a := range actors {
		if _, err := stmt.ExecContext(ctx, a.ID, string(a.Profile.Archetype), a.Jurisdiction, a.Profile.LTV, toMillis(at)); err != nil {
			return fmt.Errorf("insert player %d: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// MarkChurned records when and why a player left. The first churn sticks.
func (s *Store) MarkChurned(ctx context.Context, actorID int, reason actor.ChurnReason, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET churned_at = ?, churn_reason = ? WHERE actor_id = ? AND churned_at IS NULL`,
		toMillis(at), string(reason), actorID)
	if err != nil {
		return fmt.Errorf("mark churned %d: %w", actorID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE actor_id = ?`, actorID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("mark churned %d: %w", actorID, err)
	}
	if exists == 0 {
		return fmt.Errorf("player %d: %w", actorID, actor.ErrUnknownActor)
	}
	return nil
}

// GetPlayer loads one player row.
func (s *Store) GetPlayer(ctx context.Context, actorID int) (*Player, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var (
		p         Player
		archetype string
		createdAt int64
		churnedAt sql.NullInt64
		reason    sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT actor_id, archetype, jurisdiction, ltv, created_at, churned_at, churn_reason FROM players WHERE actor_id = ?`,
		actorID).Scan(&p.ActorID, &archetype, &p.Jurisdiction, &p.LTV, &createdAt, &churnedAt, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %d: %w", actorID, actor.ErrUnknownActor)
	}
	if err != nil {
		return nil, fmt.Errorf("get player %d: %w", actorID, err)
	}
	p.Archetype = actor.Archetype(archetype)
	p.CreatedAt = fromMillis(createdAt)
	p.ChurnedAt = fromNullMillis(churnedAt)
	p.ChurnReason = actor.ChurnReason(reason.String)
	return &p, nil
}

// ChurnCounts returns churned players per reason.
func (s *Store) ChurnCounts(ctx context.Context) (map[actor.ChurnReason]int, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT churn_reason, COUNT(*) FROM players WHERE churned_at IS NOT NULL GROUP BY churn_reason`)
	if err != nil {
		return nil, fmt.Errorf("churn counts: %w", err)
	}
	defer rows.Close()

	out := make(map[actor.ChurnReason]int)
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, err
		}
		out[actor.ChurnReason(reason)] = n
	}
	return out, rows.Err()
}
