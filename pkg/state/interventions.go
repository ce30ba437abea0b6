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
	"github.com/AccelByte/extend-casino-retention/pkg/intervention"
	"github.com/AccelByte/extend-casino-retention/pkg/similarity"
)

// Event is one row of the intervention audit trail.
type Event struct {
	InterventionID string
	ActorID        int
	Stage          string
	Detail         string
	CreatedAt      time.Time
}

// RecordIntervention stores an approved intervention and its first audit event.
func (s *Store) RecordIntervention(ctx context.Context, iv intervention.Intervention) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interventions (
		  id, actor_id, flag_id, assessment_id, type, amount, risk_score, rationale, message,
		  archetype, emotional_state, status, attempts, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.ActorID, iv.FlagID, iv.AssessmentID, string(iv.Type), iv.Amount, iv.RiskScore,
		iv.Rationale, iv.Message, string(iv.Archetype), string(iv.State), string(iv.Status),
		iv.Attempts, toMillis(iv.ApprovedAt))
	if err != nil {
		return fmt.Errorf("insert intervention %s: %w", iv.ID, err)
	}
	if err := appendEvent(ctx, tx, Event{
		InterventionID: iv.ID,
		ActorID:        iv.ActorID,
		Stage:          string(intervention.StatusApproved),
		Detail:         fmt.Sprintf("%s %.2f", iv.Type, iv.Amount),
		CreatedAt:      iv.ApprovedAt,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// UpdateDelivery stores the delivery result and appends it to the audit trail.
func (s *Store) UpdateDelivery(ctx context.Context, iv intervention.Intervention, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE interventions SET status = ?, attempts = ?, delivered_at = ? WHERE id = ? AND status = ?`,
		string(iv.Status), iv.Attempts, nullMillis(iv.DeliveredAt), iv.ID, string(intervention.StatusApproved))
	if err != nil {
		return fmt.Errorf("update intervention %s: %w", iv.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("intervention %s is not awaiting delivery: %w", iv.ID, intervention.ErrInvalidTransition)
	}
	if err := appendEvent(ctx, tx, Event{
		InterventionID: iv.ID,
		ActorID:        iv.ActorID,
		Stage:          string(iv.Status),
		Detail:         fmt.Sprintf("attempts=%d %s", iv.Attempts, iv.FailureNote),
		CreatedAt:      at,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// LabelIntervention attaches the outcome. Only the first label sticks;
// later calls return intervention.ErrAlreadyLabeled. A row that was never
// recorded returns intervention.ErrUnknownIntervention.
func (s *Store) LabelIntervention(ctx context.Context, id string, actorID int, label similarity.Label, at time.Time) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE interventions SET outcome = ?, outcome_at = ?, status = ? WHERE id = ? AND outcome IS NULL`,
		string(label), toMillis(at), string(intervention.StatusClosed), id)
	if err != nil {
		return fmt.Errorf("label intervention %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM interventions WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("label intervention %s: %w", id, intervention.ErrUnknownIntervention)
		}
		if err != nil {
			return fmt.Errorf("label intervention %s: %w", id, err)
		}
		return fmt.Errorf("intervention %s: %w", id, intervention.ErrAlreadyLabeled)
	}
	if err := appendEvent(ctx, tx, Event{
		InterventionID: id,
		ActorID:        actorID,
		Stage:          "outcome_labeled",
		Detail:         string(label),
		CreatedAt:      at,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// GetIntervention loads an intervention row.
func (s *Store) GetIntervention(ctx context.Context, id string) (*intervention.Intervention, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	var (
		iv                               intervention.Intervention
		ty, archetype, emotional, status string
		createdAt                        int64
		deliveredAt, outcomeAt           sql.NullInt64
		outcome                          sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, actor_id, flag_id, assessment_id, type, amount, risk_score, rationale, message,
		       archetype, emotional_state, status, attempts, created_at, delivered_at, outcome, outcome_at
		FROM interventions WHERE id = ?`, id).Scan(
		&iv.ID, &iv.ActorID, &iv.FlagID, &iv.AssessmentID, &ty, &iv.Amount, &iv.RiskScore,
		&iv.Rationale, &iv.Message, &archetype, &emotional, &status, &iv.Attempts,
		&createdAt, &deliveredAt, &outcome, &outcomeAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("intervention %s: %w", id, intervention.ErrUnknownIntervention)
	}
	if err != nil {
		return nil, fmt.Errorf("get intervention %s: %w", id, err)
	}
	iv.Type = intervention.Type(ty)
	iv.Archetype = actor.Archetype(archetype)
	iv.State = actor.EmotionalState(emotional)
	iv.Status = intervention.Status(status)
	iv.ApprovedAt = fromMillis(createdAt)
	iv.CreatedAt = iv.ApprovedAt
	iv.DeliveredAt = fromNullMillis(deliveredAt)
	iv.Outcome = similarity.Label(outcome.String)
	iv.OutcomeAt = fromNullMillis(outcomeAt)
	return &iv, nil
}

// AppendEvent adds a row to the audit trail.
func (s *Store) AppendEvent(ctx context.Context, ev Event) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return appendEvent(ctx, s.db, ev)
}

// Events returns the audit trail of one intervention, oldest first.
func (s *Store) Events(ctx context.Context, interventionID string) ([]Event, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT intervention_id, actor_id, stage, detail, created_at
		FROM intervention_events WHERE intervention_id = ? ORDER BY id`, interventionID)
	if err != nil {
		return nil, fmt.Errorf("events %s: %w", interventionID, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var at int64
		if err := rows.Scan(&ev.InterventionID, &ev.ActorID, &ev.Stage, &ev.Detail, &at); err != nil {
			return nil, err
		}
		ev.CreatedAt = fromMillis(at)
		out = append(out, ev)
	}
	return out, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendEvent(ctx context.Context, db execer, ev Event) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO intervention_events (intervention_id, actor_id, stage, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.InterventionID, ev.ActorID, ev.Stage, ev.Detail, toMillis(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("append %s event for %s: %w", ev.Stage, ev.InterventionID, err)
	}
	return nil
}
