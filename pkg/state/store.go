// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package state is the relational record of the simulation: players, flags,
// interventions with their audit trail, and outcome statistics.
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// ErrNotConfigured is returned by a nil or closed store.
var ErrNotConfigured = errors.New("state store is not configured")

const schema = `
CREATE TABLE IF NOT EXISTS players (
    actor_id     INTEGER PRIMARY KEY,
    archetype    TEXT NOT NULL,
    jurisdiction TEXT NOT NULL,
    ltv          REAL NOT NULL,
    created_at   INTEGER NOT NULL,
    churned_at   INTEGER,
    churn_reason TEXT
);

CREATE TABLE IF NOT EXISTS flags (
    id          TEXT PRIMARY KEY,
    actor_id    INTEGER NOT NULL,
    rule_id     TEXT NOT NULL,
    reason      TEXT NOT NULL,
    source      TEXT NOT NULL,
    detail      TEXT NOT NULL DEFAULT '',
    created_at  INTEGER NOT NULL,
    resolution  TEXT,
    resolved_at INTEGER
);

CREATE TABLE IF NOT EXISTS interventions (
    id              TEXT PRIMARY KEY,
    actor_id        INTEGER NOT NULL,
    flag_id         TEXT NOT NULL,
    assessment_id   TEXT NOT NULL,
    type            TEXT NOT NULL,
    amount          REAL NOT NULL,
    risk_score      REAL NOT NULL,
    rationale       TEXT NOT NULL,
    message         TEXT NOT NULL,
    archetype       TEXT NOT NULL,
    emotional_state TEXT NOT NULL,
    status          TEXT NOT NULL,
    attempts        INTEGER NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    delivered_at    INTEGER,
    outcome         TEXT,
    outcome_at      INTEGER
);

CREATE TABLE IF NOT EXISTS intervention_events (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    intervention_id TEXT NOT NULL,
    actor_id        INTEGER NOT NULL,
    stage           TEXT NOT NULL,
    detail          TEXT NOT NULL DEFAULT '',
    created_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS outcome_stats (
    archetype         TEXT NOT NULL,
    emotional_state   TEXT NOT NULL,
    intervention_type TEXT NOT NULL,
    trials            INTEGER NOT NULL,
    successes         INTEGER NOT NULL,
    PRIMARY KEY (archetype, emotional_state, intervention_type)
);

CREATE INDEX IF NOT EXISTS idx_flags_actor ON flags(actor_id);
CREATE INDEX IF NOT EXISTS idx_interventions_actor ON interventions(actor_id);
CREATE INDEX IF NOT EXISTS idx_events_intervention ON intervention_events(intervention_id);
`

// Store persists simulation records in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens the database at path and applies the schema. ":memory:" gives
// a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps :memory: databases shared and serializes
	// writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logrus.Infof("opened state store at %s", path)
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return s.db.PingContext(ctx)
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t), Valid: true}
}

func fromNullMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return fromMillis(v.Int64)
}
