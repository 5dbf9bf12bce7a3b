// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history persists workouts and their repetitions in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/relabs-tech/pushup_tracker/internal/classifier"
	"github.com/relabs-tech/pushup_tracker/internal/rep"
)

// ErrUnknownSession is returned for writes to a session that does not exist.
var ErrUnknownSession = errors.New("history: unknown session")

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id        TEXT PRIMARY KEY,
		started_at_ms     BIGINT NOT NULL,
		ended_at_ms       BIGINT,
		filter_preset     TEXT,
		rep_policy        TEXT
	);
	CREATE TABLE IF NOT EXISTS reps (
		session_id        TEXT NOT NULL,
		number            INTEGER NOT NULL,
		good              INTEGER NOT NULL,
		posture           TEXT,
		confidence        DOUBLE,
		duration_ms       BIGINT,
		predictions       INTEGER,
		forced            INTEGER,
		low_confidence    INTEGER,
		completed_at_ms   BIGINT NOT NULL,
		PRIMARY KEY (session_id, number),
		FOREIGN KEY(session_id) REFERENCES sessions(session_id)
	);
`

// Store is the workout log.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db}, nil
}

// Session is one workout.
type Session struct {
	ID      string
	Started time.Time
	Ended   time.Time // zero while running
	Preset  string
	Policy  string
}

// StartSession creates a new session.
func (s *Store) StartSession(ctx context.Context, started time.Time, preset, policy string) (Session, error) {
	sess := Session{ID: uuid.NewString(), Started: started, Preset: preset, Policy: policy}
	_, err := s.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at_ms, filter_preset, rep_policy) VALUES (?, ?, ?, ?)`,
		sess.ID, started.UnixMilli(), preset, policy)
	if err != nil {
		return Session{}, fmt.Errorf("history: start session: %w", err)
	}
	return sess, nil
}

// EndSession stamps the end time.
func (s *Store) EndSession(ctx context.Context, id string, ended time.Time) error {
	res, err := s.ExecContext(ctx,
		`UPDATE sessions SET ended_at_ms = ? WHERE session_id = ?`, ended.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("history: end session: %w", err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// RecordRep appends a completed repetition to a session.
func (s *Store) RecordRep(ctx context.Context, sessionID string, r rep.Rep) error {
	var exists int
	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE session_id = ?`, sessionID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("history: record rep: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	_, err = s.ExecContext(ctx, `
		INSERT INTO reps (session_id, number, good, posture, confidence, duration_ms,
			predictions, forced, low_confidence, completed_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, r.Number, boolInt(r.Good),
		classifier.Label(classifier.PostureLabels, r.Posture),
		float64(r.Confidence), r.Duration().Milliseconds(),
		r.Predictions, boolInt(r.Forced), boolInt(r.LowConfidence), r.End.UnixMilli())
	if err != nil {
		return fmt.Errorf("history: record rep: %w", err)
	}
	return nil
}

// RepRow is a stored repetition.
type RepRow struct {
	Number      int
	Good        bool
	Posture     string
	Confidence  float64
	Duration    time.Duration
	Predictions int
	Forced      bool
	Completed   time.Time
}

// Reps lists a session's repetitions in order.
func (s *Store) Reps(ctx context.Context, sessionID string) ([]RepRow, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT number, good, posture, confidence, duration_ms, predictions, forced, completed_at_ms
		FROM reps WHERE session_id = ? ORDER BY number`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: list reps: %w", err)
	}
	defer rows.Close()

	var out []RepRow
	for rows.Next() {
		var (
			r                  RepRow
			good, forced       int
			durationMs, doneMs int64
		)
		if err := rows.Scan(&r.Number, &good, &r.Posture, &r.Confidence, &durationMs,
			&r.Predictions, &forced, &doneMs); err != nil {
			return nil, fmt.Errorf("history: scan rep: %w", err)
		}
		r.Good = good != 0
		r.Forced = forced != 0
		r.Duration = time.Duration(durationMs) * time.Millisecond
		r.Completed = time.UnixMilli(doneMs)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summary totals one session.
type Summary struct {
	Session
	Total int
	Good  int
}

// Summaries lists sessions, newest first, with their rep totals.
func (s *Store) Summaries(ctx context.Context, limit int) ([]Summary, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT s.session_id, s.started_at_ms, s.ended_at_ms, s.filter_preset, s.rep_policy,
			COUNT(r.number), COALESCE(SUM(r.good), 0)
		FROM sessions s LEFT JOIN reps r ON r.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_at_ms DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&sum.ID, &started, &ended, &sum.Preset, &sum.Policy,
			&sum.Total, &sum.Good); err != nil {
			return nil, fmt.Errorf("history: scan session: %w", err)
		}
		sum.Started = time.UnixMilli(started)
		if ended.Valid {
			sum.Ended = time.UnixMilli(ended.Int64)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}
