// Package db persists monitoring sessions, per-tick samples and fired
// alerts in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"

	"github.com/posture-data/postureguard/internal/posture"
)

// Store wraps the session database.
type Store struct {
	*sql.DB
}

// Open opens (creating if needed) the session database at path. The schema
// is created at open; MigrateUp applies any later revisions.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			session_id   TEXT PRIMARY KEY,
			sensitivity  TEXT NOT NULL,
			started_at   TIMESTAMP NOT NULL,
			ended_at     TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS samples (
			session_id   TEXT NOT NULL,
			ts           TIMESTAMP NOT NULL,
			score        INTEGER NOT NULL,
			issues       TEXT NOT NULL DEFAULT '',
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE TABLE IF NOT EXISTS alerts (
			session_id   TEXT NOT NULL,
			ts           TIMESTAMP NOT NULL,
			score        INTEGER NOT NULL,
			message      TEXT NOT NULL,
			FOREIGN KEY(session_id) REFERENCES sessions(session_id)
		);
		CREATE INDEX IF NOT EXISTS idx_samples_session_ts ON samples(session_id, ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create session schema: %w", err)
	}

	return &Store{db}, nil
}

// BeginSession inserts a new session row and returns its ID.
func (s *Store) BeginSession(sensitivity posture.Sensitivity, startedAt time.Time) (string, error) {
	id := uuid.New().String()
	_, err := s.Exec(
		`INSERT INTO sessions (session_id, sensitivity, started_at) VALUES (?, ?, ?)`,
		id, string(sensitivity), startedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("begin session: %w", err)
	}
	return id, nil
}

// EndSession stamps the session's end time.
func (s *Store) EndSession(sessionID string, endedAt time.Time) error {
	_, err := s.Exec(
		`UPDATE sessions SET ended_at = ? WHERE session_id = ?`,
		endedAt.UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// Sample is one retained monitoring tick.
type Sample struct {
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Score     int       `json:"score"`
	Issues    string    `json:"issues"`
}

// RecordSample stores one tick. Issue labels are joined with "; " to match
// the session log format.
func (s *Store) RecordSample(sessionID string, ts time.Time, score int, issues []posture.Issue) error {
	labels := make([]string, len(issues))
	for i, is := range issues {
		labels[i] = is.Label
	}
	_, err := s.Exec(
		`INSERT INTO samples (session_id, ts, score, issues) VALUES (?, ?, ?, ?)`,
		sessionID, ts.UTC(), score, strings.Join(labels, "; "),
	)
	if err != nil {
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// RecordAlert stores one fired alert.
func (s *Store) RecordAlert(sessionID string, ts time.Time, score int, message string) error {
	_, err := s.Exec(
		`INSERT INTO alerts (session_id, ts, score, message) VALUES (?, ?, ?, ?)`,
		sessionID, ts.UTC(), score, message,
	)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// ListSamples returns the most recent samples for a session, newest first.
// A sessionID of "" returns samples across all sessions.
func (s *Store) ListSamples(sessionID string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT session_id, ts, score, issues FROM samples`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY ts DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.SessionID, &sm.Timestamp, &sm.Score, &sm.Issues); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Stats summarizes the scores recorded for a session.
type Stats struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Min      int     `json:"min"`
	Max      int     `json:"max"`
	StdDev   float64 `json:"std_dev"`
	Alerts   int     `json:"alerts"`
	Sessions int     `json:"sessions"`
}

// SessionStats computes score statistics for a session ("" for all).
func (s *Store) SessionStats(sessionID string) (Stats, error) {
	query := `SELECT score FROM samples`
	args := []interface{}{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	rows, err := s.Query(query, args...)
	if err != nil {
		return Stats{}, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	var scores []float64
	st := Stats{Min: 100}
	for rows.Next() {
		var score int
		if err := rows.Scan(&score); err != nil {
			return Stats{}, fmt.Errorf("scan score: %w", err)
		}
		scores = append(scores, float64(score))
		if score < st.Min {
			st.Min = score
		}
		if score > st.Max {
			st.Max = score
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}

	st.Count = len(scores)
	if st.Count == 0 {
		st.Min = 0
		return st, nil
	}
	st.Mean = stat.Mean(scores, nil)
	if st.Count > 1 {
		st.StdDev = stat.StdDev(scores, nil)
	}

	alertQuery := `SELECT COUNT(*) FROM alerts`
	alertArgs := []interface{}{}
	if sessionID != "" {
		alertQuery += ` WHERE session_id = ?`
		alertArgs = append(alertArgs, sessionID)
	}
	if err := s.QueryRow(alertQuery, alertArgs...).Scan(&st.Alerts); err != nil {
		return Stats{}, fmt.Errorf("count alerts: %w", err)
	}
	if err := s.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&st.Sessions); err != nil {
		return Stats{}, fmt.Errorf("count sessions: %w", err)
	}
	return st, nil
}
