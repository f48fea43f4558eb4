// Package analytics provides the SQLite-backed analytical stores: the
// knowledge gap tracker, the longitudinal trend aggregator, and the
// interaction log used for cohort aggregates.
//
// All mutating operations are expressed as single atomic upsert statements
// (INSERT ... ON CONFLICT DO UPDATE) so concurrent merges on the same key
// compose instead of clobbering each other. The *sql.DB handle is shared
// and externally owned; this package neither opens nor closes it, except
// through the Open convenience used by examples and tests.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Open opens a SQLite database with WAL mode and a busy timeout, suitable
// for sharing across the analytics components. The caller owns the handle.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// InitSchema creates the analytics tables if they do not exist.
// Safe to call more than once.
func InitSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS knowledge_gaps (
			gap_id     TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			topic      TEXT NOT NULL,
			concept    TEXT NOT NULL,
			context    TEXT,
			first_seen DATETIME NOT NULL,
			last_seen  DATETIME NOT NULL,
			frequency  INTEGER NOT NULL DEFAULT 1,
			resolved   INTEGER NOT NULL DEFAULT 0
		)`,
		// Uniqueness holds for unresolved gaps only: resolving a gap ends
		// its lifecycle, and a later observation starts a fresh record.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_gaps_open
			ON knowledge_gaps(user_id, topic, concept) WHERE resolved = 0`,
		`CREATE TABLE IF NOT EXISTS trend_aggregates (
			subject_id          TEXT NOT NULL,
			day                 TEXT NOT NULL,
			language_score      REAL,
			cognitive_score     REAL,
			emotional_score     REAL,
			social_score        REAL,
			creativity_score    REAL,
			vocabulary_size     INTEGER,
			sentence_complexity REAL,
			question_frequency  INTEGER,
			conversation_turns  INTEGER,
			updated_at          DATETIME NOT NULL,
			PRIMARY KEY (subject_id, day)
		)`,
		`CREATE TABLE IF NOT EXISTS interactions (
			interaction_id TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL,
			session_id     TEXT,
			topic          TEXT,
			tag            TEXT,
			confidence     REAL,
			created_at     DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_topic ON interactions(topic)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id)`,
		// Ledger of already-applied observation events. Lets callers
		// retry a failed mutating call without double-counting additive
		// fields.
		`CREATE TABLE IF NOT EXISTS applied_events (
			source     TEXT NOT NULL,
			event_id   TEXT NOT NULL,
			applied_at DATETIME NOT NULL,
			PRIMARY KEY (source, event_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating analytics schema: %w", err)
		}
	}
	return nil
}

// Day formats a time as the calendar-day key used by the trend aggregator.
func Day(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// markEventApplied records an event in the ledger within tx.
// Returns false when the event was applied before (the caller should skip
// the merge and report success). An empty eventID disables deduplication.
func markEventApplied(ctx context.Context, tx *sql.Tx, source, eventID string) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO applied_events (source, event_id, applied_at) VALUES (?, ?, ?)`,
		source, eventID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("recording event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("recording event: %w", err)
	}
	return affected > 0, nil
}
