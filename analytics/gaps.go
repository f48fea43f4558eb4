package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// GapRecord is one tracked knowledge gap: a concept a learner keeps
// struggling with, deduplicated per (user, topic, concept) while
// unresolved.
type GapRecord struct {
	ID        string
	UserID    string
	Topic     string
	Concept   string
	Context   string
	FirstSeen time.Time
	LastSeen  time.Time
	Frequency int
	Resolved  bool
}

// GapObservation is one difficulty signal to record.
type GapObservation struct {
	UserID  string
	Topic   string
	Concept string

	// Context is free text around the observation; the most recent one
	// wins.
	Context string

	// ObservedAt is optional; zero means time.Now().
	ObservedAt time.Time

	// EventID is optional. When set, re-recording the same event is a
	// no-op, so callers may retry a failed call safely.
	EventID string
}

// GapTracker tracks recurring knowledge gaps with frequency counters.
type GapTracker struct {
	db *sql.DB
}

// NewGapTracker creates a tracker over a shared database handle.
func NewGapTracker(db *sql.DB) *GapTracker {
	return &GapTracker{db: db}
}

// RecordGap upserts one gap observation. If an unresolved record exists
// for the (user, topic, concept) tuple the frequency is incremented and
// the context and last-seen time refreshed; otherwise a new record starts
// at frequency 1. The upsert is a single atomic statement, so two
// simultaneous observations of the same gap cannot double-create records.
//
// Returns false (never panics or surfaces an error) on failure; gap
// tracking is best-effort and must not block the primary interaction path.
func (t *GapTracker) RecordGap(ctx context.Context, obs *GapObservation) bool {
	if obs == nil || obs.UserID == "" || obs.Topic == "" || obs.Concept == "" {
		return false
	}
	observedAt := obs.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[ANALYTICS] RecordGap failed for user %s: %v", obs.UserID, err)
		return false
	}
	defer tx.Rollback()

	fresh, err := markEventApplied(ctx, tx, "gap", obs.EventID)
	if err != nil {
		log.Printf("[ANALYTICS] RecordGap failed for user %s: %v", obs.UserID, err)
		return false
	}
	if !fresh {
		// Caller retry of an already-applied event; nothing to do.
		return tx.Commit() == nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO knowledge_gaps (gap_id, user_id, topic, concept, context, first_seen, last_seen, frequency, resolved)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, 0)
		ON CONFLICT(user_id, topic, concept) WHERE resolved = 0 DO UPDATE SET
			frequency = frequency + 1,
			last_seen = excluded.last_seen,
			context = excluded.context
	`, uuid.New().String(), obs.UserID, obs.Topic, obs.Concept, obs.Context, observedAt, observedAt)
	if err != nil {
		log.Printf("[ANALYTICS] RecordGap failed for user %s: %v", obs.UserID, err)
		return false
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[ANALYTICS] RecordGap failed for user %s: %v", obs.UserID, err)
		return false
	}
	return true
}

// Resolve marks the unresolved gap for the tuple as resolved, ending its
// lifecycle. A later observation of the same tuple starts a new record
// with frequency 1.
func (t *GapTracker) Resolve(ctx context.Context, userID, topic, concept string) error {
	res, err := t.db.ExecContext(ctx, `
		UPDATE knowledge_gaps SET resolved = 1
		WHERE user_id = ? AND topic = ? AND concept = ? AND resolved = 0
	`, userID, topic, concept)
	if err != nil {
		return fmt.Errorf("resolving gap: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving gap: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no unresolved gap for %s/%s/%s", userID, topic, concept)
	}
	return nil
}

// TopGaps returns the user's unresolved gaps, most frequent first.
func (t *GapTracker) TopGaps(ctx context.Context, userID string, limit int) ([]*GapRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := t.db.QueryContext(ctx, `
		SELECT gap_id, user_id, topic, concept, context, first_seen, last_seen, frequency, resolved
		FROM knowledge_gaps
		WHERE user_id = ? AND resolved = 0
		ORDER BY frequency DESC, last_seen DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying gaps: %w", err)
	}
	defer rows.Close()

	var gaps []*GapRecord
	for rows.Next() {
		rec, err := scanGap(rows)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, rec)
	}
	return gaps, rows.Err()
}

// History returns every gap lifecycle for the tuple, resolved ones
// included, oldest first.
func (t *GapTracker) History(ctx context.Context, userID, topic, concept string) ([]*GapRecord, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT gap_id, user_id, topic, concept, context, first_seen, last_seen, frequency, resolved
		FROM knowledge_gaps
		WHERE user_id = ? AND topic = ? AND concept = ?
		ORDER BY first_seen ASC
	`, userID, topic, concept)
	if err != nil {
		return nil, fmt.Errorf("querying gap history: %w", err)
	}
	defer rows.Close()

	var gaps []*GapRecord
	for rows.Next() {
		rec, err := scanGap(rows)
		if err != nil {
			return nil, err
		}
		gaps = append(gaps, rec)
	}
	return gaps, rows.Err()
}

func scanGap(rows *sql.Rows) (*GapRecord, error) {
	var rec GapRecord
	var context sql.NullString
	var resolved int
	if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Topic, &rec.Concept, &context,
		&rec.FirstSeen, &rec.LastSeen, &rec.Frequency, &resolved); err != nil {
		return nil, fmt.Errorf("scanning gap: %w", err)
	}
	rec.Context = context.String
	rec.Resolved = resolved != 0
	return &rec, nil
}
