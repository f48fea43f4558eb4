package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// InteractionEvent is one logged exchange, the raw material for cohort
// statistics.
type InteractionEvent struct {
	ID         string
	UserID     string
	SessionID  string
	Topic      string
	Tag        string
	Confidence float64
	CreatedAt  time.Time
}

// CohortStat summarizes interaction volume and confidence for one topic
// across all users.
type CohortStat struct {
	Topic         string
	Interactions  int
	AvgConfidence float64
	UniqueUsers   int
}

// InteractionLog is an append-only record of exchanges.
type InteractionLog struct {
	db *sql.DB
}

// NewInteractionLog creates a log over a shared database handle.
func NewInteractionLog(db *sql.DB) *InteractionLog {
	return &InteractionLog{db: db}
}

// Log appends one interaction. Best-effort: a failed append is logged and
// reported as false so callers never abort an exchange over bookkeeping.
// Replaying an already-logged interaction ID is a clean no-op and still
// reports true.
func (l *InteractionLog) Log(ctx context.Context, event *InteractionEvent) bool {
	if event == nil || event.UserID == "" {
		return false
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO interactions (interaction_id, user_id, session_id, topic, tag, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, event.UserID, event.SessionID, event.Topic, event.Tag, event.Confidence, createdAt)
	if err != nil {
		log.Printf("[ANALYTICS] Interaction log failed for user %s: %v", event.UserID, err)
		return false
	}
	return true
}

// Recent returns the user's latest interactions, newest first.
func (l *InteractionLog) Recent(ctx context.Context, userID string, limit int) ([]*InteractionEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT interaction_id, user_id, session_id, topic, tag, confidence, created_at
		FROM interactions
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying interactions: %w", err)
	}
	defer rows.Close()

	var events []*InteractionEvent
	for rows.Next() {
		event := &InteractionEvent{}
		if err := rows.Scan(&event.ID, &event.UserID, &event.SessionID, &event.Topic, &event.Tag, &event.Confidence, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning interaction: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CohortStats aggregates interactions by topic across all users, busiest
// topics first. An empty topic restricts nothing; a non-empty topic
// returns at most that one row.
func (l *InteractionLog) CohortStats(ctx context.Context, topic string, limit int) ([]*CohortStat, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT topic, COUNT(*), AVG(confidence), COUNT(DISTINCT user_id)
		FROM interactions
		WHERE topic != '' AND (? = '' OR topic = ?)
		GROUP BY topic
		ORDER BY COUNT(*) DESC
		LIMIT ?
	`, topic, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cohort stats: %w", err)
	}
	defer rows.Close()

	var stats []*CohortStat
	for rows.Next() {
		stat := &CohortStat{}
		if err := rows.Scan(&stat.Topic, &stat.Interactions, &stat.AvgConfidence, &stat.UniqueUsers); err != nil {
			return nil, fmt.Errorf("scanning cohort stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}
