package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ScoreAxes are the named development score fields tracked per day.
// Each is bounded to [0,100] and merged by running average.
var ScoreAxes = []string{"language", "cognitive", "emotional", "social", "creativity"}

// MergeRule declares how a field combines with an existing same-day value.
// Mixing rules per field is intentional: averaging a monotonically
// increasing vocabulary count would understate it, and summing a bounded
// score would overflow its range.
type MergeRule int

const (
	// MergeAverageBounded is the running average (old+new)/2 clamped to
	// [0,100].
	MergeAverageBounded MergeRule = iota

	// MergeAverage is the running average without bounds.
	MergeAverage

	// MergeMax keeps the high-water mark.
	MergeMax

	// MergeSum adds values, for monotonic counters.
	MergeSum
)

// fieldPolicy binds one aggregate column to its merge rule.
type fieldPolicy struct {
	column string
	rule   MergeRule
}

// auxPolicies is the merge-policy table for the non-score fields.
// New fields declare their rule here instead of inlining arithmetic.
var auxPolicies = map[string]fieldPolicy{
	"vocabulary_size":     {"vocabulary_size", MergeMax},
	"sentence_complexity": {"sentence_complexity", MergeAverage},
	"question_frequency":  {"question_frequency", MergeSum},
	"conversation_turns":  {"conversation_turns", MergeSum},
}

// mergeClause renders the ON CONFLICT SET expression for one column.
// A NULL column means the field was never observed for this day, so the
// incoming value is taken as-is rather than averaged against nothing.
func (p fieldPolicy) mergeClause() string {
	c := p.column
	switch p.rule {
	case MergeAverageBounded:
		return fmt.Sprintf("%s = CASE WHEN %s IS NULL THEN excluded.%s ELSE min(100.0, max(0.0, (%s + excluded.%s) / 2.0)) END", c, c, c, c, c)
	case MergeAverage:
		return fmt.Sprintf("%s = CASE WHEN %s IS NULL THEN excluded.%s ELSE (%s + excluded.%s) / 2.0 END", c, c, c, c, c)
	case MergeMax:
		return fmt.Sprintf("%s = max(COALESCE(%s, excluded.%s), excluded.%s)", c, c, c, c)
	case MergeSum:
		return fmt.Sprintf("%s = COALESCE(%s, 0) + excluded.%s", c, c, c)
	}
	return ""
}

// Observation is one batch of same-day measurements to merge.
// A zero aux field means "not observed this time" and leaves the stored
// value untouched.
type Observation struct {
	SubjectID string

	// Day is the calendar-day key ("2006-01-02"); empty means today.
	Day string

	// Scores holds bounded [0,100] development scores keyed by axis
	// (see ScoreAxes). Absent axes are not merged.
	Scores map[string]float64

	// VocabularySize is a high-water mark, never averaged down.
	VocabularySize int

	// SentenceComplexity merges by running average.
	SentenceComplexity float64

	// QuestionFrequency and ConversationTurns are additive counters.
	QuestionFrequency int
	ConversationTurns int

	// EventID is optional; when set, merging the same event again is a
	// no-op. Additive fields would double-count on a blind retry
	// otherwise.
	EventID string
}

// Aggregate is one (subject, day) row from the trend store.
type Aggregate struct {
	SubjectID string
	Day       string

	// Scores holds the axes observed at least once this day.
	Scores map[string]float64

	VocabularySize     int
	SentenceComplexity float64
	QuestionFrequency  int
	ConversationTurns  int
	UpdatedAt          time.Time
}

// TrendAggregator maintains one aggregate row per (subject, calendar day),
// merging same-day observations field by field per the policy table.
type TrendAggregator struct {
	db *sql.DB
}

// NewTrendAggregator creates an aggregator over a shared database handle.
func NewTrendAggregator(db *sql.DB) *TrendAggregator {
	return &TrendAggregator{db: db}
}

// MergeObservation merges one observation into its (subject, day) row.
// Absent on that day, the observation is inserted as-is; present, each
// observed field merges by its declared rule in one atomic upsert, so
// concurrent merges compose rather than clobber.
func (a *TrendAggregator) MergeObservation(ctx context.Context, obs *Observation) error {
	if obs == nil || obs.SubjectID == "" {
		return fmt.Errorf("merge observation: missing subject id")
	}

	day := obs.Day
	if day == "" {
		day = Day(time.Now())
	}

	columns := []string{"subject_id", "day"}
	values := []any{obs.SubjectID, day}
	var clauses []string

	for _, axis := range ScoreAxes {
		score, ok := obs.Scores[axis]
		if !ok {
			continue
		}
		policy := fieldPolicy{column: axis + "_score", rule: MergeAverageBounded}
		columns = append(columns, policy.column)
		values = append(values, clampScore(score))
		clauses = append(clauses, policy.mergeClause())
	}
	for axis := range obs.Scores {
		if !isScoreAxis(axis) {
			return fmt.Errorf("merge observation: unknown score axis %q", axis)
		}
	}

	appendAux := func(name string, value any, observed bool) {
		if !observed {
			return
		}
		policy := auxPolicies[name]
		columns = append(columns, policy.column)
		values = append(values, value)
		clauses = append(clauses, policy.mergeClause())
	}
	appendAux("vocabulary_size", obs.VocabularySize, obs.VocabularySize > 0)
	appendAux("sentence_complexity", obs.SentenceComplexity, obs.SentenceComplexity > 0)
	appendAux("question_frequency", obs.QuestionFrequency, obs.QuestionFrequency > 0)
	appendAux("conversation_turns", obs.ConversationTurns, obs.ConversationTurns > 0)

	if len(clauses) == 0 {
		return nil // Nothing observed
	}

	columns = append(columns, "updated_at")
	values = append(values, time.Now().UTC())
	clauses = append(clauses, "updated_at = excluded.updated_at")

	query := fmt.Sprintf(`
		INSERT INTO trend_aggregates (%s)
		VALUES (%s)
		ON CONFLICT(subject_id, day) DO UPDATE SET
			%s
	`, strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "),
		strings.Join(clauses, ",\n\t\t\t"))

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("merge observation: %w", err)
	}
	defer tx.Rollback()

	fresh, err := markEventApplied(ctx, tx, "trend", obs.EventID)
	if err != nil {
		return fmt.Errorf("merge observation: %w", err)
	}
	if !fresh {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, query, values...); err != nil {
		return fmt.Errorf("merge observation: %w", err)
	}
	return tx.Commit()
}

// Series returns the subject's aggregates from sinceDay onward, ascending
// by day. An empty sinceDay returns the full series.
func (a *TrendAggregator) Series(ctx context.Context, subjectID, sinceDay string) ([]*Aggregate, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT subject_id, day,
			language_score, cognitive_score, emotional_score, social_score, creativity_score,
			vocabulary_size, sentence_complexity, question_frequency, conversation_turns,
			updated_at
		FROM trend_aggregates
		WHERE subject_id = ? AND day >= ?
		ORDER BY day ASC
	`, subjectID, sinceDay)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var series []*Aggregate
	for rows.Next() {
		agg := &Aggregate{Scores: make(map[string]float64)}
		scores := make([]sql.NullFloat64, len(ScoreAxes))
		var vocab, questions, turns sql.NullInt64
		var complexity sql.NullFloat64

		dest := []any{&agg.SubjectID, &agg.Day}
		for i := range scores {
			dest = append(dest, &scores[i])
		}
		dest = append(dest, &vocab, &complexity, &questions, &turns, &agg.UpdatedAt)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning aggregate: %w", err)
		}

		for i, axis := range ScoreAxes {
			if scores[i].Valid {
				agg.Scores[axis] = scores[i].Float64
			}
		}
		agg.VocabularySize = int(vocab.Int64)
		agg.SentenceComplexity = complexity.Float64
		agg.QuestionFrequency = int(questions.Int64)
		agg.ConversationTurns = int(turns.Int64)

		series = append(series, agg)
	}
	return series, rows.Err()
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func isScoreAxis(name string) bool {
	for _, axis := range ScoreAxes {
		if axis == name {
			return true
		}
	}
	return false
}
