// Package engine is the top-level facade tying memory, analytics and
// insight together behind one best-effort recording call per exchange.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/holomentor/insight-go-sdk/analytics"
	"github.com/holomentor/insight-go-sdk/insight"
	"github.com/holomentor/insight-go-sdk/memory"
)

// ErrNoComposer is returned by Summarize when no composer is attached.
var ErrNoComposer = errors.New("no insight composer configured")

// Engine coordinates the per-exchange write path and the read paths over
// it. Every component is optional; absent ones skip their slice of the
// work.
type Engine struct {
	memory   *memory.Engine
	gaps     *analytics.GapTracker
	trends   *analytics.TrendAggregator
	ilog     *analytics.InteractionLog
	composer *insight.Composer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMemory attaches the vector memory engine.
func WithMemory(m *memory.Engine) Option {
	return func(e *Engine) { e.memory = m }
}

// WithGapTracker attaches the knowledge gap tracker.
func WithGapTracker(g *analytics.GapTracker) Option {
	return func(e *Engine) { e.gaps = g }
}

// WithTrendAggregator attaches the trend aggregator.
func WithTrendAggregator(t *analytics.TrendAggregator) Option {
	return func(e *Engine) { e.trends = t }
}

// WithInteractionLog attaches the append-only interaction log.
func WithInteractionLog(l *analytics.InteractionLog) Option {
	return func(e *Engine) { e.ilog = l }
}

// WithComposer attaches the insight composer.
func WithComposer(c *insight.Composer) Option {
	return func(e *Engine) { e.composer = c }
}

// New creates an engine from whatever components the deployment has.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GapSignal marks one detected knowledge gap within an exchange.
type GapSignal struct {
	Topic   string
	Concept string
	Context string
}

// Interaction is one complete exchange to record across all tiers.
type Interaction struct {
	// ID keys this exchange for retry deduplication; generated when
	// empty.
	ID string

	UserID     string
	SessionID  string
	Question   string
	Answer     string
	Topic      string
	Tag        string
	Confidence float64
	Metadata   map[string]string

	// Gap is the optional knowledge gap detected in this exchange.
	Gap *GapSignal

	// Scores and the aux fields below feed the daily trend aggregate.
	Scores             map[string]float64
	VocabularySize     int
	SentenceComplexity float64
	QuestionFrequency  int
	ConversationTurns  int

	// ObservedAt defaults to now; it fixes both the gap timestamps and
	// the trend day.
	ObservedAt time.Time
}

// Receipt reports which tiers recorded the exchange. Partial receipts
// are normal when a capability is down.
type Receipt struct {
	InteractionID string
	MemoryStored  bool
	Logged        bool
	GapRecorded   bool
	TrendMerged   bool
}

// RecordInteraction fans one exchange out to every attached tier.
// Best-effort throughout: a tier failing never blocks the others, and
// the caller learns what stuck from the receipt. Safe to retry with the
// same interaction ID.
func (e *Engine) RecordInteraction(ctx context.Context, in *Interaction) *Receipt {
	if in == nil {
		return &Receipt{}
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	observedAt := in.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	receipt := &Receipt{InteractionID: in.ID}

	if e.memory != nil {
		receipt.MemoryStored = e.memory.Store(ctx, &memory.Interaction{
			ID:         in.ID,
			UserID:     in.UserID,
			SessionID:  in.SessionID,
			Question:   in.Question,
			Answer:     in.Answer,
			Topic:      in.Topic,
			Tag:        in.Tag,
			Confidence: in.Confidence,
			Metadata:   in.Metadata,
			CreatedAt:  observedAt,
		})
	}

	if e.ilog != nil {
		receipt.Logged = e.ilog.Log(ctx, &analytics.InteractionEvent{
			ID:         in.ID,
			UserID:     in.UserID,
			SessionID:  in.SessionID,
			Topic:      in.Topic,
			Tag:        in.Tag,
			Confidence: in.Confidence,
			CreatedAt:  observedAt,
		})
	}

	if e.gaps != nil && in.Gap != nil {
		receipt.GapRecorded = e.gaps.RecordGap(ctx, &analytics.GapObservation{
			UserID:     in.UserID,
			Topic:      in.Gap.Topic,
			Concept:    in.Gap.Concept,
			Context:    in.Gap.Context,
			ObservedAt: observedAt,
			EventID:    in.ID + "-gap",
		})
	}

	if e.trends != nil && hasTrendData(in) {
		err := e.trends.MergeObservation(ctx, &analytics.Observation{
			SubjectID:          in.UserID,
			Day:                analytics.Day(observedAt),
			Scores:             in.Scores,
			VocabularySize:     in.VocabularySize,
			SentenceComplexity: in.SentenceComplexity,
			QuestionFrequency:  in.QuestionFrequency,
			ConversationTurns:  in.ConversationTurns,
			EventID:            in.ID + "-trend",
		})
		if err != nil {
			log.Printf("[ENGINE] Trend merge failed for user %s: %v", in.UserID, err)
		} else {
			receipt.TrendMerged = true
		}
	}

	return receipt
}

// Retrieve returns the user's most relevant past interactions.
func (e *Engine) Retrieve(ctx context.Context, userID, queryText string, limit int) []*memory.InteractionRecord {
	if e.memory == nil {
		return nil
	}
	return e.memory.Retrieve(ctx, userID, queryText, limit)
}

// RenderContext formats the user's most relevant past interactions into
// a prompt-ready block.
func (e *Engine) RenderContext(ctx context.Context, userID, queryText string) string {
	if e.memory == nil {
		return ""
	}
	return e.memory.RenderContext(ctx, userID, queryText)
}

// Summarize composes a development summary for the subject.
func (e *Engine) Summarize(ctx context.Context, subjectID string) (*insight.Summary, error) {
	if e.composer == nil {
		return nil, ErrNoComposer
	}
	return e.composer.Summarize(ctx, subjectID)
}

func hasTrendData(in *Interaction) bool {
	return len(in.Scores) > 0 || in.VocabularySize > 0 || in.SentenceComplexity > 0 ||
		in.QuestionFrequency > 0 || in.ConversationTurns > 0
}
