// Package insight composes human-readable development summaries from the
// analytics tier, upgrading to generated text when a completion backend
// is available and falling back to deterministic rule-based summaries
// when it is not.
package insight

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/holomentor/insight-go-sdk/analytics"
	"github.com/holomentor/insight-go-sdk/completion"
)

// Source tags identify which mode produced a summary.
const (
	SourceCompletion = "completion"
	SourceFallback   = "fallback"
)

// Summary is one composed report for a subject.
type Summary struct {
	SubjectID string

	// Text is the narrative body, never empty when the subject has any
	// recorded activity.
	Text string

	// Source is SourceCompletion or SourceFallback.
	Source string

	// Classification is the rule-based trend label, present in both
	// modes.
	Classification analytics.Classification

	// Strengths, FocusAreas and Recommendations are only populated in
	// completion mode.
	Strengths       []string
	FocusAreas      []string
	Recommendations []string

	// Gaps and SeriesLen expose the inputs the summary was built from.
	Gaps      []*analytics.GapRecord
	SeriesLen int
}

// Config tunes the composer.
type Config struct {
	// WindowDays bounds how far back the trend series reaches.
	WindowDays int

	// GapLimit bounds how many open gaps feed the summary.
	GapLimit int

	// InteractionLimit bounds how many recent interactions feed the rich
	// prompt.
	InteractionLimit int
}

// DefaultConfig returns the standard composer settings.
func DefaultConfig() Config {
	return Config{
		WindowDays:       30,
		GapLimit:         5,
		InteractionLimit: 50,
	}
}

// Composer turns trend series, gap records and recent interactions into
// summaries.
type Composer struct {
	trends     *analytics.TrendAggregator
	gaps       *analytics.GapTracker
	ilog       *analytics.InteractionLog
	completer  completion.Completer
	classifier *analytics.Classifier
	config     Config
}

// NewComposer creates a composer. A nil completer pins the composer to
// fallback mode, which needs nothing beyond the analytics tier; a nil
// interaction log just leaves recent interactions out of the rich prompt.
func NewComposer(trends *analytics.TrendAggregator, gaps *analytics.GapTracker, ilog *analytics.InteractionLog, completer completion.Completer, config Config) *Composer {
	defaults := DefaultConfig()
	if config.WindowDays <= 0 {
		config.WindowDays = defaults.WindowDays
	}
	if config.GapLimit <= 0 {
		config.GapLimit = defaults.GapLimit
	}
	if config.InteractionLimit <= 0 {
		config.InteractionLimit = defaults.InteractionLimit
	}
	return &Composer{
		trends:     trends,
		gaps:       gaps,
		ilog:       ilog,
		completer:  completer,
		classifier: analytics.DefaultClassifier(),
		config:     config,
	}
}

// Summarize composes a report for the subject. With a completion backend
// it makes one generation call and parses the result; any failure along
// that path drops to the deterministic fallback instead of erroring, so
// the only error cases are analytics reads failing outright.
func (c *Composer) Summarize(ctx context.Context, subjectID string) (*Summary, error) {
	since := analytics.Day(time.Now().AddDate(0, 0, -c.config.WindowDays))

	series, err := c.trends.Series(ctx, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", subjectID, err)
	}
	openGaps, err := c.gaps.TopGaps(ctx, subjectID, c.config.GapLimit)
	if err != nil {
		return nil, fmt.Errorf("summarize %s: %w", subjectID, err)
	}
	class := c.classifier.Classify(series)

	if c.completer != nil {
		if summary := c.rich(ctx, subjectID, class, series, openGaps, c.recent(ctx, subjectID)); summary != nil {
			return summary, nil
		}
	}

	return &Summary{
		SubjectID:      subjectID,
		Text:           fallbackText(class, series, openGaps),
		Source:         SourceFallback,
		Classification: class,
		Gaps:           openGaps,
		SeriesLen:      len(series),
	}, nil
}

// recent pulls the interactions that feed the rich prompt. Read failures
// degrade to an empty list; the summary still composes without them.
func (c *Composer) recent(ctx context.Context, subjectID string) []*analytics.InteractionEvent {
	if c.ilog == nil {
		return nil
	}
	events, err := c.ilog.Recent(ctx, subjectID, c.config.InteractionLimit)
	if err != nil {
		log.Printf("[INSIGHT] Reading recent interactions for %s failed: %v", subjectID, err)
		return nil
	}
	return events
}

// rich attempts one completion round trip; nil means fall back.
func (c *Composer) rich(ctx context.Context, subjectID string, class analytics.Classification, series []*analytics.Aggregate, openGaps []*analytics.GapRecord, events []*analytics.InteractionEvent) *Summary {
	raw, err := c.completer.Complete(ctx, buildPrompt(class, series, openGaps, events))
	if err != nil {
		log.Printf("[INSIGHT] Completion failed for %s, using fallback: %v", subjectID, err)
		return nil
	}

	payload, err := parseRich(raw)
	if err != nil {
		log.Printf("[INSIGHT] Unparsable completion output for %s, using fallback: %v", subjectID, err)
		return nil
	}

	return &Summary{
		SubjectID:       subjectID,
		Text:            payload.Summary,
		Source:          SourceCompletion,
		Classification:  class,
		Strengths:       payload.Strengths,
		FocusAreas:      payload.FocusAreas,
		Recommendations: payload.Recommendations,
		Gaps:            openGaps,
		SeriesLen:       len(series),
	}
}

// promptInteractionCap bounds how many interaction lines the prompt
// itself renders, regardless of how many were fetched.
const promptInteractionCap = 10

// buildPrompt renders a bounded prompt from the aggregates and recent
// interaction metadata (topic, tag, confidence; never raw conversation
// text).
func buildPrompt(class analytics.Classification, series []*analytics.Aggregate, openGaps []*analytics.GapRecord, events []*analytics.InteractionEvent) string {
	var b strings.Builder

	b.WriteString("You are reviewing a learner's development data.\n\n")
	fmt.Fprintf(&b, "Trend classification: %s\n", class)

	if len(events) > 0 {
		fmt.Fprintf(&b, "Recent interactions (%d, newest first):\n", len(events))
		for i, event := range events {
			if i == promptInteractionCap {
				break
			}
			fmt.Fprintf(&b, "- topic=%s", event.Topic)
			if event.Tag != "" {
				fmt.Fprintf(&b, " tag=%s", event.Tag)
			}
			fmt.Fprintf(&b, " confidence=%.2f\n", event.Confidence)
		}
	}

	if len(series) > 0 {
		b.WriteString("Daily aggregates (oldest first):\n")
		for _, agg := range series {
			fmt.Fprintf(&b, "- %s:", agg.Day)
			for _, axis := range analytics.ScoreAxes {
				if v, ok := agg.Scores[axis]; ok {
					fmt.Fprintf(&b, " %s=%.0f", axis, v)
				}
			}
			if agg.VocabularySize > 0 {
				fmt.Fprintf(&b, " vocabulary=%d", agg.VocabularySize)
			}
			if agg.ConversationTurns > 0 {
				fmt.Fprintf(&b, " turns=%d", agg.ConversationTurns)
			}
			b.WriteString("\n")
		}
	}

	if len(openGaps) > 0 {
		b.WriteString("Open knowledge gaps:\n")
		for _, gap := range openGaps {
			fmt.Fprintf(&b, "- %s / %s, seen %d time(s)\n", gap.Topic, gap.Concept, gap.Frequency)
		}
	}

	b.WriteString(`
Respond with JSON only, using this shape:
{"summary": "...", "strengths": ["..."], "focus_areas": ["..."], "recommendations": ["..."]}
`)
	return b.String()
}
