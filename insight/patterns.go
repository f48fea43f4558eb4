package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/holomentor/insight-go-sdk/analytics"
)

// PatternReport holds the structured pattern analysis for one subject.
type PatternReport struct {
	Correlations       []string
	TemporalPatterns   []string
	Anomalies          []string
	PredictivePatterns []string

	// DataPoints is the number of daily aggregates the analysis saw.
	DataPoints int

	// Source is always SourceCompletion; pattern detection has no
	// rule-based fallback.
	Source string
}

// patternPayload mirrors the JSON shape the completion is asked for.
type patternPayload struct {
	Correlations       []string `json:"correlations"`
	TemporalPatterns   []string `json:"temporal_patterns"`
	Anomalies          []string `json:"anomalies"`
	PredictivePatterns []string `json:"predictive_patterns"`
}

// DetectPatterns runs a deeper analysis over the subject's trend series,
// surfacing correlations, temporal patterns, anomalies and predictive
// signals. Unlike Summarize it is completion-only: without a backend, or
// when the output cannot be parsed, it returns nil with no error.
func (c *Composer) DetectPatterns(ctx context.Context, subjectID string) (*PatternReport, error) {
	if c.completer == nil {
		return nil, nil
	}

	since := analytics.Day(time.Now().AddDate(0, 0, -c.config.WindowDays))
	series, err := c.trends.Series(ctx, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("detect patterns %s: %w", subjectID, err)
	}
	if len(series) == 0 {
		return nil, nil
	}

	raw, err := c.completer.Complete(ctx, patternPrompt(series))
	if err != nil {
		log.Printf("[INSIGHT] Pattern detection failed for %s: %v", subjectID, err)
		return nil, nil
	}

	var payload patternPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		log.Printf("[INSIGHT] Unparsable pattern output for %s: %v", subjectID, err)
		return nil, nil
	}

	return &PatternReport{
		Correlations:       payload.Correlations,
		TemporalPatterns:   payload.TemporalPatterns,
		Anomalies:          payload.Anomalies,
		PredictivePatterns: payload.PredictivePatterns,
		DataPoints:         len(series),
		Source:             SourceCompletion,
	}, nil
}

func patternPrompt(series []*analytics.Aggregate) string {
	var b strings.Builder
	b.WriteString("Analyze this learner's daily development data for deeper patterns: correlations between dimensions, time-based patterns, anomalies, and predictive signals.\n\n")
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
		if agg.SentenceComplexity > 0 {
			fmt.Fprintf(&b, " complexity=%.1f", agg.SentenceComplexity)
		}
		if agg.ConversationTurns > 0 {
			fmt.Fprintf(&b, " turns=%d", agg.ConversationTurns)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Respond with JSON only, using this shape:
{"correlations": ["..."], "temporal_patterns": ["..."], "anomalies": ["..."], "predictive_patterns": ["..."]}
`)
	return b.String()
}
