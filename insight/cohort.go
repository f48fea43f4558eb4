package insight

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/holomentor/insight-go-sdk/analytics"
	"github.com/holomentor/insight-go-sdk/completion"
)

// CohortReport summarizes learning patterns across all users.
type CohortReport struct {
	Text   string
	Source string
	Stats  []*analytics.CohortStat
}

// CohortInsights reports on topic-level activity across the whole user
// base. Same degradation contract as Summarize: a completion backend
// upgrades the narrative, its absence or failure yields the
// deterministic fallback.
func CohortInsights(ctx context.Context, ilog *analytics.InteractionLog, completer completion.Completer, limit int) (*CohortReport, error) {
	stats, err := ilog.CohortStats(ctx, "", limit)
	if err != nil {
		return nil, fmt.Errorf("cohort insights: %w", err)
	}

	report := &CohortReport{Stats: stats, Source: SourceFallback}

	if completer != nil && len(stats) > 0 {
		raw, err := completer.Complete(ctx, cohortPrompt(stats))
		if err == nil {
			if payload, perr := parseRich(raw); perr == nil {
				report.Text = payload.Summary
				report.Source = SourceCompletion
				return report, nil
			} else {
				log.Printf("[INSIGHT] Unparsable cohort output, using fallback: %v", perr)
			}
		} else {
			log.Printf("[INSIGHT] Cohort completion failed, using fallback: %v", err)
		}
	}

	report.Text = cohortFallback(stats)
	return report, nil
}

func cohortPrompt(stats []*analytics.CohortStat) string {
	var b strings.Builder
	b.WriteString("Analyze this learning cohort data. Which topics are most challenging, and what would improve outcomes?\n\n")
	for _, stat := range stats {
		fmt.Fprintf(&b, "- %s: %d interactions, %d users, avg confidence %.2f\n",
			stat.Topic, stat.Interactions, stat.UniqueUsers, stat.AvgConfidence)
	}
	b.WriteString(`
Respond with JSON only, using this shape:
{"summary": "...", "strengths": ["..."], "focus_areas": ["..."], "recommendations": ["..."]}
`)
	return b.String()
}

func cohortFallback(stats []*analytics.CohortStat) string {
	if len(stats) == 0 {
		return "No interactions recorded yet."
	}

	busiest := stats[0]
	hardest := stats[0]
	for _, stat := range stats[1:] {
		if stat.AvgConfidence < hardest.AvgConfidence {
			hardest = stat
		}
	}

	return fmt.Sprintf(
		"Across %d topic(s), %q is the most active with %d interaction(s) from %d user(s). %q shows the lowest average confidence (%.2f) and may need more scaffolding.",
		len(stats), busiest.Topic, busiest.Interactions, busiest.UniqueUsers, hardest.Topic, hardest.AvgConfidence)
}
