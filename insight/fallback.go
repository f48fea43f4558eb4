package insight

import (
	"fmt"
	"strings"

	"github.com/holomentor/insight-go-sdk/analytics"
)

// fallbackText builds a deterministic summary from the aggregates alone.
// Same inputs, same text. Non-empty whenever the subject has at least one
// trend day or open gap on record.
func fallbackText(class analytics.Classification, series []*analytics.Aggregate, gaps []*analytics.GapRecord) string {
	var sections []string

	switch class {
	case analytics.ClassImproving:
		sections = append(sections, "Scores are trending upward over the recent window.")
	case analytics.ClassDeclining:
		sections = append(sections, "Scores have dipped over the recent window and may need attention.")
	case analytics.ClassStable:
		sections = append(sections, "Scores are holding steady over the recent window.")
	}

	if len(series) > 0 {
		latest := series[len(series)-1]
		var axes []string
		for _, axis := range analytics.ScoreAxes {
			if v, ok := latest.Scores[axis]; ok {
				axes = append(axes, fmt.Sprintf("%s %.0f", axis, v))
			}
		}
		line := fmt.Sprintf("Tracked %d day(s) of activity, most recently %s.", len(series), latest.Day)
		if len(axes) > 0 {
			line += " Latest scores: " + strings.Join(axes, ", ") + "."
		}
		if latest.VocabularySize > 0 {
			line += fmt.Sprintf(" Vocabulary size observed: %d words.", latest.VocabularySize)
		}
		sections = append(sections, line)
	}

	if len(gaps) > 0 {
		var items []string
		for _, gap := range gaps {
			items = append(items, fmt.Sprintf("%s / %s (seen %d time(s))", gap.Topic, gap.Concept, gap.Frequency))
		}
		sections = append(sections, "Open knowledge gaps to revisit: "+strings.Join(items, "; ")+".")
	}

	return strings.Join(sections, " ")
}
