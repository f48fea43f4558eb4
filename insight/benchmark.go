package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/holomentor/insight-go-sdk/analytics"
)

// Benchmark holds the expected readings for one age.
type Benchmark struct {
	LanguageScore      float64
	CognitiveScore     float64
	VocabularySize     int
	SentenceComplexity float64
}

// ageBenchmarks are rough developmental reference points by age in years.
var ageBenchmarks = map[int]Benchmark{
	3: {LanguageScore: 60, CognitiveScore: 55, VocabularySize: 500, SentenceComplexity: 3.5},
	4: {LanguageScore: 70, CognitiveScore: 65, VocabularySize: 800, SentenceComplexity: 4.5},
	5: {LanguageScore: 80, CognitiveScore: 75, VocabularySize: 1200, SentenceComplexity: 5.5},
	6: {LanguageScore: 85, CognitiveScore: 80, VocabularySize: 2000, SentenceComplexity: 6.0},
}

// Standing labels for a benchmark comparison.
const (
	StandingAhead        = "ahead"
	StandingOnTrack      = "on_track"
	StandingNeedsSupport = "needs_support"
)

// BenchmarkReport compares one subject's latest aggregate against the
// reference points for their age.
type BenchmarkReport struct {
	Age int

	// Standings maps metric name to StandingAhead, StandingOnTrack or
	// StandingNeedsSupport. Metrics the aggregate never observed are
	// absent.
	Standings map[string]string
}

// CompareToBenchmark grades the latest aggregate against the age table.
// Ages outside the table, or a nil aggregate, return nil.
func CompareToBenchmark(age int, latest *analytics.Aggregate) *BenchmarkReport {
	bench, ok := ageBenchmarks[age]
	if !ok || latest == nil {
		return nil
	}

	report := &BenchmarkReport{Age: age, Standings: make(map[string]string)}

	if v, ok := latest.Scores["language"]; ok {
		report.Standings["language"] = standing(v, bench.LanguageScore)
	}
	if v, ok := latest.Scores["cognitive"]; ok {
		report.Standings["cognitive"] = standing(v, bench.CognitiveScore)
	}
	if latest.VocabularySize > 0 {
		report.Standings["vocabulary"] = standing(float64(latest.VocabularySize), float64(bench.VocabularySize))
	}
	if latest.SentenceComplexity > 0 {
		report.Standings["sentence_complexity"] = standing(latest.SentenceComplexity, bench.SentenceComplexity)
	}
	return report
}

// CompareBenchmarks grades a subject's latest aggregate within the
// composer's window against the age table. Returns nil with no error
// when the subject has no recorded days or the age is outside the table.
func (c *Composer) CompareBenchmarks(ctx context.Context, subjectID string, age int) (*BenchmarkReport, error) {
	since := analytics.Day(time.Now().AddDate(0, 0, -c.config.WindowDays))
	series, err := c.trends.Series(ctx, subjectID, since)
	if err != nil {
		return nil, fmt.Errorf("compare benchmarks %s: %w", subjectID, err)
	}
	if len(series) == 0 {
		return nil, nil
	}
	return CompareToBenchmark(age, series[len(series)-1]), nil
}

// standing grades observed against expected with 10% bands, mirroring
// the trend classifier's thresholds.
func standing(observed, expected float64) string {
	switch {
	case observed >= expected*1.1:
		return StandingAhead
	case observed < expected*0.9:
		return StandingNeedsSupport
	default:
		return StandingOnTrack
	}
}
