package analytics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeObservationSameDayRules(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID:          "child-1",
		Day:                "2026-03-01",
		Scores:             map[string]float64{"language": 80},
		VocabularySize:     500,
		SentenceComplexity: 3.0,
		QuestionFrequency:  2,
		ConversationTurns:  3,
	}))
	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID:          "child-1",
		Day:                "2026-03-01",
		Scores:             map[string]float64{"language": 90},
		VocabularySize:     480,
		SentenceComplexity: 5.0,
		QuestionFrequency:  1,
		ConversationTurns:  4,
	}))

	series, err := agg.Series(ctx, "child-1", "")
	require.NoError(t, err)
	require.Len(t, series, 1)

	row := series[0]
	assert.InDelta(t, 85.0, row.Scores["language"], 1e-9, "scores average")
	assert.Equal(t, 500, row.VocabularySize, "vocabulary keeps its high-water mark")
	assert.InDelta(t, 4.0, row.SentenceComplexity, 1e-9)
	assert.Equal(t, 3, row.QuestionFrequency, "counters add")
	assert.Equal(t, 7, row.ConversationTurns)
}

func TestMergeObservationPreservesUnobservedFields(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID:      "child-1",
		Day:            "2026-03-01",
		Scores:         map[string]float64{"language": 80, "cognitive": 60},
		VocabularySize: 500,
	}))
	// Second merge observes only language; cognitive and vocabulary must
	// not be dragged toward zero.
	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID: "child-1",
		Day:       "2026-03-01",
		Scores:    map[string]float64{"language": 90},
	}))

	series, err := agg.Series(ctx, "child-1", "")
	require.NoError(t, err)
	require.Len(t, series, 1)

	assert.InDelta(t, 85.0, series[0].Scores["language"], 1e-9)
	assert.InDelta(t, 60.0, series[0].Scores["cognitive"], 1e-9)
	assert.Equal(t, 500, series[0].VocabularySize)
}

func TestMergeObservationClampsScores(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID: "child-1",
		Day:       "2026-03-01",
		Scores:    map[string]float64{"language": 250, "cognitive": -10},
	}))

	series, err := agg.Series(ctx, "child-1", "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, 100.0, series[0].Scores["language"])
	assert.Equal(t, 0.0, series[0].Scores["cognitive"])
}

func TestMergeObservationRejectsUnknownAxis(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)

	err := agg.MergeObservation(context.Background(), &Observation{
		SubjectID: "child-1",
		Scores:    map[string]float64{"telepathy": 50},
	})
	assert.ErrorContains(t, err, "unknown score axis")
}

func TestMergeObservationEventIDDeduplicates(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	obs := &Observation{
		SubjectID:         "child-1",
		Day:               "2026-03-01",
		Scores:            map[string]float64{"language": 80},
		ConversationTurns: 5,
		EventID:           "evt-1",
	}
	require.NoError(t, agg.MergeObservation(ctx, obs))
	require.NoError(t, agg.MergeObservation(ctx, obs), "replay must be a no-op")

	series, err := agg.Series(ctx, "child-1", "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 80.0, series[0].Scores["language"], 1e-9)
	assert.Equal(t, 5, series[0].ConversationTurns)
}

func TestMergeObservationConcurrentMergesCompose(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = agg.MergeObservation(ctx, &Observation{
				SubjectID:         "child-1",
				Day:               "2026-03-01",
				ConversationTurns: 1,
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "merge %d", i)
	}
	series, err := agg.Series(ctx, "child-1", "")
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, workers, series[0].ConversationTurns)
}

func TestSeriesOrdersAscendingAndFilters(t *testing.T) {
	db := openTestDB(t)
	agg := NewTrendAggregator(db)
	ctx := context.Background()

	for _, day := range []string{"2026-03-03", "2026-03-01", "2026-03-02"} {
		require.NoError(t, agg.MergeObservation(ctx, &Observation{
			SubjectID: "child-1",
			Day:       day,
			Scores:    map[string]float64{"language": 50},
		}))
	}
	require.NoError(t, agg.MergeObservation(ctx, &Observation{
		SubjectID: "child-2",
		Day:       "2026-03-01",
		Scores:    map[string]float64{"language": 99},
	}))

	series, err := agg.Series(ctx, "child-1", "2026-03-02")
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-02", series[0].Day)
	assert.Equal(t, "2026-03-03", series[1].Day)
}
