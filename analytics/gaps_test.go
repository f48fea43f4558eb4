package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordGapUpsertsOpenGap(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	require.True(t, tracker.RecordGap(ctx, &GapObservation{
		UserID: "u1", Topic: "math", Concept: "fractions",
		Context: "struggled with halves", ObservedAt: first,
	}))
	require.True(t, tracker.RecordGap(ctx, &GapObservation{
		UserID: "u1", Topic: "math", Concept: "fractions",
		Context: "struggled with thirds", ObservedAt: second,
	}))

	gaps, err := tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 1)

	assert.Equal(t, 2, gaps[0].Frequency)
	assert.True(t, gaps[0].FirstSeen.Equal(first), "firstSeen must stay at %v, got %v", first, gaps[0].FirstSeen)
	assert.True(t, gaps[0].LastSeen.Equal(second), "lastSeen must advance to %v, got %v", second, gaps[0].LastSeen)
	assert.Equal(t, "struggled with thirds", gaps[0].Context)
}

func TestRecordGapDistinctConceptsStaySeparate(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions"}))
	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "long division"}))
	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u2", Topic: "math", Concept: "fractions"}))

	gaps, err := tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, gaps, 2)
	for _, gap := range gaps {
		assert.Equal(t, 1, gap.Frequency)
	}
}

func TestResolveStartsNewLifecycle(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions"}))
	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions"}))

	require.NoError(t, tracker.Resolve(ctx, "u1", "math", "fractions"))

	gaps, err := tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, gaps, "resolved gaps should not surface")

	// A recurrence opens a fresh gap instead of reviving the old one.
	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions"}))

	gaps, err = tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 1, gaps[0].Frequency)

	history, err := tracker.History(ctx, "u1", "math", "fractions")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Resolved)
	assert.False(t, history[1].Resolved)
}

func TestResolveUnknownGapErrors(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)

	err := tracker.Resolve(context.Background(), "u1", "math", "fractions")
	assert.Error(t, err)
}

func TestRecordGapEventIDDeduplicates(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	obs := &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions", EventID: "evt-1"}
	require.True(t, tracker.RecordGap(ctx, obs))
	require.True(t, tracker.RecordGap(ctx, obs), "replayed event should succeed without effect")

	gaps, err := tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, 1, gaps[0].Frequency)
}

func TestRecordGapConcurrentObservationsCompose(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	const workers = 8
	results := make([]bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = tracker.RecordGap(ctx, &GapObservation{
				UserID: "u1", Topic: "math", Concept: "fractions",
			})
		}(i)
	}
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "observation %d", i)
	}
	gaps, err := tracker.TopGaps(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, workers, gaps[0].Frequency)
}

func TestTopGapsOrdersByFrequency(t *testing.T) {
	db := openTestDB(t)
	tracker := NewGapTracker(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "fractions"}))
	}
	require.True(t, tracker.RecordGap(ctx, &GapObservation{UserID: "u1", Topic: "math", Concept: "long division"}))

	gaps, err := tracker.TopGaps(ctx, "u1", 1)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, "fractions", gaps[0].Concept)
	assert.Equal(t, 3, gaps[0].Frequency)
}
