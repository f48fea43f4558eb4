package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func languageSeries(scores ...float64) []*Aggregate {
	series := make([]*Aggregate, len(scores))
	for i, score := range scores {
		series[i] = &Aggregate{Scores: map[string]float64{"language": score}}
	}
	return series
}

func TestClassifyImprovingAtThreshold(t *testing.T) {
	c := DefaultClassifier()

	// Exactly 10% above the earlier window counts as improving.
	assert.Equal(t, ClassImproving, c.Classify(languageSeries(100, 110)))
	assert.Equal(t, ClassImproving, c.Classify(languageSeries(50, 60, 70, 80)))
}

func TestClassifyDeclining(t *testing.T) {
	c := DefaultClassifier()

	assert.Equal(t, ClassDeclining, c.Classify(languageSeries(100, 90)))
	assert.Equal(t, ClassDeclining, c.Classify(languageSeries(80, 70, 60, 50)))
}

func TestClassifyStable(t *testing.T) {
	c := DefaultClassifier()

	assert.Equal(t, ClassStable, c.Classify(languageSeries(100, 100)))
	assert.Equal(t, ClassStable, c.Classify(languageSeries(100, 105)))
	assert.Equal(t, ClassStable, c.Classify(languageSeries(100, 95)))
}

func TestClassifyInsufficientData(t *testing.T) {
	c := DefaultClassifier()

	assert.Equal(t, ClassInsufficientData, c.Classify(nil))
	assert.Equal(t, ClassInsufficientData, c.Classify(languageSeries(80)))

	// Days without a primary-axis reading do not count as points.
	series := []*Aggregate{
		{Scores: map[string]float64{"language": 80}},
		{Scores: map[string]float64{"cognitive": 70}},
	}
	assert.Equal(t, ClassInsufficientData, c.Classify(series))
}

func TestClassifyZeroBaseline(t *testing.T) {
	c := DefaultClassifier()

	assert.Equal(t, ClassImproving, c.Classify(languageSeries(0, 40)))
	assert.Equal(t, ClassStable, c.Classify(languageSeries(0, 0)))
}

func TestClassifyWindowCapsLongSeries(t *testing.T) {
	c := DefaultClassifier()

	// Ten points shrink each window to five; the ends still diverge.
	scores := []float64{40, 40, 40, 40, 40, 40, 40, 110, 110, 110}
	assert.Equal(t, ClassImproving, c.Classify(languageSeries(scores...)))
}
