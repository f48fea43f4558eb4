package analytics

// Classification is the coarse direction label over a score series.
type Classification string

const (
	// ClassInsufficientData means fewer than two usable points.
	ClassInsufficientData Classification = "insufficient_data"

	// ClassImproving means the recent window is at least 10% above the
	// earlier window.
	ClassImproving Classification = "improving"

	// ClassDeclining means the recent window is at least 10% below the
	// earlier window.
	ClassDeclining Classification = "declining"

	// ClassStable covers everything in between.
	ClassStable Classification = "stable"
)

// Classifier labels a trend series by comparing the mean of its earliest
// window against the mean of its latest window on one primary axis.
type Classifier struct {
	// PrimaryAxis is the score axis the direction is judged on.
	PrimaryAxis string

	// Window caps how many points each end of the series contributes.
	Window int

	// ImproveRatio and DeclineRatio are the recent/earlier thresholds.
	ImproveRatio float64
	DeclineRatio float64
}

// DefaultClassifier compares up to a week on each end of the language
// axis with 10% bands.
func DefaultClassifier() *Classifier {
	return &Classifier{
		PrimaryAxis:  "language",
		Window:       7,
		ImproveRatio: 1.1,
		DeclineRatio: 0.9,
	}
}

// Classify labels the series. Days with no reading on the primary axis
// are skipped. The two windows never overlap: a short series shrinks
// them to disjoint halves so a two-point series still compares its ends.
func (c *Classifier) Classify(series []*Aggregate) Classification {
	var points []float64
	for _, agg := range series {
		if v, ok := agg.Scores[c.PrimaryAxis]; ok {
			points = append(points, v)
		}
	}
	if len(points) < 2 {
		return ClassInsufficientData
	}

	window := c.Window
	if half := len(points) / 2; window > half {
		window = half
	}

	earlier := mean(points[:window])
	recent := mean(points[len(points)-window:])

	if earlier == 0 {
		if recent > 0 {
			return ClassImproving
		}
		return ClassStable
	}

	ratio := recent / earlier
	switch {
	case ratio >= c.ImproveRatio:
		return ClassImproving
	case ratio <= c.DeclineRatio:
		return ClassDeclining
	default:
		return ClassStable
	}
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
