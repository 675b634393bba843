package scoring

// Trend classifies the direction of a score series.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Trend thresholds differ by call site and must not be unified: domain
// trends use 1, overall-score and conversation-stat trends use 5.
const (
	DomainTrendThreshold  = 1.0
	OverallTrendThreshold = 5.0
)

// HalfSplitTrend compares the average of the second half of a
// chronologically ordered score series against the first half. A two-point
// series degenerates to first vs last.
func HalfSplitTrend(scores []float64, threshold float64) Trend {
	if len(scores) < 2 {
		return TrendStable
	}
	mid := len(scores) / 2
	first := average(scores[:mid])
	second := average(scores[mid:])
	return direction(second-first, threshold)
}

// FirstLastTrend compares the last score of a series against the first.
func FirstLastTrend(scores []float64, threshold float64) Trend {
	if len(scores) < 2 {
		return TrendStable
	}
	return direction(scores[len(scores)-1]-scores[0], threshold)
}

func direction(delta, threshold float64) Trend {
	switch {
	case delta > threshold:
		return TrendImproving
	case delta < -threshold:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// RiskChanges counts adjacent risk-level transitions across a
// chronologically ordered history.
func RiskChanges(levels []RiskLevel) int {
	var changes int
	for i := 1; i < len(levels); i++ {
		if levels[i] != levels[i-1] {
			changes++
		}
	}
	return changes
}

// Stability labels how settled a user's risk level has been based on the
// number of changes across history: 0 changes is high stability, up to 2 is
// medium, more is low.
func Stability(changes int) string {
	switch {
	case changes == 0:
		return "high"
	case changes <= 2:
		return "medium"
	default:
		return "low"
	}
}
