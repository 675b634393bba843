package scoring

import "testing"

func TestHalfSplitTrend_OverallThreshold(t *testing.T) {
	if got := HalfSplitTrend([]float64{70, 70, 70, 80, 82}, OverallTrendThreshold); got != TrendImproving {
		t.Errorf("expected improving, got %s", got)
	}
	if got := HalfSplitTrend([]float64{70, 71, 69, 70, 70}, OverallTrendThreshold); got != TrendStable {
		t.Errorf("expected stable, got %s", got)
	}
	if got := HalfSplitTrend([]float64{85, 84, 70, 68, 69}, OverallTrendThreshold); got != TrendDeclining {
		t.Errorf("expected declining, got %s", got)
	}
}

func TestHalfSplitTrend_DomainThreshold(t *testing.T) {
	// A 1.5-point rise clears the domain threshold but not the overall one.
	scores := []float64{5, 5, 6.5, 6.5}
	if got := HalfSplitTrend(scores, DomainTrendThreshold); got != TrendImproving {
		t.Errorf("domain threshold: expected improving, got %s", got)
	}
	if got := HalfSplitTrend(scores, OverallTrendThreshold); got != TrendStable {
		t.Errorf("overall threshold: expected stable, got %s", got)
	}
}

func TestHalfSplitTrend_Degenerate(t *testing.T) {
	if got := HalfSplitTrend(nil, DomainTrendThreshold); got != TrendStable {
		t.Errorf("expected stable for empty series, got %s", got)
	}
	if got := HalfSplitTrend([]float64{7}, DomainTrendThreshold); got != TrendStable {
		t.Errorf("expected stable for single point, got %s", got)
	}
	if got := HalfSplitTrend([]float64{3, 9}, DomainTrendThreshold); got != TrendImproving {
		t.Errorf("two-point series should compare first vs last, got %s", got)
	}
}

func TestFirstLastTrend(t *testing.T) {
	if got := FirstLastTrend([]float64{60, 75, 70}, OverallTrendThreshold); got != TrendImproving {
		t.Errorf("expected improving, got %s", got)
	}
	if got := FirstLastTrend([]float64{80, 75, 70}, OverallTrendThreshold); got != TrendDeclining {
		t.Errorf("expected declining, got %s", got)
	}
	if got := FirstLastTrend([]float64{70, 50, 73}, OverallTrendThreshold); got != TrendStable {
		t.Errorf("expected stable, got %s", got)
	}
}

func TestRiskChangesAndStability(t *testing.T) {
	levels := []RiskLevel{RiskLow, RiskLow, RiskMedium, RiskMedium, RiskHigh, RiskMedium}
	if got := RiskChanges(levels); got != 3 {
		t.Errorf("expected 3 changes, got %d", got)
	}

	if Stability(0) != "high" {
		t.Error("0 changes should be high stability")
	}
	if Stability(2) != "medium" {
		t.Error("2 changes should be medium stability")
	}
	if Stability(3) != "low" {
		t.Error("3 changes should be low stability")
	}
}
