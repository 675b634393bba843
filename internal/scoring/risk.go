package scoring

import "time"

// HealthStatus is the four-level qualitative classification derived from a
// percentage score.
type HealthStatus string

const (
	StatusNormal   HealthStatus = "normal"
	StatusMild     HealthStatus = "mild"
	StatusModerate HealthStatus = "moderate"
	StatusSevere   HealthStatus = "severe"
)

// RiskLevel is the coarse three-level classification driving follow-up
// scheduling. Levels are ordered: low < medium < high.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// HealthStatusFor maps a percentage score to a health status. MMSE and MoCA
// use clinical breakpoints 85/70/50; every other assessment type uses
// 80/60/40.
func HealthStatusFor(percentage float64, assessmentType string) HealthStatus {
	var normal, mild, moderate float64 = 80, 60, 40
	if assessmentType == "mmse" || assessmentType == "moca" {
		normal, mild, moderate = 85, 70, 50
	}
	switch {
	case percentage >= normal:
		return StatusNormal
	case percentage >= mild:
		return StatusMild
	case percentage >= moderate:
		return StatusModerate
	default:
		return StatusSevere
	}
}

// RiskFor coarsens a health status into a risk level.
func RiskFor(status HealthStatus) RiskLevel {
	switch status {
	case StatusSevere:
		return RiskHigh
	case StatusModerate, StatusMild:
		return RiskMedium
	default:
		return RiskLow
	}
}

// NextAssessmentDate schedules the follow-up: high risk +1 month, medium
// +3 months, low +6 months. Calendar-month arithmetic, not a 30-day
// approximation.
func NextAssessmentDate(completedAt time.Time, risk RiskLevel) time.Time {
	switch risk {
	case RiskHigh:
		return completedAt.AddDate(0, 1, 0)
	case RiskMedium:
		return completedAt.AddDate(0, 3, 0)
	default:
		return completedAt.AddDate(0, 6, 0)
	}
}

// RiskOrdinal returns the position of a risk level in the low < medium < high
// ordering, used for progression comparisons.
func RiskOrdinal(r RiskLevel) int {
	switch r {
	case RiskHigh:
		return 2
	case RiskMedium:
		return 1
	default:
		return 0
	}
}
