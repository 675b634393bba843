package assessment

import (
	"time"

	"github.com/google/uuid"

	"github.com/cogniguard/cogniguard/internal/scoring"
)

// Assessment types.
const (
	TypeMMSE   = "mmse"
	TypeMoCA   = "moca"
	TypeCustom = "custom"
	TypeDaily  = "daily"
)

// Cognitive domains an assessment may score.
const (
	DomainOrientation  = "orientation"
	DomainMemory       = "memory"
	DomainAttention    = "attention"
	DomainLanguage     = "language"
	DomainVisuospatial = "visuospatial"
	DomainExecutive    = "executive"
	DomainRecall       = "recall"
)

// Assessment maps to the cognitive_assessments table. Records are
// append-only; re-assessment creates a new row.
type Assessment struct {
	ID                 uuid.UUID            `db:"id" json:"id"`
	UserID             uuid.UUID            `db:"user_id" json:"user_id"`
	Type               string               `db:"assessment_type" json:"type"`
	Status             string               `db:"status" json:"status"`
	TotalScore         int                  `db:"total_score" json:"total_score"`
	MaxScore           int                  `db:"max_score" json:"max_score"`
	Percentage         float64              `db:"percentage" json:"percentage"`
	DomainScores       map[string]int       `db:"domain_scores" json:"domain_scores"`
	HealthStatus       scoring.HealthStatus `db:"health_status" json:"health_status"`
	RiskLevel          scoring.RiskLevel    `db:"risk_level" json:"risk_level"`
	Recommendations    []string             `db:"recommendations" json:"recommendations"`
	NextAssessmentDate time.Time            `db:"next_assessment_date" json:"next_assessment_date"`
	CompletedAt        time.Time            `db:"completed_at" json:"completed_at"`
	CreatedAt          time.Time            `db:"created_at" json:"created_at"`
}

// ValidType reports whether t is a recognized assessment type.
func ValidType(t string) bool {
	return t == TypeMMSE || t == TypeMoCA || t == TypeCustom || t == TypeDaily
}

// MaxScoreFor returns the scale ceiling for an assessment type. The formal
// MMSE and MoCA instruments are scored out of 30, everything else out of 100.
func MaxScoreFor(t string) int {
	if t == TypeMMSE || t == TypeMoCA {
		return 30
	}
	return 100
}

// mmseDomains are the domains scored by the MMSE instrument.
var mmseDomains = []string{
	DomainOrientation, DomainMemory, DomainAttention, DomainLanguage, DomainRecall,
}

// mocaDomains are the domains scored by the MoCA instrument.
var mocaDomains = []string{
	DomainOrientation, DomainMemory, DomainAttention, DomainLanguage,
	DomainVisuospatial, DomainExecutive, DomainRecall,
}

var allDomains = mocaDomains

// DomainsFor returns the domain keys accepted for an assessment type.
func DomainsFor(t string) []string {
	switch t {
	case TypeMMSE:
		return mmseDomains
	case TypeMoCA:
		return mocaDomains
	default:
		return allDomains
	}
}
