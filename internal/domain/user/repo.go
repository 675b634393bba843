package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// SummaryStats aggregates a user's activity for the summary endpoint.
type SummaryStats struct {
	ConversationCount     int        `json:"conversation_count"`
	AssessmentCount       int        `json:"assessment_count"`
	LatestAssessmentScore *int       `json:"latest_assessment_score,omitempty"`
	LatestAssessmentType  *string    `json:"latest_assessment_type,omitempty"`
	LatestHealthStatus    *string    `json:"latest_health_status,omitempty"`
	LatestAssessmentDate  *time.Time `json:"latest_assessment_date,omitempty"`
}

// Repository is the persistence boundary for users.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdateRisk(ctx context.Context, id uuid.UUID, riskLevel string, lastAssessment time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	SummaryStats(ctx context.Context, id uuid.UUID) (*SummaryStats, error)
}
