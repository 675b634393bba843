package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Totals are the platform-wide counters on the overview.
type Totals struct {
	Users         int `json:"users"`
	Conversations int `json:"conversations"`
	Assessments   int `json:"assessments"`
	ActiveUsers   int `json:"active_users_30d"`
}

// RecentUser is a row in the overview's recent-registrations list.
type RecentUser struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	RiskLevel string    `json:"risk_level"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentConversation is a row in the overview's recent-activity list.
type RecentConversation struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Type           string    `json:"type"`
	Status         string    `json:"status"`
	CognitiveScore *int      `json:"cognitive_score,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// ConversationTypeStat aggregates a user's conversations of one type.
type ConversationTypeStat struct {
	Type              string   `json:"type"`
	Count             int      `json:"count"`
	AvgCognitiveScore *float64 `json:"avg_cognitive_score,omitempty"`
	AvgMoodScore      *float64 `json:"avg_mood_score,omitempty"`
	AvgEngagement     *float64 `json:"avg_engagement_score,omitempty"`
	TotalMinutes      int      `json:"total_minutes"`
}

// AssessmentTypeStat aggregates a user's assessments of one type.
type AssessmentTypeStat struct {
	Type          string   `json:"type"`
	Count         int      `json:"count"`
	AvgPercentage *float64 `json:"avg_percentage,omitempty"`
	BestScore     *float64 `json:"best_percentage,omitempty"`
}

// ScorePoint is one dated cognitive score.
type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
}

// Bucket is one calendar period in the trends report. AverageScore is nil
// when no scored conversations fall in the period.
type Bucket struct {
	Period       time.Time `json:"period"`
	Count        int       `json:"count"`
	AverageScore *float64  `json:"average_score,omitempty"`
}

// Repository is the aggregate-query boundary for analytics.
type Repository interface {
	Totals(ctx context.Context) (*Totals, error)
	RiskDistribution(ctx context.Context) (map[string]int, error)
	RecentUsers(ctx context.Context, n int) ([]RecentUser, error)
	RecentConversations(ctx context.Context, n int) ([]RecentConversation, error)

	ConversationStatsByType(ctx context.Context, userID uuid.UUID, since time.Time) ([]ConversationTypeStat, error)
	AssessmentStatsByType(ctx context.Context, userID uuid.UUID, since time.Time) ([]AssessmentTypeStat, error)
	// UserScores returns the user's scored conversations since the cutoff,
	// oldest first.
	UserScores(ctx context.Context, userID uuid.UUID, since time.Time) ([]ScorePoint, error)
	// UserRiskHistory returns the user's assessment risk levels since the
	// cutoff, oldest first.
	UserRiskHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]string, error)

	// ScoreBuckets groups scored conversations into calendar periods of the
	// given granularity (day, week, month or quarter) since the cutoff.
	ScoreBuckets(ctx context.Context, granularity string, since time.Time) ([]Bucket, error)
}
