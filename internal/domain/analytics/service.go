// Package analytics builds platform-wide and per-user reporting views from
// conversation and assessment history.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cogniguard/cogniguard/internal/domain/user"
	"github.com/cogniguard/cogniguard/internal/scoring"
)

// ErrValidation wraps input validation failures so handlers can map them
// to 400 responses.
var ErrValidation = errors.New("validation failed")

const (
	// DefaultDetailDays is the lookback window for the per-user report.
	DefaultDetailDays = 90
	recentListSize    = 5
	trendSampleSize   = 3
)

// Timeframes accepted by the trends report, mapped to the calendar
// granularity of their buckets.
var timeframeBuckets = map[string]struct {
	granularity string
	lookback    func(time.Time) time.Time
}{
	"week":    {"day", func(t time.Time) time.Time { return t.AddDate(0, 0, -7) }},
	"month":   {"week", func(t time.Time) time.Time { return t.AddDate(0, -1, 0) }},
	"quarter": {"month", func(t time.Time) time.Time { return t.AddDate(0, -3, 0) }},
	"year":    {"quarter", func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) }},
}

// UserDirectory is the slice of the user repository the analytics service
// needs. Satisfied by user.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Overview is the platform-wide dashboard payload.
type Overview struct {
	Totals              *Totals              `json:"totals"`
	RiskDistribution    map[string]int       `json:"risk_distribution"`
	RecentUsers         []RecentUser         `json:"recent_users"`
	RecentConversations []RecentConversation `json:"recent_conversations"`
}

// RiskProgression summarizes risk-level movement over the report window.
type RiskProgression struct {
	History   []string `json:"history"`
	Changes   int      `json:"changes"`
	Stability string   `json:"stability"`
}

// UserReport is the per-user detailed view.
type UserReport struct {
	UserID            uuid.UUID              `json:"user_id"`
	PeriodDays        int                    `json:"period_days"`
	ConversationStats []ConversationTypeStat `json:"conversation_stats"`
	AssessmentStats   []AssessmentTypeStat   `json:"assessment_stats"`
	ScoreTrend        scoring.Trend          `json:"score_trend"`
	AverageScore      *float64               `json:"average_score,omitempty"`
	RiskProgression   RiskProgression        `json:"risk_progression"`
	Recommendations   []string               `json:"recommendations"`
}

// TrendsReport is the calendar-bucketed activity view.
type TrendsReport struct {
	Timeframe string   `json:"timeframe"`
	Buckets   []Bucket `json:"buckets"`
}

// Service implements the analytics reports.
type Service struct {
	repo   Repository
	users  UserDirectory
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an analytics service.
func NewService(repo Repository, users UserDirectory, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger.With().Str("component", "analytics-service").Logger(),
		now:    time.Now,
	}
}

// Overview builds the platform dashboard.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := s.repo.RiskDistribution(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.RecentUsers(ctx, recentListSize)
	if err != nil {
		return nil, err
	}
	convs, err := s.repo.RecentConversations(ctx, recentListSize)
	if err != nil {
		return nil, err
	}
	return &Overview{
		Totals:              totals,
		RiskDistribution:    dist,
		RecentUsers:         users,
		RecentConversations: convs,
	}, nil
}

// UserDetailed builds the per-user report over the lookback window. The
// score trend compares the average of the first three and last three scored
// conversations.
func (s *Service) UserDetailed(ctx context.Context, userID uuid.UUID, days int) (*UserReport, error) {
	if days <= 0 {
		days = DefaultDetailDays
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	since := s.now().AddDate(0, 0, -days)

	convStats, err := s.repo.ConversationStatsByType(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	assessStats, err := s.repo.AssessmentStatsByType(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	scores, err := s.repo.UserScores(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	riskHistory, err := s.repo.UserRiskHistory(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	levels := make([]scoring.RiskLevel, len(riskHistory))
	for i, r := range riskHistory {
		levels[i] = scoring.RiskLevel(r)
	}
	changes := scoring.RiskChanges(levels)

	report := &UserReport{
		UserID:            userID,
		PeriodDays:        days,
		ConversationStats: convStats,
		AssessmentStats:   assessStats,
		ScoreTrend:        sampledTrend(scores),
		AverageScore:      meanScore(scores),
		RiskProgression: RiskProgression{
			History:   riskHistory,
			Changes:   changes,
			Stability: scoring.Stability(changes),
		},
	}
	report.Recommendations = buildRecommendations(report)
	return report, nil
}

// Trends builds the calendar-bucketed report for a timeframe.
func (s *Service) Trends(ctx context.Context, timeframe string) (*TrendsReport, error) {
	cfg, ok := timeframeBuckets[timeframe]
	if !ok {
		return nil, fmt.Errorf("%w: timeframe must be one of week, month, quarter, year", ErrValidation)
	}

	buckets, err := s.repo.ScoreBuckets(ctx, cfg.granularity, cfg.lookback(s.now()))
	if err != nil {
		return nil, err
	}
	return &TrendsReport{Timeframe: timeframe, Buckets: buckets}, nil
}

// sampledTrend compares the average of the first and last trendSampleSize
// scores against the overall trend threshold.
func sampledTrend(scores []ScorePoint) scoring.Trend {
	if len(scores) < 2 {
		return scoring.TrendStable
	}
	n := trendSampleSize
	if len(scores) < n {
		n = len(scores)
	}
	firstAvg := 0.0
	lastAvg := 0.0
	for i := 0; i < n; i++ {
		firstAvg += scores[i].Score
		lastAvg += scores[len(scores)-n+i].Score
	}
	firstAvg /= float64(n)
	lastAvg /= float64(n)

	delta := lastAvg - firstAvg
	switch {
	case delta > scoring.OverallTrendThreshold:
		return scoring.TrendImproving
	case delta < -scoring.OverallTrendThreshold:
		return scoring.TrendDeclining
	default:
		return scoring.TrendStable
	}
}

func meanScore(scores []ScorePoint) *float64 {
	if len(scores) == 0 {
		return nil
	}
	var sum float64
	for _, p := range scores {
		sum += p.Score
	}
	m := sum / float64(len(scores))
	return &m
}

// buildRecommendations derives guidance from the report's aggregates.
func buildRecommendations(r *UserReport) []string {
	var recs []string
	switch r.ScoreTrend {
	case scoring.TrendDeclining:
		recs = append(recs, "Cognitive scores are trending down; schedule a formal assessment soon.")
	case scoring.TrendImproving:
		recs = append(recs, "Cognitive scores are improving; keep the current conversation routine.")
	}
	if r.AverageScore != nil && *r.AverageScore < 60 {
		recs = append(recs, "Average conversation scores are low; consider a consultation with a specialist.")
	}
	if r.RiskProgression.Stability == "low" {
		recs = append(recs, "Risk level is fluctuating; increase monitoring frequency.")
	}
	var convCount int
	for _, s := range r.ConversationStats {
		convCount += s.Count
	}
	if convCount < 4 {
		recs = append(recs, "Few recent conversations; regular daily check-ins improve tracking accuracy.")
	}
	if len(recs) == 0 {
		recs = append(recs, "Activity and scores look steady; continue regular check-ins.")
	}
	return recs
}
