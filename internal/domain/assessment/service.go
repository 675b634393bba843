// Package assessment records formal cognitive assessments (MMSE, MoCA,
// quick screens) and derives health status, risk level and follow-up
// scheduling from their scores.
package assessment

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

// DefaultTrendDays is the lookback window for the cognitive trend report.
const DefaultTrendDays = 30

// UserDirectory is the slice of the user repository the assessment service
// needs. Satisfied by user.Repository.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateRisk(ctx context.Context, id uuid.UUID, riskLevel string, lastAssessment time.Time) error
}

// CreateInput carries the fields accepted when recording an assessment.
type CreateInput struct {
	UserID       uuid.UUID
	Type         string
	TotalScore   int
	DomainScores map[string]int
	CompletedAt  *time.Time
}

// QuickAnswer is one scored response in the quick screen.
type QuickAnswer struct {
	QuestionID string `json:"question_id"`
	Score      int    `json:"score"`
}

// ScorePoint is one dated score in a trend report.
type ScorePoint struct {
	Date  time.Time `json:"date"`
	Score float64   `json:"score"`
	Type  string    `json:"type"`
}

// TrendReport summarizes a user's assessment history over a lookback window.
type TrendReport struct {
	PeriodDays       int                      `json:"period_days"`
	DailyScores      []ScorePoint             `json:"daily_scores"`
	AssessmentScores []ScorePoint             `json:"assessment_scores"`
	DomainTrends     map[string]scoring.Trend `json:"domain_trends"`
	RiskLevelChanges int                      `json:"risk_level_changes"`
	Stability        string                   `json:"stability"`
}

// Service implements assessment operations.
type Service struct {
	repo    Repository
	users   UserDirectory
	logger  zerolog.Logger
	now     func() time.Time
	metrics OperationRecorder
}

// OperationRecorder counts completed domain operations for the metrics
// endpoint. Satisfied by the telemetry provider.
type OperationRecorder interface {
	OperationCounter(resource, operation string)
}

// NewService creates an assessment service.
func NewService(repo Repository, users UserDirectory, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger.With().Str("component", "assessment-service").Logger(),
		now:    time.Now,
	}
}

// SetMetrics attaches the operation counter. May be left unset.
func (s *Service) SetMetrics(rec OperationRecorder) {
	s.metrics = rec
}

func (s *Service) countOp(op string) {
	if s.metrics != nil {
		s.metrics.OperationCounter("assessments", op)
	}
}

// Create records a formal assessment: classification, recommendations and
// the next assessment date all derive from the score percentage. The user's
// risk level and last assessment date are updated as a side effect.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Assessment, error) {
	if !ValidType(in.Type) {
		return nil, fmt.Errorf("%w: type must be one of mmse, moca, custom, daily", ErrValidation)
	}
	maxScore := MaxScoreFor(in.Type)
	if in.TotalScore <= 0 {
		return nil, fmt.Errorf("%w: total_score must be positive", ErrValidation)
	}
	if in.TotalScore > maxScore {
		return nil, fmt.Errorf("%w: total_score exceeds maximum of %d for type %s", ErrValidation, maxScore, in.Type)
	}
	if err := validateDomains(in.Type, in.DomainScores); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: user does not exist", ErrValidation)
		}
		return nil, err
	}

	completedAt := s.now()
	if in.CompletedAt != nil {
		completedAt = *in.CompletedAt
	}

	a, err := s.store(ctx, in.UserID, in.Type, in.TotalScore, maxScore, in.DomainScores, completedAt)
	if err != nil {
		return nil, err
	}
	s.countOp("create")
	return a, nil
}

// QuickScreen scores the abbreviated 7-question screen and records it as a
// custom assessment out of 30.
func (s *Service) QuickScreen(ctx context.Context, userID uuid.UUID, answers []QuickAnswer) (*Assessment, error) {
	if len(answers) == 0 {
		return nil, fmt.Errorf("%w: answers are required", ErrValidation)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: user does not exist", ErrValidation)
		}
		return nil, err
	}

	seen := make(map[string]bool, len(answers))
	total := 0
	domains := make(map[string]int)
	for _, a := range answers {
		max, ok := quickMaxFor(a.QuestionID)
		if !ok {
			return nil, fmt.Errorf("%w: unknown question %q", ErrValidation, a.QuestionID)
		}
		if seen[a.QuestionID] {
			return nil, fmt.Errorf("%w: duplicate answer for question %q", ErrValidation, a.QuestionID)
		}
		seen[a.QuestionID] = true
		if a.Score < 0 || a.Score > max {
			return nil, fmt.Errorf("%w: score for %q must be between 0 and %d", ErrValidation, a.QuestionID, max)
		}
		total += a.Score
		domains[quickDomainFor(a.QuestionID)] += a.Score
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: at least one answer must score points", ErrValidation)
	}

	a, err := s.store(ctx, userID, TypeCustom, total, quickTemplate.MaxScore, domains, s.now())
	if err != nil {
		return nil, err
	}
	s.countOp("quick_screen")
	return a, nil
}

// store classifies and persists the assessment, then refreshes the user's
// risk level.
func (s *Service) store(ctx context.Context, userID uuid.UUID, aType string, total, maxScore int, domains map[string]int, completedAt time.Time) (*Assessment, error) {
	percentage := float64(total) / float64(maxScore) * 100
	status := scoring.HealthStatusFor(percentage, aType)
	risk := scoring.RiskFor(status)
	if domains == nil {
		domains = map[string]int{}
	}

	a := &Assessment{
		UserID:             userID,
		Type:               aType,
		Status:             "completed",
		TotalScore:         total,
		MaxScore:           maxScore,
		Percentage:         percentage,
		DomainScores:       domains,
		HealthStatus:       status,
		RiskLevel:          risk,
		Recommendations:    scoring.ForAssessment(status, domains),
		NextAssessmentDate: scoring.NextAssessmentDate(completedAt, risk),
		CompletedAt:        completedAt,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.users.UpdateRisk(ctx, userID, string(risk), completedAt); err != nil {
		s.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Msg("failed to update user risk after assessment")
	}

	s.logger.Info().
		Str("assessment_id", a.ID.String()).
		Str("type", aType).
		Float64("percentage", percentage).
		Str("health_status", string(status)).
		Msg("assessment recorded")
	return a, nil
}

// Get returns an assessment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of the user's assessments, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

// GetTemplate returns the question table for an instrument type.
func (s *Service) GetTemplate(assessmentType string) (Template, error) {
	tpl, err := TemplateFor(assessmentType)
	if err != nil {
		return Template{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return tpl, nil
}

// CognitiveTrend builds the trend report over the lookback window. Daily
// assessments and formal assessments are reported separately; domain trends
// compare the first and second half of each domain's series.
func (s *Service) CognitiveTrend(ctx context.Context, userID uuid.UUID, days int) (*TrendReport, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	since := s.now().AddDate(0, 0, -days)
	history, err := s.repo.ListSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	report := &TrendReport{
		PeriodDays:   days,
		DomainTrends: make(map[string]scoring.Trend),
		Stability:    scoring.Stability(0),
	}

	domainSeries := make(map[string][]float64)
	var risks []scoring.RiskLevel
	for _, a := range history {
		point := ScorePoint{Date: a.CompletedAt, Score: a.Percentage, Type: a.Type}
		if a.Type == TypeDaily {
			report.DailyScores = append(report.DailyScores, point)
		} else {
			report.AssessmentScores = append(report.AssessmentScores, point)
		}
		for domain, score := range a.DomainScores {
			domainSeries[domain] = append(domainSeries[domain], float64(score))
		}
		risks = append(risks, a.RiskLevel)
	}

	for domain, series := range domainSeries {
		report.DomainTrends[domain] = scoring.HalfSplitTrend(series, scoring.DomainTrendThreshold)
	}
	report.RiskLevelChanges = scoring.RiskChanges(risks)
	report.Stability = scoring.Stability(report.RiskLevelChanges)
	s.countOp("trend")
	return report, nil
}

func validateDomains(aType string, domains map[string]int) error {
	if len(domains) == 0 {
		return nil
	}
	allowed := make(map[string]bool)
	for _, d := range DomainsFor(aType) {
		allowed[d] = true
	}
	for key, score := range domains {
		if !allowed[key] {
			return fmt.Errorf("%w: domain %q is not scored by type %s", ErrValidation, key, aType)
		}
		if score < 0 {
			return fmt.Errorf("%w: domain %q score must not be negative", ErrValidation, key)
		}
	}
	return nil
}
