package analytics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cogniguard/cogniguard/internal/domain/user"
	"github.com/cogniguard/cogniguard/internal/scoring"
)

type mockRepo struct {
	totals      Totals
	dist        map[string]int
	recentUsers []RecentUser
	recentConvs []RecentConversation
	convStats   []ConversationTypeStat
	assessStats []AssessmentTypeStat
	scores      []ScorePoint
	risks       []string
	buckets     []Bucket

	bucketGranularity string
}

func (m *mockRepo) Totals(_ context.Context) (*Totals, error) { t := m.totals; return &t, nil }
func (m *mockRepo) RiskDistribution(_ context.Context) (map[string]int, error) {
	return m.dist, nil
}
func (m *mockRepo) RecentUsers(_ context.Context, n int) ([]RecentUser, error) {
	return m.recentUsers, nil
}
func (m *mockRepo) RecentConversations(_ context.Context, n int) ([]RecentConversation, error) {
	return m.recentConvs, nil
}
func (m *mockRepo) ConversationStatsByType(_ context.Context, _ uuid.UUID, _ time.Time) ([]ConversationTypeStat, error) {
	return m.convStats, nil
}
func (m *mockRepo) AssessmentStatsByType(_ context.Context, _ uuid.UUID, _ time.Time) ([]AssessmentTypeStat, error) {
	return m.assessStats, nil
}
func (m *mockRepo) UserScores(_ context.Context, _ uuid.UUID, _ time.Time) ([]ScorePoint, error) {
	return m.scores, nil
}
func (m *mockRepo) UserRiskHistory(_ context.Context, _ uuid.UUID, _ time.Time) ([]string, error) {
	return m.risks, nil
}
func (m *mockRepo) ScoreBuckets(_ context.Context, granularity string, _ time.Time) ([]Bucket, error) {
	m.bucketGranularity = granularity
	return m.buckets, nil
}

type mockUsers struct {
	known map[uuid.UUID]bool
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if !m.known[id] {
		return nil, user.ErrNotFound
	}
	return &user.User{ID: id}, nil
}

func points(scores ...float64) []ScorePoint {
	base := time.Now().AddDate(0, 0, -len(scores))
	out := make([]ScorePoint, len(scores))
	for i, s := range scores {
		out[i] = ScorePoint{Date: base.AddDate(0, 0, i), Score: s}
	}
	return out
}

func newTestService(repo *mockRepo) (*Service, uuid.UUID) {
	uid := uuid.New()
	users := &mockUsers{known: map[uuid.UUID]bool{uid: true}}
	return NewService(repo, users, zerolog.Nop()), uid
}

func TestOverview(t *testing.T) {
	repo := &mockRepo{
		totals: Totals{Users: 12, Conversations: 40, Assessments: 9, ActiveUsers: 7},
		dist:   map[string]int{"low": 8, "medium": 3, "high": 1},
		recentUsers: []RecentUser{
			{ID: uuid.New(), FirstName: "Ann", RiskLevel: "low"},
		},
	}
	svc, _ := newTestService(repo)

	o, err := svc.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if o.Totals.Users != 12 {
		t.Errorf("expected 12 users, got %d", o.Totals.Users)
	}
	if o.RiskDistribution["medium"] != 3 {
		t.Errorf("expected 3 medium-risk users, got %d", o.RiskDistribution["medium"])
	}
	if len(o.RecentUsers) != 1 {
		t.Errorf("expected 1 recent user, got %d", len(o.RecentUsers))
	}
}

func TestUserDetailed_ImprovingTrend(t *testing.T) {
	repo := &mockRepo{
		scores: points(50, 52, 54, 70, 72, 74),
		risks:  []string{"medium", "medium", "low"},
		convStats: []ConversationTypeStat{
			{Type: "daily", Count: 6},
		},
	}
	svc, uid := newTestService(repo)

	r, err := svc.UserDetailed(context.Background(), uid, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.PeriodDays != DefaultDetailDays {
		t.Errorf("expected default period %d, got %d", DefaultDetailDays, r.PeriodDays)
	}
	// First three average 52, last three 72.
	if r.ScoreTrend != scoring.TrendImproving {
		t.Errorf("expected improving trend, got %s", r.ScoreTrend)
	}
	if r.RiskProgression.Changes != 1 || r.RiskProgression.Stability != "medium" {
		t.Errorf("unexpected risk progression %+v", r.RiskProgression)
	}
	if len(r.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
}

func TestUserDetailed_DecliningLowScores(t *testing.T) {
	repo := &mockRepo{
		scores: points(70, 68, 66, 50, 48, 46),
	}
	svc, uid := newTestService(repo)

	r, err := svc.UserDetailed(context.Background(), uid, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ScoreTrend != scoring.TrendDeclining {
		t.Errorf("expected declining trend, got %s", r.ScoreTrend)
	}
	if r.AverageScore == nil || *r.AverageScore >= 60 {
		t.Errorf("expected low average score, got %v", r.AverageScore)
	}

	foundAssessment := false
	foundConsult := false
	for _, rec := range r.Recommendations {
		if rec == "Cognitive scores are trending down; schedule a formal assessment soon." {
			foundAssessment = true
		}
		if rec == "Average conversation scores are low; consider a consultation with a specialist." {
			foundConsult = true
		}
	}
	if !foundAssessment || !foundConsult {
		t.Errorf("expected declining and low-score recommendations, got %v", r.Recommendations)
	}
}

func TestUserDetailed_UnknownUser(t *testing.T) {
	svc, _ := newTestService(&mockRepo{})

	_, err := svc.UserDetailed(context.Background(), uuid.New(), 0)
	if !errors.Is(err, user.ErrNotFound) {
		t.Errorf("expected user not found, got %v", err)
	}
}

func TestUserDetailed_FewScoresStable(t *testing.T) {
	repo := &mockRepo{scores: points(70)}
	svc, uid := newTestService(repo)

	r, err := svc.UserDetailed(context.Background(), uid, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ScoreTrend != scoring.TrendStable {
		t.Errorf("expected stable trend for a single score, got %s", r.ScoreTrend)
	}
}

func TestTrends_GranularityMapping(t *testing.T) {
	tests := []struct {
		timeframe   string
		granularity string
	}{
		{"week", "day"},
		{"month", "week"},
		{"quarter", "month"},
		{"year", "quarter"},
	}
	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			repo := &mockRepo{buckets: []Bucket{{Count: 3}}}
			svc, _ := newTestService(repo)

			r, err := svc.Trends(context.Background(), tt.timeframe)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if repo.bucketGranularity != tt.granularity {
				t.Errorf("timeframe %s used granularity %s, want %s",
					tt.timeframe, repo.bucketGranularity, tt.granularity)
			}
			if r.Timeframe != tt.timeframe {
				t.Errorf("unexpected timeframe %s", r.Timeframe)
			}
		})
	}
}

func TestTrends_InvalidTimeframe(t *testing.T) {
	svc, _ := newTestService(&mockRepo{})

	_, err := svc.Trends(context.Background(), "decade")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
