package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cogniguard/cogniguard/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PGRepository is the pgx-backed analytics repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository creates an analytics repository backed by the given pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PGRepository) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM conversations),
			(SELECT COUNT(*) FROM cognitive_assessments),
			(SELECT COUNT(DISTINCT user_id) FROM conversations
				WHERE started_at >= NOW() - INTERVAL '30 days')`,
	).Scan(&t.Users, &t.Conversations, &t.Assessments, &t.ActiveUsers)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	return &t, nil
}

func (r *PGRepository) RiskDistribution(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT risk_level, COUNT(*) FROM users GROUP BY risk_level`)
	if err != nil {
		return nil, fmt.Errorf("risk distribution: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		out[level] = count
	}
	return out, rows.Err()
}

func (r *PGRepository) RecentUsers(ctx context.Context, n int) ([]RecentUser, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, first_name, last_name, risk_level, created_at
		FROM users ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	defer rows.Close()

	var out []RecentUser
	for rows.Next() {
		var u RecentUser
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.RiskLevel, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PGRepository) RecentConversations(ctx context.Context, n int) ([]RecentConversation, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, user_id, conversation_type, status, cognitive_score, started_at
		FROM conversations ORDER BY started_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("recent conversations: %w", err)
	}
	defer rows.Close()

	var out []RecentConversation
	for rows.Next() {
		var c RecentConversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Type, &c.Status, &c.CognitiveScore, &c.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepository) ConversationStatsByType(ctx context.Context, userID uuid.UUID, since time.Time) ([]ConversationTypeStat, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT conversation_type, COUNT(*), AVG(cognitive_score), AVG(mood_score),
			AVG(engagement_score), COALESCE(SUM(duration), 0)
		FROM conversations
		WHERE user_id = $1 AND started_at >= $2
		GROUP BY conversation_type
		ORDER BY conversation_type`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("conversation stats: %w", err)
	}
	defer rows.Close()

	var out []ConversationTypeStat
	for rows.Next() {
		var s ConversationTypeStat
		if err := rows.Scan(&s.Type, &s.Count, &s.AvgCognitiveScore, &s.AvgMoodScore,
			&s.AvgEngagement, &s.TotalMinutes); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) AssessmentStatsByType(ctx context.Context, userID uuid.UUID, since time.Time) ([]AssessmentTypeStat, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT assessment_type, COUNT(*), AVG(percentage), MAX(percentage)
		FROM cognitive_assessments
		WHERE user_id = $1 AND completed_at >= $2
		GROUP BY assessment_type
		ORDER BY assessment_type`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("assessment stats: %w", err)
	}
	defer rows.Close()

	var out []AssessmentTypeStat
	for rows.Next() {
		var s AssessmentTypeStat
		if err := rows.Scan(&s.Type, &s.Count, &s.AvgPercentage, &s.BestScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PGRepository) UserScores(ctx context.Context, userID uuid.UUID, since time.Time) ([]ScorePoint, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT started_at, cognitive_score
		FROM conversations
		WHERE user_id = $1 AND started_at >= $2 AND cognitive_score IS NOT NULL
		ORDER BY started_at ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("user scores: %w", err)
	}
	defer rows.Close()

	var out []ScorePoint
	for rows.Next() {
		var p ScorePoint
		var score int
		if err := rows.Scan(&p.Date, &score); err != nil {
			return nil, err
		}
		p.Score = float64(score)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepository) UserRiskHistory(ctx context.Context, userID uuid.UUID, since time.Time) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT risk_level FROM cognitive_assessments
		WHERE user_id = $1 AND completed_at >= $2
		ORDER BY completed_at ASC`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("risk history: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var level string
		if err := rows.Scan(&level); err != nil {
			return nil, err
		}
		out = append(out, level)
	}
	return out, rows.Err()
}

func (r *PGRepository) ScoreBuckets(ctx context.Context, granularity string, since time.Time) ([]Bucket, error) {
	switch granularity {
	case "day", "week", "month", "quarter":
	default:
		return nil, fmt.Errorf("unsupported bucket granularity %q", granularity)
	}

	// granularity is validated above; date_trunc does not accept a
	// parameter for the field name.
	query := fmt.Sprintf(`
		SELECT date_trunc('%s', started_at) AS period, COUNT(*), AVG(cognitive_score)
		FROM conversations
		WHERE started_at >= $1
		GROUP BY period
		ORDER BY period ASC`, granularity)

	rows, err := r.conn(ctx).Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("score buckets: %w", err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Period, &b.Count, &b.AverageScore); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
