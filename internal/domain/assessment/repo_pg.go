package assessment

import (
	"context"
	"errors"
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

// PGRepository is the pgx-backed assessment repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository creates an assessment repository backed by the given pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const assessmentCols = `id, user_id, assessment_type, status, total_score, max_score,
	percentage, domain_scores, health_status, risk_level, recommendations,
	next_assessment_date, completed_at, created_at`

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	err := row.Scan(
		&a.ID, &a.UserID, &a.Type, &a.Status, &a.TotalScore, &a.MaxScore,
		&a.Percentage, &a.DomainScores, &a.HealthStatus, &a.RiskLevel,
		&a.Recommendations, &a.NextAssessmentDate, &a.CompletedAt, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *PGRepository) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO cognitive_assessments (id, user_id, assessment_type, status, total_score,
			max_score, percentage, domain_scores, health_status, risk_level,
			recommendations, next_assessment_date, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.ID, a.UserID, a.Type, a.Status, a.TotalScore, a.MaxScore, a.Percentage,
		a.DomainScores, a.HealthStatus, a.RiskLevel, a.Recommendations,
		a.NextAssessmentDate, a.CompletedAt, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM cognitive_assessments WHERE id = $1`, id)
	return scanAssessment(row)
}

func (r *PGRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Assessment, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cognitive_assessments WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+assessmentCols+` FROM cognitive_assessments
		WHERE user_id = $1 ORDER BY completed_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*Assessment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+assessmentCols+` FROM cognitive_assessments
		WHERE user_id = $1 AND completed_at >= $2 ORDER BY completed_at ASC`,
		userID, since)
	if err != nil {
		return nil, fmt.Errorf("list assessments since: %w", err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
