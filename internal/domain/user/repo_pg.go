package user

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

// PGRepository is the pgx-backed user repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository creates a user repository backed by the given pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, email, password_hash, first_name, last_name, date_of_birth, gender,
	phone_number, education_level, occupation, family_history, medical_history,
	risk_level, last_assessment_date, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.DateOfBirth,
		&u.Gender, &u.PhoneNumber, &u.EducationLevel, &u.Occupation, &u.FamilyHistory,
		&u.MedicalHistory, &u.RiskLevel, &u.LastAssessmentDate, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PGRepository) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.RiskLevel == "" {
		u.RiskLevel = "low"
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, date_of_birth,
			gender, phone_number, education_level, occupation, family_history,
			medical_history, risk_level, last_assessment_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.DateOfBirth,
		u.Gender, u.PhoneNumber, u.EducationLevel, u.Occupation, u.FamilyHistory,
		u.MedicalHistory, u.RiskLevel, u.LastAssessmentDate, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *PGRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+userCols+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *PGRepository) Update(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET first_name = $2, last_name = $3, date_of_birth = $4, gender = $5,
			phone_number = $6, education_level = $7, occupation = $8, family_history = $9,
			medical_history = $10, updated_at = $11
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.DateOfBirth, u.Gender, u.PhoneNumber,
		u.EducationLevel, u.Occupation, u.FamilyHistory, u.MedicalHistory, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpdateRisk(ctx context.Context, id uuid.UUID, riskLevel string, lastAssessment time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET risk_level = $2, last_assessment_date = $3, updated_at = $4
		WHERE id = $1`,
		id, riskLevel, lastAssessment, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update user risk: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`,
		id, passwordHash, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (r *PGRepository) SummaryStats(ctx context.Context, id uuid.UUID) (*SummaryStats, error) {
	var s SummaryStats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM conversations WHERE user_id = $1),
			(SELECT COUNT(*) FROM cognitive_assessments WHERE user_id = $1)`,
		id,
	).Scan(&s.ConversationCount, &s.AssessmentCount)
	if err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	row := r.conn(ctx).QueryRow(ctx, `
		SELECT total_score, assessment_type, health_status, completed_at
		FROM cognitive_assessments
		WHERE user_id = $1
		ORDER BY completed_at DESC
		LIMIT 1`, id)
	var (
		score       int
		aType       string
		status      string
		completedAt time.Time
	)
	if err := row.Scan(&score, &aType, &status, &completedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &s, nil
		}
		return nil, fmt.Errorf("latest assessment: %w", err)
	}
	s.LatestAssessmentScore = &score
	s.LatestAssessmentType = &aType
	s.LatestHealthStatus = &status
	s.LatestAssessmentDate = &completedAt
	return &s, nil
}
