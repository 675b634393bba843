package conversation

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

// PGRepository is the pgx-backed conversation repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository creates a conversation repository backed by the given pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const conversationCols = `id, user_id, title, conversation_type, status, duration,
	mood_score, engagement_score, cognitive_score, memory_score, attention_score,
	language_score, executive_score, started_at, ended_at, created_at, updated_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.ID, &c.UserID, &c.Title, &c.Type, &c.Status, &c.Duration,
		&c.MoodScore, &c.EngagementScore, &c.CognitiveScore, &c.MemoryScore,
		&c.AttentionScore, &c.LanguageScore, &c.ExecutiveScore,
		&c.StartedAt, &c.EndedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Conversation) error {
	c.ID = uuid.New()
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.StartedAt.IsZero() {
		c.StartedAt = now
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO conversations (id, user_id, title, conversation_type, status, duration,
			mood_score, engagement_score, cognitive_score, memory_score, attention_score,
			language_score, executive_score, started_at, ended_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.ID, c.UserID, c.Title, c.Type, c.Status, c.Duration,
		c.MoodScore, c.EngagementScore, c.CognitiveScore, c.MemoryScore, c.AttentionScore,
		c.LanguageScore, c.ExecutiveScore, c.StartedAt, c.EndedAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id)
	return scanConversation(row)
}

func (r *PGRepository) Update(ctx context.Context, c *Conversation) error {
	c.UpdatedAt = time.Now()
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE conversations SET title = $2, status = $3, duration = $4, mood_score = $5,
			engagement_score = $6, cognitive_score = $7, memory_score = $8,
			attention_score = $9, language_score = $10, executive_score = $11,
			ended_at = $12, updated_at = $13
		WHERE id = $1`,
		c.ID, c.Title, c.Status, c.Duration, c.MoodScore, c.EngagementScore,
		c.CognitiveScore, c.MemoryScore, c.AttentionScore, c.LanguageScore,
		c.ExecutiveScore, c.EndedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conversationCols+` FROM conversations
		WHERE user_id = $1 ORDER BY started_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *PGRepository) ListRecentCompleted(ctx context.Context, userID uuid.UUID, n int) ([]*Conversation, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conversationCols+` FROM conversations
		WHERE user_id = $1 AND status = $2 ORDER BY started_at DESC LIMIT $3`,
		userID, StatusCompleted, n)
	if err != nil {
		return nil, fmt.Errorf("list recent conversations: %w", err)
	}
	defer rows.Close()

	var out []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PGMessageRepository is the pgx-backed message repository. Metrics persist
// as JSONB.
type PGMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPGMessageRepository creates a message repository backed by the given pool.
func NewPGMessageRepository(pool *pgxpool.Pool) *PGMessageRepository {
	return &PGMessageRepository{pool: pool}
}

func (r *PGMessageRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PGMessageRepository) Create(ctx context.Context, m *Message) error {
	m.ID = uuid.New()
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO conversation_messages (id, conversation_id, sender, content, message_timestamp, metrics)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.ConversationID, m.Sender, m.Content, m.Timestamp, m.Metrics,
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *PGMessageRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, conversation_id, sender, content, message_timestamp, metrics
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY message_timestamp ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Timestamp, &m.Metrics); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
