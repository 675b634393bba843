package conversation

import (
	"time"

	"github.com/google/uuid"

	"github.com/cogniguard/cogniguard/internal/scoring"
)

// Conversation types.
const (
	TypeDaily       = "daily"
	TypeAssessment  = "assessment"
	TypeTherapeutic = "therapeutic"
)

// Conversation statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Message senders.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Conversation maps to the conversations table. Cognitive sub-scores stay
// nil until the conversation is analyzed.
type Conversation struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          uuid.UUID  `db:"user_id" json:"user_id"`
	Title           string     `db:"title" json:"title"`
	Type            string     `db:"conversation_type" json:"type"`
	Status          string     `db:"status" json:"status"`
	Duration        int        `db:"duration" json:"duration"`
	MoodScore       *float64   `db:"mood_score" json:"mood_score,omitempty"`
	EngagementScore *float64   `db:"engagement_score" json:"engagement_score,omitempty"`
	CognitiveScore  *int       `db:"cognitive_score" json:"cognitive_score,omitempty"`
	MemoryScore     *int       `db:"memory_score" json:"memory_score,omitempty"`
	AttentionScore  *int       `db:"attention_score" json:"attention_score,omitempty"`
	LanguageScore   *int       `db:"language_score" json:"language_score,omitempty"`
	ExecutiveScore  *int       `db:"executive_score" json:"executive_score,omitempty"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the conversation_messages table. Metrics are computed
// exactly once for user messages before persistence and never recomputed.
type Message struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	ConversationID uuid.UUID        `db:"conversation_id" json:"conversation_id"`
	Sender         string           `db:"sender" json:"sender"`
	Content        string           `db:"content" json:"content"`
	Timestamp      time.Time        `db:"message_timestamp" json:"timestamp"`
	Metrics        *scoring.Metrics `db:"metrics" json:"metrics,omitempty"`
}

// ValidType reports whether t is a recognized conversation type.
func ValidType(t string) bool {
	return t == TypeDaily || t == TypeAssessment || t == TypeTherapeutic
}
