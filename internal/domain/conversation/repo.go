package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no conversation matches the lookup.
var ErrNotFound = errors.New("conversation not found")

// Repository is the persistence boundary for conversations.
type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	Update(ctx context.Context, c *Conversation) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Conversation, int, error)
	ListRecentCompleted(ctx context.Context, userID uuid.UUID, n int) ([]*Conversation, error)
}

// MessageRepository is the persistence boundary for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
}
