package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no assessment matches the lookup.
var ErrNotFound = errors.New("assessment not found")

// Repository is the persistence boundary for assessments.
type Repository interface {
	Create(ctx context.Context, a *Assessment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Assessment, int, error)
	// ListSince returns the user's assessments completed on or after the
	// given time, oldest first.
	ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*Assessment, error)
}
