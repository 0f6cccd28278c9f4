package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SessionStore persists conversation sessions for the configured
// retention window. Session history may be memory-only; durability is
// not part of the contract.
type SessionStore interface {
	// Get retrieves a session by ID.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Save stores or updates a session.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// DeleteIdle removes sessions whose LastActive is older than the
	// cutoff and returns how many were removed.
	DeleteIdle(ctx context.Context, cutoff time.Time) (int, error)
}
