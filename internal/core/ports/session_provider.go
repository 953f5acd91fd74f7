package ports

import (
	"context"

	"github.com/finportal/portal/internal/core/domain"
)

// SessionProvider is the identity/session service as seen by one visitor.
// Every method may block on I/O and may fail.
type SessionProvider interface {
	// GetSession returns the current session, or nil when there is none.
	GetSession(ctx context.Context) (*domain.Session, error)
	// OnSessionChange registers fn for every session change of this visitor
	// and returns the function that unregisters it.
	OnSessionChange(fn func(domain.SessionEvent)) (unsubscribe func())
	SignInWithPassword(ctx context.Context, email, password string) error
	// SignUp creates the identity and returns its id. It does not sign in.
	SignUp(ctx context.Context, email, password string, metadata map[string]string) (userID string, err error)
	SignOut(ctx context.Context) error
	// DeleteIdentity removes an identity created by SignUp. Used only as the
	// compensation of a failed sign-up.
	DeleteIdentity(ctx context.Context, userID string) error
}
