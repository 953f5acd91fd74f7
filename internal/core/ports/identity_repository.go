package ports

import (
	"context"

	"github.com/finportal/portal/internal/core/domain"
)

// IdentityRepository persists the accounts owned by the identity provider.
type IdentityRepository interface {
	// Create returns domain.ErrIdentityExists when the email is taken.
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	// FindByEmail returns domain.ErrIdentityNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// Delete returns domain.ErrIdentityNotFound when id is unknown.
	Delete(ctx context.Context, id string) error
}
