package ports

import (
	"context"

	"github.com/finportal/portal/internal/core/domain"
)

// RecordStore is the relational store holding customer profiles and the
// employee credential check.
type RecordStore interface {
	GenerateCustomerID(ctx context.Context) (string, error)
	InsertCustomerProfile(ctx context.Context, profile *domain.CustomerProfile) error
	// ReadCustomerProfile returns domain.ErrProfileNotFound when no row exists.
	ReadCustomerProfile(ctx context.Context, userID string) (*domain.CustomerProfile, error)
	// CheckEmployeeCredentials returns an opaque employee token on an exact,
	// case-sensitive match and domain.ErrInvalidEmployeeCredentials otherwise.
	CheckEmployeeCredentials(ctx context.Context, username, password string) (string, error)
}
