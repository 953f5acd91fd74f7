package ports

import (
	"context"
	"time"

	"github.com/finportal/portal/internal/core/domain"
)

// LocalStore is visitor-scoped persisted key/value storage. It outlives the
// in-memory portal session of the visitor.
type LocalStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	// Take returns the value and removes it in one atomic step.
	Take(ctx context.Context, key string) (value string, ok bool, err error)
}

// NoticeStore keeps the notices currently visible to one visitor.
type NoticeStore interface {
	// Add stores n unless a notice with the same key is already visible.
	// It reports whether n was added.
	Add(ctx context.Context, n domain.Notice, ttl time.Duration) (bool, error)
	List(ctx context.Context) ([]domain.Notice, error)
	Remove(ctx context.Context, key string) error
}
