package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

const defaultNoticeTTL = 5 * time.Second

// NoticeBoard owns the set of notices visible to a visitor. A keyed notice is
// shown at most once while it is visible; it stops being visible when
// dismissed or after the display TTL.
type NoticeBoard struct {
	store ports.NoticeStore
	ttl   time.Duration
	log   zerolog.Logger
}

func NewNoticeBoard(store ports.NoticeStore, ttl time.Duration, log zerolog.Logger) *NoticeBoard {
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	return &NoticeBoard{store: store, ttl: ttl, log: log}
}

// ShowOnce shows n unless a notice with the same key is already visible.
// It reports whether n was shown.
func (b *NoticeBoard) ShowOnce(ctx context.Context, n domain.Notice) bool {
	added, err := b.store.Add(ctx, n, b.ttl)
	if err != nil {
		b.log.Warn().Err(err).Str("key", n.Key).Msg("show notice")
		return false
	}
	if !added {
		metrics.NoticesTotal.WithLabelValues("suppressed").Inc()
		return false
	}
	metrics.NoticesTotal.WithLabelValues("shown").Inc()
	return true
}

// Show shows a one-shot notice under a fresh key.
func (b *NoticeBoard) Show(ctx context.Context, level domain.NoticeLevel, message string) {
	b.ShowOnce(ctx, domain.Notice{Key: uuid.NewString(), Level: level, Message: message})
}

func (b *NoticeBoard) List(ctx context.Context) ([]domain.Notice, error) {
	return b.store.List(ctx)
}

func (b *NoticeBoard) Dismiss(ctx context.Context, key string) error {
	return b.store.Remove(ctx, key)
}
