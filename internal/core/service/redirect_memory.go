package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

// RedirectKey is the local storage key holding the pending destination.
const RedirectKey = "portal.redirect_to"

// RedirectMemory is a single slot remembering where a blocked visitor was
// trying to go. Last write wins.
type RedirectMemory struct {
	local    ports.LocalStore
	fallback string
	log      zerolog.Logger
}

func NewRedirectMemory(local ports.LocalStore, fallback string, log zerolog.Logger) *RedirectMemory {
	return &RedirectMemory{local: local, fallback: fallback, log: log}
}

// Record overwrites the slot with path. Only local paths are accepted.
func (m *RedirectMemory) Record(ctx context.Context, path string) error {
	if !IsLocalPath(path) {
		m.log.Warn().Str("path", path).Msg("refusing to remember non-local redirect")
		return domain.ErrUnsafeRedirect
	}
	return m.local.Set(ctx, RedirectKey, path)
}

// Consume empties the slot and returns what it held, or the default landing
// path when it was empty.
func (m *RedirectMemory) Consume(ctx context.Context) string {
	return m.ConsumeOr(ctx, m.fallback)
}

// ConsumeOr is Consume with an explicit fallback.
func (m *RedirectMemory) ConsumeOr(ctx context.Context, fallback string) string {
	path, ok, err := m.local.Take(ctx, RedirectKey)
	if err != nil {
		m.log.Warn().Err(err).Msg("read redirect memory")
		return fallback
	}
	if !ok || !IsLocalPath(path) {
		return fallback
	}
	return path
}

// IsLocalPath reports whether p is an absolute path on this site: it starts
// with a single slash and carries no scheme or host.
func IsLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == ""
}
