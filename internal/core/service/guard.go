package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/pkg/metrics"
)

// GuardState is the state of a guarded view.
type GuardState string

const (
	GuardChecking      GuardState = "checking"
	GuardAuthenticated GuardState = "authenticated"
	GuardRedirecting   GuardState = "redirecting"
)

// Decision is the outcome of a guard evaluation. RedirectTo is set only when
// State is GuardRedirecting.
type Decision struct {
	State      GuardState `json:"state"`
	RedirectTo string     `json:"redirect_to,omitempty"`
}

// StateSource is the read side of the auth store.
type StateSource interface {
	State() domain.AuthState
	Subscribe(fn func(domain.AuthState)) (unsubscribe func())
}

// Guard gates whole views behind authentication. A visitor passes when the
// auth state holds a customer or the employee flag is set.
type Guard struct {
	auth      StateSource
	roles     *RoleResolver
	redirects *RedirectMemory
	notices   *NoticeBoard
	loginPath string
	notice    domain.Notice
	log       zerolog.Logger
}

func NewGuard(auth StateSource, roles *RoleResolver, redirects *RedirectMemory, notices *NoticeBoard, loginPath string, log zerolog.Logger) *Guard {
	return &Guard{
		auth:      auth,
		roles:     roles,
		redirects: redirects,
		notices:   notices,
		loginPath: loginPath,
		notice:    authRequiredNotice(),
		log:       log,
	}
}

func authRequiredNotice() domain.Notice {
	return domain.Notice{
		Key:     domain.NoticeAuthRequired,
		Level:   domain.NoticeWarning,
		Message: "Please sign in to continue.",
	}
}

// Evaluate decides for the current auth state. When the visitor is
// anonymous it records path in redirect memory and shows the sign-in notice.
func (g *Guard) Evaluate(ctx context.Context, path string) Decision {
	return g.decide(ctx, path, g.auth.State())
}

func (g *Guard) decide(ctx context.Context, path string, st domain.AuthState) Decision {
	var d Decision
	switch {
	case st.Loading:
		d = Decision{State: GuardChecking}
	case domain.IsAnonymous(st.Actor) && !g.roles.IsEmployee(ctx):
		d = g.redirect(ctx, path)
	default:
		d = Decision{State: GuardAuthenticated}
	}
	metrics.GuardDecisionsTotal.WithLabelValues(string(d.State)).Inc()
	return d
}

func (g *Guard) redirect(ctx context.Context, path string) Decision {
	if err := g.redirects.Record(ctx, path); err != nil {
		g.log.Warn().Err(err).Str("path", path).Msg("remember blocked destination")
	}
	g.notices.ShowOnce(ctx, g.notice)
	g.log.Debug().Str("path", path).Msg("guard redirecting to login")
	return Decision{State: GuardRedirecting, RedirectTo: g.loginPath}
}

// Mount keeps a guarded view in sync with the auth state. fn receives the
// initial decision and every later transition. Transitions only move forward
// (checking, authenticated, redirecting); redirecting is terminal and
// unmounts the view. fn must not call back into the returned mount.
func (g *Guard) Mount(ctx context.Context, path string, fn func(Decision)) *GuardMount {
	return g.mount(ctx, path, fn, nil)
}

// mount is Mount with a hook that runs once when the view is unmounted,
// including the automatic unmount on redirect.
func (g *Guard) mount(ctx context.Context, path string, fn func(Decision), release func()) *GuardMount {
	m := &GuardMount{guard: g, ctx: ctx, path: path, fn: fn, release: release}

	m.mu.Lock()
	m.unsubscribe = g.auth.Subscribe(m.apply)
	m.mu.Unlock()

	m.apply(g.auth.State())
	return m
}

// GuardMount is one mounted guarded view.
type GuardMount struct {
	guard *Guard
	ctx   context.Context
	path  string
	fn    func(Decision)

	release func()

	mu          sync.Mutex
	current     Decision
	emitted     bool
	done        bool
	unsubscribe func()
}

func (m *GuardMount) apply(st domain.AuthState) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	if m.emitted && st.Loading {
		m.mu.Unlock()
		return
	}

	d := m.guard.decide(m.ctx, m.path, st)
	if m.emitted && d.State == m.current.State {
		m.mu.Unlock()
		return
	}
	m.current = d
	m.emitted = true
	// fn runs under the lock so transitions reach it in order.
	m.fn(d)
	m.mu.Unlock()

	if d.State == GuardRedirecting {
		m.Unmount()
	}
}

// Current returns the last decision delivered.
func (m *GuardMount) Current() Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Unmount unregisters the view from the auth store. It is safe to call more
// than once.
func (m *GuardMount) Unmount() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	unsubscribe := m.unsubscribe
	m.unsubscribe = nil
	release := m.release
	m.release = nil
	m.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if release != nil {
		release()
	}
}
