package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

// PortalConfig holds the navigation targets and timings shared by all
// visitors.
type PortalConfig struct {
	LoginPath       string
	DefaultLanding  string
	EmployeeLanding string
	NoticeTTL       time.Duration
	SettleTimeout   time.Duration
}

func (c PortalConfig) withDefaults() PortalConfig {
	if c.LoginPath == "" {
		c.LoginPath = "/login"
	}
	if c.DefaultLanding == "" {
		c.DefaultLanding = "/profile"
	}
	if c.EmployeeLanding == "" {
		c.EmployeeLanding = "/employee"
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = defaultSettleTimeout
	}
	return c
}

// VisitorDeps are the collaborators bound to one visitor.
type VisitorDeps struct {
	Sessions ports.SessionProvider
	Local    ports.LocalStore
	Notices  ports.NoticeStore
}

// Portal is the access-control state of one visitor: its auth store and the
// guard, dispatcher and redirect memory built on top of it.
type Portal struct {
	VisitorID string

	Auth      *AuthStore
	Roles     *RoleResolver
	Redirects *RedirectMemory
	Notices   *NoticeBoard
	Guard     *Guard
	Actions   *ActionDispatcher

	cfg      PortalConfig
	log      zerolog.Logger
	lastSeen atomic.Int64
	mounts   atomic.Int64
}

func NewPortal(visitorID string, deps VisitorDeps, records ports.RecordStore, cfg PortalConfig, log zerolog.Logger) *Portal {
	cfg = cfg.withDefaults()
	log = log.With().Str("visitor_id", visitorID).Logger()

	auth := NewAuthStore(deps.Sessions, records, log)
	auth.settle = cfg.SettleTimeout
	roles := NewRoleResolver(records, deps.Local, log)
	redirects := NewRedirectMemory(deps.Local, cfg.DefaultLanding, log)
	notices := NewNoticeBoard(deps.Notices, cfg.NoticeTTL, log)

	p := &Portal{
		VisitorID: visitorID,
		Auth:      auth,
		Roles:     roles,
		Redirects: redirects,
		Notices:   notices,
		Guard:     NewGuard(auth, roles, redirects, notices, cfg.LoginPath, log),
		Actions:   NewActionDispatcher(deps.Sessions, redirects, notices, cfg.LoginPath, log),
		cfg:       cfg,
		log:       log,
	}
	p.Touch()
	return p
}

// SignIn signs the customer in and returns where to navigate next: the
// remembered destination, or the default landing path.
func (p *Portal) SignIn(ctx context.Context, email, password string) (string, error) {
	if err := p.Auth.SignIn(ctx, email, password); err != nil {
		return "", err
	}
	return p.Redirects.Consume(ctx), nil
}

// EmployeeSignIn checks employee credentials and returns where to navigate
// next. The customer auth state is not touched.
func (p *Portal) EmployeeSignIn(ctx context.Context, username, password string) (string, error) {
	if err := p.Roles.CheckEmployeeCredentials(ctx, username, password); err != nil {
		return "", err
	}
	return p.Redirects.ConsumeOr(ctx, p.cfg.EmployeeLanding), nil
}

func (p *Portal) SignUp(ctx context.Context, req SignupRequest) (string, error) {
	return p.Auth.SignUp(ctx, req)
}

// SignOut clears the employee flag and ends the customer session.
func (p *Portal) SignOut(ctx context.Context) error {
	if err := p.Roles.Clear(ctx); err != nil {
		p.log.Warn().Err(err).Msg("clear employee session")
	}
	return p.Auth.SignOut(ctx)
}

// Viewer returns the resolved actor for the UI layer.
func (p *Portal) Viewer(ctx context.Context) domain.Viewer {
	token, err := p.Roles.EmployeeToken(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("read employee session")
	}
	return Resolve(p.Auth.State(), token)
}

// Mount mounts a guarded view for path. While any view is mounted the
// portal is not evicted, so the view keeps following sign-in and sign-out.
func (p *Portal) Mount(ctx context.Context, path string, fn func(Decision)) *GuardMount {
	p.mounts.Add(1)
	p.Touch()
	return p.Guard.mount(ctx, path, fn, func() {
		p.mounts.Add(-1)
		p.Touch()
	})
}

// LoginPath is where blocked visitors are sent.
func (p *Portal) LoginPath() string { return p.cfg.LoginPath }

// Touch marks the portal as used now.
func (p *Portal) Touch() { p.lastSeen.Store(time.Now().UnixNano()) }

func (p *Portal) idleSince() time.Time { return time.Unix(0, p.lastSeen.Load()) }

// evictable reports whether the portal has no mounted view and has not been
// used since cutoff.
func (p *Portal) evictable(cutoff time.Time) bool {
	return p.mounts.Load() == 0 && p.idleSince().Before(cutoff)
}

// Close releases the auth store subscription.
func (p *Portal) Close() { p.Auth.Close() }
