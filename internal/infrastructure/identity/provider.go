// Package identity is the session provider backing customer accounts. It
// stores identities through a ports.IdentityRepository, issues signed session
// tokens kept in the visitor's local storage, and announces every session
// change on an event bus.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
)

// SessionTokenKey is the local storage key holding the session token.
const SessionTokenKey = "portal.session_token"

const defaultSessionTTL = 24 * time.Hour

// EventBus carries session events to the listeners of a visitor.
type EventBus interface {
	Publish(ctx context.Context, visitorID string, ev domain.SessionEvent) error
	Subscribe(visitorID string, fn func(domain.SessionEvent)) (unsubscribe func())
}

// Provider holds what all visitors share. Use ForVisitor to get the
// ports.SessionProvider of one visitor.
type Provider struct {
	repo   ports.IdentityRepository
	bus    EventBus
	secret []byte
	ttl    time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

func NewProvider(repo ports.IdentityRepository, bus EventBus, secret string, ttl time.Duration, log zerolog.Logger) *Provider {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &Provider{
		repo:   repo,
		bus:    bus,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log.With().Str("component", "identity").Logger(),
		now:    time.Now,
	}
}

// ForVisitor binds the provider to a visitor and its local storage.
func (p *Provider) ForVisitor(visitorID string, local ports.LocalStore) *Client {
	return &Client{
		provider:  p,
		visitorID: visitorID,
		local:     local,
		log:       p.log.With().Str("visitor_id", visitorID).Logger(),
	}
}

type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *sessionClaims) session() *domain.Session {
	s := &domain.Session{ID: c.ID, UserID: c.Subject, Email: c.Email}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s
}

// issue signs a token for the session identified by sessionID.
func (p *Provider) issue(sessionID, userID, email string) (string, *domain.Session, error) {
	now := p.now()
	claims := &sessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims.session(), nil
}

func (p *Provider) parse(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(p.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// needsRefresh reports whether less than a quarter of the TTL is left.
func (p *Provider) needsRefresh(expiresAt time.Time) bool {
	return expiresAt.Sub(p.now()) < p.ttl/4
}

// Client is the session provider of one visitor.
type Client struct {
	provider  *Provider
	visitorID string
	local     ports.LocalStore
	log       zerolog.Logger
}

var _ ports.SessionProvider = (*Client)(nil)

// GetSession returns the session of the stored token. An expired or invalid
// token is dropped and reported as signed out; a token close to expiry is
// refreshed.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	raw, ok, err := c.local.Get(ctx, SessionTokenKey)
	if err != nil {
		return nil, fmt.Errorf("read session token: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	claims, err := c.provider.parse(raw)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			c.log.Info().Msg("session expired")
		} else {
			c.log.Warn().Err(err).Msg("discarding invalid session token")
		}
		if err := c.local.Delete(ctx, SessionTokenKey); err != nil {
			return nil, fmt.Errorf("drop session token: %w", err)
		}
		c.publish(ctx, domain.SessionEvent{Type: domain.EventSignedOut})
		return nil, nil
	}

	sess := claims.session()
	if !c.provider.needsRefresh(sess.ExpiresAt) {
		return sess, nil
	}

	token, refreshed, err := c.provider.issue(sess.ID, sess.UserID, sess.Email)
	if err != nil {
		c.log.Warn().Err(err).Msg("refresh session token")
		return sess, nil
	}
	if err := c.local.Set(ctx, SessionTokenKey, token); err != nil {
		c.log.Warn().Err(err).Msg("store refreshed session token")
		return sess, nil
	}
	c.publish(ctx, domain.SessionEvent{Type: domain.EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

func (c *Client) OnSessionChange(fn func(domain.SessionEvent)) func() {
	return c.provider.bus.Subscribe(c.visitorID, fn)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return domain.ErrInvalidCredentials
	}

	identity, err := c.provider.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrInvalidCredentials
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		return domain.ErrInvalidCredentials
	}

	token, sess, err := c.provider.issue(uuid.NewString(), identity.ID, identity.Email)
	if err != nil {
		return err
	}
	if err := c.local.Set(ctx, SessionTokenKey, token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}

	c.log.Info().Str("user_id", identity.ID).Msg("session started")
	c.publish(ctx, domain.SessionEvent{Type: domain.EventSignedIn, Session: sess})
	return nil
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	created, err := c.provider.repo.Create(ctx, &domain.Identity{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     metadata["full_name"],
		Phone:        metadata["phone"],
		CreatedAt:    c.provider.now().UTC(),
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := c.local.Delete(ctx, SessionTokenKey); err != nil {
		return fmt.Errorf("drop session token: %w", err)
	}
	c.publish(ctx, domain.SessionEvent{Type: domain.EventSignedOut})
	return nil
}

func (c *Client) DeleteIdentity(ctx context.Context, userID string) error {
	if err := c.provider.repo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete identity %s: %w", userID, err)
	}
	c.log.Warn().Str("user_id", userID).Msg("identity deleted")
	return nil
}

// publish announces ev. A lost event leaves listeners stale until the next
// change, so it is logged rather than failing the operation that caused it.
func (c *Client) publish(ctx context.Context, ev domain.SessionEvent) {
	if err := c.provider.bus.Publish(ctx, c.visitorID, ev); err != nil {
		c.log.Error().Err(err).Str("event", string(ev.Type)).Msg("publish session event")
	}
}
