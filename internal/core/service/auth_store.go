package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

const defaultSettleTimeout = 5 * time.Second

// AuthStore holds the authentication state of one visitor. It is the only
// writer of that state: the initial session lookup clears loading, and the
// provider's change subscription owns the actor from then on.
type AuthStore struct {
	provider ports.SessionProvider
	saga     *SignupSaga
	log      zerolog.Logger
	settle   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.RWMutex
	actor       domain.Actor
	loading     bool
	eventSeen   bool
	closed      bool
	changed     chan struct{}
	ready       chan struct{}
	listeners   map[uint64]func(domain.AuthState)
	nextID      uint64
	unsubscribe func()

	initOnce  sync.Once
	closeOnce sync.Once
}

// NewAuthStore returns a store in the loading state. Nothing is fetched
// until the store is first used.
func NewAuthStore(provider ports.SessionProvider, records ports.RecordStore, log zerolog.Logger) *AuthStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &AuthStore{
		provider:  provider,
		saga:      NewSignupSaga(provider, records, log),
		log:       log,
		settle:    defaultSettleTimeout,
		ctx:       ctx,
		cancel:    cancel,
		loading:   true,
		changed:   make(chan struct{}),
		ready:     make(chan struct{}),
		listeners: make(map[uint64]func(domain.AuthState)),
	}
}

// Initialize subscribes to session changes and starts the one initial
// session lookup. Only the first call has any effect.
func (s *AuthStore) Initialize() {
	s.initOnce.Do(func() {
		s.mu.RLock()
		closed := s.closed
		s.mu.RUnlock()
		if closed {
			return
		}

		unsubscribe := s.provider.OnSessionChange(s.handleEvent)

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			unsubscribe()
			return
		}
		s.unsubscribe = unsubscribe
		s.mu.Unlock()

		go s.bootstrap(time.Now())
	})
}

func (s *AuthStore) bootstrap(start time.Time) {
	sess, err := s.provider.GetSession(s.ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("initial session lookup failed, resolving as anonymous")
		sess = nil
	}
	s.resolve(domain.ActorFromSession(sess))
	metrics.SessionBootstrapDuration.Observe(time.Since(start).Seconds())
}

// resolve ends the loading window. An actor already set by a change event is
// newer than the initial lookup and is kept.
func (s *AuthStore) resolve(actor domain.Actor) {
	s.mu.Lock()
	if !s.loading {
		s.mu.Unlock()
		return
	}
	if !s.eventSeen {
		s.actor = actor
	}
	s.loading = false
	close(s.ready)
	snap, listeners := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug().Str("actor", string(snap.Actor.Kind())).Msg("session resolved")
	notify(listeners, snap)
}

func (s *AuthStore) handleEvent(ev domain.SessionEvent) {
	var actor domain.Actor = domain.Anonymous{}
	if ev.Type != domain.EventSignedOut {
		actor = domain.ActorFromSession(ev.Session)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.eventSeen = true
	s.actor = actor
	snap, listeners := s.commitLocked()
	s.mu.Unlock()

	s.log.Debug().Str("event", string(ev.Type)).Str("actor", string(actor.Kind())).Msg("session changed")
	notify(listeners, snap)
}

// commitLocked publishes a write: it wakes waiters and returns the snapshot
// and the listeners to notify once the lock is released.
func (s *AuthStore) commitLocked() (domain.AuthState, []func(domain.AuthState)) {
	close(s.changed)
	s.changed = make(chan struct{})

	listeners := make([]func(domain.AuthState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	return s.snapshotLocked(), listeners
}

func (s *AuthStore) snapshotLocked() domain.AuthState {
	if s.loading {
		return domain.AuthState{Loading: true}
	}
	return domain.AuthState{Actor: s.actor}
}

func notify(listeners []func(domain.AuthState), st domain.AuthState) {
	for _, fn := range listeners {
		fn(st)
	}
}

// State returns the current state, initializing the store on first use.
func (s *AuthStore) State() domain.AuthState {
	s.Initialize()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Ready is closed once the initial session lookup has resolved.
func (s *AuthStore) Ready() <-chan struct{} {
	s.Initialize()
	return s.ready
}

// Wait blocks until the store has resolved or ctx is done.
func (s *AuthStore) Wait(ctx context.Context) error {
	select {
	case <-s.Ready():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to be called with a snapshot after every state
// change. The returned function unregisters it.
func (s *AuthStore) Subscribe(fn func(domain.AuthState)) (unsubscribe func()) {
	s.Initialize()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignIn signs the customer in with the provider. The state is updated by
// the change subscription; SignIn waits for that update so callers observe
// the signed-in actor on return.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) error {
	s.Initialize()

	if err := s.provider.SignInWithPassword(ctx, email, password); err != nil {
		s.log.Info().Err(err).Str("email", email).Msg("customer sign in rejected")
		metrics.SignInsTotal.WithLabelValues(string(domain.KindCustomer), "rejected").Inc()
		return domain.ErrInvalidCredentials
	}
	metrics.SignInsTotal.WithLabelValues(string(domain.KindCustomer), "ok").Inc()

	s.awaitActor(ctx, "sign in", func(a domain.Actor) bool {
		c, ok := a.(domain.Customer)
		return ok && strings.EqualFold(c.Email, email)
	})
	return nil
}

// SignUp runs the sign-up saga and returns the new customer identifier.
func (s *AuthStore) SignUp(ctx context.Context, req SignupRequest) (string, error) {
	return s.saga.Run(ctx, req)
}

// SignOut signs the customer out with the provider and waits for the
// subscription to report the anonymous actor.
func (s *AuthStore) SignOut(ctx context.Context) error {
	s.Initialize()

	if err := s.provider.SignOut(ctx); err != nil {
		s.log.Error().Err(err).Msg("sign out failed")
		return domain.ErrSignOutFailed
	}

	s.awaitActor(ctx, "sign out", domain.IsAnonymous)
	return nil
}

func (s *AuthStore) awaitActor(ctx context.Context, op string, match func(domain.Actor) bool) {
	ctx, cancel := context.WithTimeout(ctx, s.settle)
	defer cancel()

	for {
		s.mu.RLock()
		actor, loading, changed := s.actor, s.loading, s.changed
		s.mu.RUnlock()

		if !loading && match(actor) {
			return
		}

		select {
		case <-changed:
		case <-ctx.Done():
			s.log.Warn().Str("op", op).Msg("session change not observed before deadline")
			return
		case <-s.ctx.Done():
			return
		}
	}
}

// Close tears down the change subscription and drops all listeners.
func (s *AuthStore) Close() {
	s.closeOnce.Do(func() {
		s.cancel()

		s.mu.Lock()
		s.closed = true
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.listeners = make(map[uint64]func(domain.AuthState))
		s.mu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
	})
}
