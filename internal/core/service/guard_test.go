package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finportal/portal/internal/core/domain"
)

type decisionLog struct {
	mu   sync.Mutex
	seen []GuardState
}

func (l *decisionLog) add(d Decision) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, d.State)
}

func (l *decisionLog) states() []GuardState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]GuardState(nil), l.seen...)
}

func TestGuard_CheckingWhileLoading(t *testing.T) {
	f := newFixture()
	f.provider.getGate = make(chan struct{})
	defer close(f.provider.getGate)
	defer f.portal.Close()

	d := f.portal.Guard.Evaluate(context.Background(), "/loans")

	assert.Equal(t, Decision{State: GuardChecking}, d)
	_, ok := f.local.peek(RedirectKey)
	assert.False(t, ok, "nothing is remembered before the session resolves")
	assert.Equal(t, 0, f.notices.count(domain.NoticeAuthRequired))
}

func TestGuard_AnonymousIsRedirected(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	d := f.portal.Guard.Evaluate(ctx, "/credit-cards")

	assert.Equal(t, Decision{State: GuardRedirecting, RedirectTo: "/login"}, d)
	path, ok := f.local.peek(RedirectKey)
	require.True(t, ok)
	assert.Equal(t, "/credit-cards", path)
}

func TestGuard_RepeatedRedirectsShowOneNotice(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	for i := 0; i < 4; i++ {
		f.portal.Guard.Evaluate(ctx, "/insurance")
	}

	assert.Equal(t, 1, f.notices.count(domain.NoticeAuthRequired))
	notices, err := f.portal.Notices.List(ctx)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
}

func TestGuard_Passes(t *testing.T) {
	t.Run("customer", func(t *testing.T) {
		f := newFixture()
		defer f.portal.Close()
		ctx := waitCtx(t)
		require.NoError(t, f.portal.Auth.Wait(ctx))
		require.NoError(t, f.portal.Auth.SignIn(ctx, "ana@example.com", "s3cret"))

		assert.Equal(t, GuardAuthenticated, f.portal.Guard.Evaluate(ctx, "/loans").State)
	})

	t.Run("employee", func(t *testing.T) {
		f := newFixture()
		defer f.portal.Close()
		ctx := waitCtx(t)
		require.NoError(t, f.portal.Auth.Wait(ctx))
		require.NoError(t, f.portal.Roles.CheckEmployeeCredentials(ctx, "Teller01", "Vault#9"))

		assert.Equal(t, GuardAuthenticated, f.portal.Guard.Evaluate(ctx, "/loans").State)
		_, ok := f.local.peek(RedirectKey)
		assert.False(t, ok)
	})
}

func TestGuardMount_CheckingThenRedirecting(t *testing.T) {
	f := newFixture()
	f.provider.getGate = make(chan struct{})
	defer f.portal.Close()

	log := &decisionLog{}
	m := f.portal.Guard.Mount(context.Background(), "/credit-cards", log.add)
	assert.Equal(t, []GuardState{GuardChecking}, log.states())

	close(f.provider.getGate)

	require.Eventually(t, func() bool { return len(log.states()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []GuardState{GuardChecking, GuardRedirecting}, log.states())
	assert.Equal(t, "/login", m.Current().RedirectTo)
}

func TestGuardMount_SignOutRedirectsAndUnmounts(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))
	require.NoError(t, f.portal.Auth.SignIn(ctx, "ana@example.com", "s3cret"))

	log := &decisionLog{}
	f.portal.Guard.Mount(ctx, "/profile", log.add)
	require.Equal(t, []GuardState{GuardAuthenticated}, log.states())

	// A token refresh keeps the view authenticated and is not re-emitted.
	f.provider.emit(domain.SessionEvent{Type: domain.EventTokenRefreshed, Session: &domain.Session{ID: "s", UserID: "u", Email: "ana@example.com"}})
	assert.Equal(t, []GuardState{GuardAuthenticated}, log.states())

	require.NoError(t, f.portal.Auth.SignOut(ctx))
	assert.Equal(t, []GuardState{GuardAuthenticated, GuardRedirecting}, log.states())

	require.NoError(t, f.portal.Auth.SignIn(ctx, "ana@example.com", "s3cret"))
	assert.Len(t, log.states(), 2, "an unmounted view receives nothing")
}

func TestGuardMount_Unmount(t *testing.T) {
	f := newFixture()
	f.provider.getGate = make(chan struct{})
	defer f.portal.Close()

	log := &decisionLog{}
	m := f.portal.Guard.Mount(context.Background(), "/loans", log.add)
	m.Unmount()
	m.Unmount()

	close(f.provider.getGate)
	require.NoError(t, f.portal.Auth.Wait(waitCtx(t)))

	assert.Equal(t, []GuardState{GuardChecking}, log.states())
	_, ok := f.local.peek(RedirectKey)
	assert.False(t, ok, "navigating away mid-check must not remember the page")
}
