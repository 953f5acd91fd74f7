package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finportal/portal/internal/core/domain"
)

func TestPortal_RedirectRoundTrip(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	d := f.portal.Guard.Evaluate(ctx, "/credit-cards")
	require.Equal(t, GuardRedirecting, d.State)
	require.Equal(t, "/login", d.RedirectTo)

	landing, err := f.portal.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "/credit-cards", landing)
	_, ok := f.local.peek(RedirectKey)
	assert.False(t, ok)
	assert.Equal(t, GuardAuthenticated, f.portal.Guard.Evaluate(ctx, "/credit-cards").State)

	require.NoError(t, f.portal.SignOut(ctx))
	landing, err = f.portal.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "/profile", landing)
}

func TestPortal_FailedSignInKeepsRedirect(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))
	f.portal.Guard.Evaluate(ctx, "/loans")

	_, err := f.portal.SignIn(ctx, "ana@example.com", "bad")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	landing, err := f.portal.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "/loans", landing)
}

func TestPortal_EmployeeSignIn(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	landing, err := f.portal.EmployeeSignIn(ctx, "Teller01", "Vault#9")
	require.NoError(t, err)
	assert.Equal(t, "/employee", landing)

	v := f.portal.Viewer(ctx)
	assert.True(t, v.Employee)
	assert.Equal(t, domain.KindEmployee, v.Actor.Kind())
	assert.True(t, domain.IsAnonymous(f.portal.Auth.State().Actor))
}

func TestPortal_EmployeeSignInHonoursRedirect(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))
	f.portal.Guard.Evaluate(ctx, "/insurance")

	landing, err := f.portal.EmployeeSignIn(ctx, "Teller01", "Vault#9")
	require.NoError(t, err)
	assert.Equal(t, "/insurance", landing)
}

func TestPortal_SignOutClearsEmployeeFlag(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))
	_, err := f.portal.EmployeeSignIn(ctx, "Teller01", "Vault#9")
	require.NoError(t, err)

	require.NoError(t, f.portal.SignOut(ctx))

	v := f.portal.Viewer(ctx)
	assert.False(t, v.Employee)
	assert.Equal(t, domain.Anonymous{}, v.Actor)
}

func TestPortal_SignUp(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()

	id, err := f.portal.SignUp(waitCtx(t), signupReq())

	require.NoError(t, err)
	assert.Equal(t, "CUST-000001", id)
}

func TestPortalConfig_Defaults(t *testing.T) {
	cfg := PortalConfig{}.withDefaults()

	assert.Equal(t, "/login", cfg.LoginPath)
	assert.Equal(t, "/profile", cfg.DefaultLanding)
	assert.Equal(t, "/employee", cfg.EmployeeLanding)
	assert.Equal(t, defaultSettleTimeout, cfg.SettleTimeout)
}
