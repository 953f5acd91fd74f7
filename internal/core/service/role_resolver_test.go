package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finportal/portal/internal/core/domain"
)

func TestRoleResolver_EmployeeCheckLeavesActorAlone(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	require.NoError(t, f.portal.Roles.CheckEmployeeCredentials(ctx, "Teller01", "Vault#9"))

	assert.True(t, f.portal.Roles.IsEmployee(ctx))
	assert.Equal(t, domain.Anonymous{}, f.portal.Auth.State().Actor)
	token, ok := f.local.peek(EmployeeSessionKey)
	require.True(t, ok)
	assert.Equal(t, "emp-token-Teller01", token)
}

func TestRoleResolver_WrongPasswordKeepsFlagOff(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := context.Background()

	err := f.portal.Roles.CheckEmployeeCredentials(ctx, "Teller01", "vault#9")

	assert.ErrorIs(t, err, domain.ErrInvalidEmployeeCredentials)
	assert.False(t, f.portal.Roles.IsEmployee(ctx))
}

func TestRoleResolver_WrongPasswordKeepsExistingFlag(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := context.Background()
	require.NoError(t, f.portal.Roles.CheckEmployeeCredentials(ctx, "Teller01", "Vault#9"))

	err := f.portal.Roles.CheckEmployeeCredentials(ctx, "Teller01", "nope")

	assert.ErrorIs(t, err, domain.ErrInvalidEmployeeCredentials)
	assert.True(t, f.portal.Roles.IsEmployee(ctx))
}

func TestRoleResolver_StoreFailure(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	f.records.checkErr = errors.New("connection refused")

	err := f.portal.Roles.CheckEmployeeCredentials(context.Background(), "Teller01", "Vault#9")

	assert.ErrorIs(t, err, domain.ErrEmployeeCheckFailed)
	assert.False(t, f.portal.Roles.IsEmployee(context.Background()))
}

func TestRoleResolver_CustomerSignInNeverSetsEmployeeFlag(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	ctx := waitCtx(t)
	require.NoError(t, f.portal.Auth.Wait(ctx))

	_, err := f.portal.SignIn(ctx, "ana@example.com", "s3cret")
	require.NoError(t, err)

	assert.False(t, f.portal.Roles.IsEmployee(ctx))
	_, ok := f.local.peek(EmployeeSessionKey)
	assert.False(t, ok)
}

func TestRoleResolver_StorageErrorReadsAsNotEmployee(t *testing.T) {
	f := newFixture()
	defer f.portal.Close()
	f.local.err = errors.New("redis: connection pool timeout")

	assert.False(t, f.portal.Roles.IsEmployee(context.Background()))
}

func TestResolve(t *testing.T) {
	customer := domain.Customer{SessionID: "s", UserID: "u", Email: "e@example.com"}

	tests := []struct {
		name     string
		state    domain.AuthState
		token    string
		want     domain.Actor
		employee bool
	}{
		{name: "loading", state: domain.AuthState{Loading: true}, token: "", want: nil},
		{name: "loading with employee flag", state: domain.AuthState{Loading: true}, token: "t", want: nil, employee: true},
		{name: "anonymous", state: domain.AuthState{Actor: domain.Anonymous{}}, want: domain.Anonymous{}},
		{name: "customer", state: domain.AuthState{Actor: customer}, want: customer},
		{name: "employee", state: domain.AuthState{Actor: domain.Anonymous{}}, token: "t", want: domain.Employee{EmployeeToken: "t"}, employee: true},
		{name: "customer wins over employee flag", state: domain.AuthState{Actor: customer}, token: "t", want: customer, employee: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := Resolve(tc.state, tc.token)
			assert.Equal(t, tc.want, v.Actor)
			assert.Equal(t, tc.employee, v.Employee)
			assert.Equal(t, tc.state.Loading, v.Loading)
		})
	}
}
