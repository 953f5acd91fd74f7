package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

// EmployeeSessionKey is the local storage key holding the employee token.
const EmployeeSessionKey = "portal.employee_session"

// RoleResolver tracks the employee role. Employee status never comes from the
// session provider: it is set by a successful credential check against the
// record store and persisted in the visitor's local storage.
type RoleResolver struct {
	records ports.RecordStore
	local   ports.LocalStore
	log     zerolog.Logger
}

func NewRoleResolver(records ports.RecordStore, local ports.LocalStore, log zerolog.Logger) *RoleResolver {
	return &RoleResolver{records: records, local: local, log: log}
}

// CheckEmployeeCredentials sets the employee flag on an exact match. On a
// mismatch the flag is left as it was.
func (r *RoleResolver) CheckEmployeeCredentials(ctx context.Context, username, password string) error {
	token, err := r.records.CheckEmployeeCredentials(ctx, username, password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidEmployeeCredentials) {
			metrics.SignInsTotal.WithLabelValues(string(domain.KindEmployee), "rejected").Inc()
			r.log.Info().Str("username", username).Msg("employee credentials rejected")
			return domain.ErrInvalidEmployeeCredentials
		}
		metrics.SignInsTotal.WithLabelValues(string(domain.KindEmployee), "error").Inc()
		r.log.Error().Err(err).Str("username", username).Msg("employee credential check failed")
		return domain.ErrEmployeeCheckFailed
	}

	if err := r.local.Set(ctx, EmployeeSessionKey, token); err != nil {
		metrics.SignInsTotal.WithLabelValues(string(domain.KindEmployee), "error").Inc()
		r.log.Error().Err(err).Msg("persist employee session")
		return domain.ErrEmployeeCheckFailed
	}

	metrics.SignInsTotal.WithLabelValues(string(domain.KindEmployee), "ok").Inc()
	r.log.Info().Str("username", username).Msg("employee signed in")
	return nil
}

// EmployeeToken returns the persisted employee token, or "" when the
// employee flag is not set.
func (r *RoleResolver) EmployeeToken(ctx context.Context) (string, error) {
	token, ok, err := r.local.Get(ctx, EmployeeSessionKey)
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}

// IsEmployee reports the employee flag. A storage failure reads as false.
func (r *RoleResolver) IsEmployee(ctx context.Context) bool {
	token, err := r.EmployeeToken(ctx)
	if err != nil {
		r.log.Warn().Err(err).Msg("read employee session")
		return false
	}
	return token != ""
}

// Clear drops the employee flag.
func (r *RoleResolver) Clear(ctx context.Context) error {
	return r.local.Delete(ctx, EmployeeSessionKey)
}

// Resolve combines the auth state and the employee token into the view the UI
// consumes. A customer session takes precedence over the employee flag.
func Resolve(st domain.AuthState, employeeToken string) domain.Viewer {
	v := domain.Viewer{Loading: st.Loading, Employee: employeeToken != ""}
	switch {
	case st.Loading:
		// actor stays unknown
	case st.Actor != nil && st.Actor.Kind() == domain.KindCustomer:
		v.Actor = st.Actor
	case v.Employee:
		v.Actor = domain.Employee{EmployeeToken: employeeToken}
	default:
		v.Actor = domain.Anonymous{}
	}
	return v
}
