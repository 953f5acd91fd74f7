package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
	"github.com/finportal/portal/internal/core/ports"
	"github.com/finportal/portal/internal/pkg/metrics"
)

// DispatchOutcome says what Dispatch did with the action.
type DispatchOutcome string

const (
	DispatchInvoked     DispatchOutcome = "invoked"
	DispatchRedirected  DispatchOutcome = "redirected"
	DispatchCheckFailed DispatchOutcome = "check_failed"
)

// DispatchResult is returned by Dispatch. RedirectTo is set when the visitor
// must sign in first.
type DispatchResult struct {
	Outcome    DispatchOutcome `json:"outcome"`
	RedirectTo string          `json:"redirect_to,omitempty"`
}

// ActionDispatcher gates a single action, such as "Apply now", on a public
// view. It always asks the provider for the session instead of trusting the
// cached auth state, which may be stale by the time the action fires.
type ActionDispatcher struct {
	provider       ports.SessionProvider
	redirects      *RedirectMemory
	notices        *NoticeBoard
	loginPath      string
	notice         domain.Notice
	failureMessage string
	log            zerolog.Logger
}

func NewActionDispatcher(provider ports.SessionProvider, redirects *RedirectMemory, notices *NoticeBoard, loginPath string, log zerolog.Logger) *ActionDispatcher {
	return &ActionDispatcher{
		provider:       provider,
		redirects:      redirects,
		notices:        notices,
		loginPath:      loginPath,
		notice:         authRequiredNotice(),
		failureMessage: "Something went wrong. Please try again.",
		log:            log,
	}
}

// Dispatch runs action only if the visitor holds a live session. Without one
// it remembers path and sends the visitor to the login page. An error from
// the session check itself is reported as domain.ErrAuthCheckFailed; an
// error from action is returned unchanged.
func (d *ActionDispatcher) Dispatch(ctx context.Context, path string, action func(context.Context) error) (DispatchResult, error) {
	sess, err := d.provider.GetSession(ctx)
	if err != nil {
		metrics.ProtectedActionsTotal.WithLabelValues(string(DispatchCheckFailed)).Inc()
		d.log.Error().Err(err).Str("path", path).Msg("session check failed")
		d.notices.Show(ctx, domain.NoticeError, d.failureMessage)
		return DispatchResult{Outcome: DispatchCheckFailed}, fmt.Errorf("%w: %v", domain.ErrAuthCheckFailed, err)
	}

	if sess == nil {
		metrics.ProtectedActionsTotal.WithLabelValues(string(DispatchRedirected)).Inc()
		if err := d.redirects.Record(ctx, path); err != nil {
			d.log.Warn().Err(err).Str("path", path).Msg("remember blocked action")
		}
		d.notices.ShowOnce(ctx, d.notice)
		return DispatchResult{Outcome: DispatchRedirected, RedirectTo: d.loginPath}, nil
	}

	metrics.ProtectedActionsTotal.WithLabelValues(string(DispatchInvoked)).Inc()
	return DispatchResult{Outcome: DispatchInvoked}, action(ctx)
}
