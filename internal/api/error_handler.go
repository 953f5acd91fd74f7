package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/core/domain"
)

// errorResponse is the error envelope of every API error.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler maps domain errors to status codes and renders
// {"error": "<message>"}. Causes of unexpected errors are logged, never sent
// to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, domain.ErrInvalidEmployeeCredentials):
		return http.StatusUnauthorized, "invalid employee credentials"
	case errors.Is(err, domain.ErrUnsafeRedirect):
		return http.StatusBadRequest, "redirect target must be a path on this site"
	case errors.Is(err, domain.ErrIdentityExists):
		return http.StatusConflict, "an account with this email already exists"
	// Stage detail is logged by the saga; the client gets one message.
	case errors.Is(err, domain.ErrSignupFailed),
		errors.Is(err, domain.ErrIdGenerationFailed),
		errors.Is(err, domain.ErrProfileCreationFailed),
		errors.Is(err, domain.ErrVerificationFailed):
		return http.StatusUnprocessableEntity, "we could not create your account, please try again"
	case errors.Is(err, domain.ErrAuthCheckFailed):
		return http.StatusServiceUnavailable, "could not verify your session, please try again"
	case errors.Is(err, domain.ErrEmployeeCheckFailed):
		return http.StatusServiceUnavailable, "could not verify employee credentials, please try again"
	case errors.Is(err, domain.ErrSignOutFailed):
		return http.StatusServiceUnavailable, "could not sign out, please try again"
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
