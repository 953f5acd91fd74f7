package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/core/service"
)

const defaultCheckWait = 3 * time.Second

// Guard protects a page. It waits up to wait for the visitor's session to
// resolve, then:
//   - authenticated: calls next.
//   - redirecting: 303 to the login page (the page is remembered).
//   - checking: 202 with Retry-After; the client polls or watches.
func Guard(wait time.Duration) echo.MiddlewareFunc {
	if wait <= 0 {
		wait = defaultCheckWait
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := PortalFrom(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			waitCtx, cancel := context.WithTimeout(ctx, wait)
			_ = p.Auth.Wait(waitCtx)
			cancel()

			d := p.Guard.Evaluate(ctx, c.Request().URL.RequestURI())
			switch d.State {
			case service.GuardAuthenticated:
				return next(c)
			case service.GuardRedirecting:
				return c.Redirect(http.StatusSeeOther, d.RedirectTo)
			default:
				c.Response().Header().Set("Retry-After", strconv.Itoa(1))
				return c.JSON(http.StatusAccepted, d)
			}
		}
	}
}
