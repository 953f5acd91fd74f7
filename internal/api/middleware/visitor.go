package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/core/service"
)

const (
	portalContextKey = "portal"
	visitorCookieTTL = 365 * 24 * time.Hour
)

// PortalSource hands out the portal of a visitor.
type PortalSource interface {
	Get(visitorID string) *service.Portal
}

// Visitor identifies the browser by a cookie, issuing a new visitor id when
// the cookie is missing or malformed, and injects the visitor's portal into
// the context.
func Visitor(portals PortalSource, cookieName string, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			visitorID := ""
			if ck, err := c.Cookie(cookieName); err == nil {
				if id, err := uuid.Parse(ck.Value); err == nil {
					visitorID = id.String()
				}
			}

			if visitorID == "" {
				visitorID = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     cookieName,
					Value:    visitorID,
					Path:     "/",
					MaxAge:   int(visitorCookieTTL.Seconds()),
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(portalContextKey, portals.Get(visitorID))
			return next(c)
		}
	}
}

// PortalFrom returns the portal injected by Visitor, or an error when the
// middleware did not run.
func PortalFrom(c echo.Context) (*service.Portal, error) {
	p, ok := c.Get(portalContextKey).(*service.Portal)
	if !ok || p == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "visitor session unavailable")
	}
	return p, nil
}
