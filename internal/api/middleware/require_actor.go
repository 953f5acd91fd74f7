package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/core/domain"
)

// RequireActor lets the request through only when the visitor resolves to
// one of kinds. A visitor holding both a customer session and the employee
// flag passes KindEmployee too.
func RequireActor(kinds ...domain.ActorKind) echo.MiddlewareFunc {
	allowed := make(map[domain.ActorKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	_, employeeAllowed := allowed[domain.KindEmployee]

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := PortalFrom(c)
			if err != nil {
				return err
			}

			v := p.Viewer(c.Request().Context())
			if v.Actor != nil {
				if _, ok := allowed[v.Actor.Kind()]; ok {
					return next(c)
				}
			}
			if employeeAllowed && v.Employee {
				return next(c)
			}
			return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
		}
	}
}
