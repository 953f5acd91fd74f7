package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/api/middleware"
	"github.com/finportal/portal/internal/core/service"
)

type ApplyHandler struct{}

func NewApplyHandler() *ApplyHandler {
	return &ApplyHandler{}
}

// Apply handles the "Apply now" action of a product page. A signed-in
// customer is sent to the product's application page; anyone else is sent
// to the login page and comes back to the product page afterwards.
//
// @Summary      Apply for a product
// @Tags         products
// @Produce      json
// @Param        product  path      string  true  "Product slug"  Enums(credit-cards, loans, insurance)
// @Success      200      {object}  applyResponse
// @Failure      404      {object}  map[string]string
// @Failure      503      {object}  map[string]string
// @Router       /api/apply/{product} [post]
func (h *ApplyHandler) Apply(c echo.Context) error {
	prod, ok := lookupProduct(c.Param("product"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product")
	}
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}

	next := ""
	res, err := p.Actions.Dispatch(c.Request().Context(), "/products/"+prod.Slug, func(context.Context) error {
		next = prod.Page
		return nil
	})
	if err != nil {
		return err
	}
	if res.Outcome != service.DispatchInvoked {
		next = res.RedirectTo
	}
	return c.JSON(http.StatusOK, applyResponse{Outcome: string(res.Outcome), RedirectTo: next})
}
