package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/api/middleware"
)

// PageHandler renders page descriptors. The client owns the markup; the
// server decides who may see what.
type PageHandler struct{}

func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// Static returns a handler for a fixed page. Guarding is the router's job.
func (h *PageHandler) Static(page, title string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h.render(c, page, title)
	}
}

// Product renders a public product page.
//
// @Summary      Product page
// @Tags         pages
// @Produce      json
// @Param        product  path      string  true  "Product slug"
// @Success      200      {object}  pageResponse
// @Failure      404      {object}  map[string]string
// @Router       /products/{product} [get]
func (h *PageHandler) Product(c echo.Context) error {
	prod, ok := lookupProduct(c.Param("product"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product")
	}
	return h.render(c, "product:"+prod.Slug, prod.Title)
}

func (h *PageHandler) render(c echo.Context, page, title string) error {
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pageResponse{
		Page:   page,
		Title:  title,
		Viewer: toViewerResponse(p.Viewer(c.Request().Context())),
	})
}
