package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/api/middleware"
)

type NoticeHandler struct{}

func NewNoticeHandler() *NoticeHandler {
	return &NoticeHandler{}
}

// List returns the notices currently visible to the visitor.
//
// @Summary      Visible notices
// @Tags         notices
// @Produce      json
// @Success      200  {object}  noticeListResponse
// @Router       /api/notices [get]
func (h *NoticeHandler) List(c echo.Context) error {
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}
	notices, err := p.Notices.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toNoticeListResponse(notices))
}

// Dismiss hides a notice. Dismissing an unknown key is not an error.
//
// @Summary      Dismiss a notice
// @Tags         notices
// @Param        key  path  string  true  "Notice key"
// @Success      204
// @Router       /api/notices/{key} [delete]
func (h *NoticeHandler) Dismiss(c echo.Context) error {
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}
	if err := p.Notices.Dismiss(c.Request().Context(), c.Param("key")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
