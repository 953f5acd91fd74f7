package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/finportal/portal/internal/api/middleware"
	"github.com/finportal/portal/internal/core/service"
)

const defaultHeartbeat = 15 * time.Second

// SessionHandler exposes the visitor's resolved actor and streams guard
// decisions for a page.
type SessionHandler struct {
	heartbeat time.Duration
}

func NewSessionHandler(heartbeat time.Duration) *SessionHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &SessionHandler{heartbeat: heartbeat}
}

// Get returns the current viewer without waiting for the session check.
//
// @Summary      Current viewer
// @Tags         session
// @Produce      json
// @Success      200  {object}  viewerResponse
// @Router       /api/session [get]
func (h *SessionHandler) Get(c echo.Context) error {
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toViewerResponse(p.Viewer(c.Request().Context())))
}

type watchQuery struct {
	Path string `query:"path" validate:"required,localpath"`
}

// Watch mounts a guard for path and streams its decisions as server-sent
// events until the decision is "redirecting" or the client goes away.
//
// @Summary      Watch guard decisions
// @Tags         session
// @Produce      text/event-stream
// @Param        path  query     string  true  "Guarded page path"
// @Success      200   {object}  service.Decision
// @Failure      400   {object}  map[string]string
// @Router       /api/session/watch [get]
func (h *SessionHandler) Watch(c echo.Context) error {
	var q watchQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	p, err := middleware.PortalFrom(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	// A mount emits at most one decision per state.
	decisions := make(chan service.Decision, 3)
	mount := p.Mount(ctx, q.Path, func(d service.Decision) {
		select {
		case decisions <- d:
		default:
		}
	})
	defer mount.Unmount()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-decisions:
			if err := writeDecision(w, d); err != nil {
				return nil
			}
			if d.State == service.GuardRedirecting {
				return nil
			}
		case <-heartbeat.C:
			p.Touch()
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeDecision(w *echo.Response, d service.Decision) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: decision\ndata: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return nil
}
