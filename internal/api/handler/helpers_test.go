package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/finportal/portal/internal/api/middleware"
	"github.com/finportal/portal/internal/core/service"
	"github.com/finportal/portal/internal/infrastructure/identity"
	"github.com/finportal/portal/internal/infrastructure/memory"
	"github.com/finportal/portal/internal/infrastructure/queue"
)

const testCookie = "portal_visitor"

type testEnv struct {
	e       *echo.Echo
	portals *service.Registry
	records *memory.RecordStore
}

// newTestEnv wires the handlers over in-memory adapters. The customer
// ana@example.com / s3cret and the employee Teller01 / Vault#9 exist.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	log := zerolog.Nop()
	hub := queue.NewHub(2, nil, log)
	hub.Start(ctx)

	storage := memory.NewStorage()
	idp := identity.NewProvider(memory.NewIdentityRepository(), hub, "test-secret", time.Hour, log)
	records := memory.NewRecordStore()
	if err := records.SeedEmployee(ctx, "Teller01", "Vault#9"); err != nil {
		t.Fatalf("seed employee: %v", err)
	}
	if _, err := idp.ForVisitor("seed", storage.LocalStore("seed")).SignUp(ctx, "ana@example.com", "s3cret", nil); err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	portals := service.NewRegistry(func(visitorID string) service.VisitorDeps {
		local := storage.LocalStore(visitorID)
		return service.VisitorDeps{
			Sessions: idp.ForVisitor(visitorID, local),
			Local:    local,
			Notices:  storage.NoticeStore(visitorID),
		}
	}, records, service.PortalConfig{SettleTimeout: time.Second}, time.Minute, log)
	t.Cleanup(portals.Close)

	e := echo.New()
	e.Validator = NewValidator()
	e.Use(middleware.Visitor(portals, testCookie, false))
	return &testEnv{e: e, portals: portals, records: records}
}

func (env *testEnv) do(method, target, visitorID, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if visitorID != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: visitorID})
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// signIn signs the customer in for visitorID.
func (env *testEnv) signIn(t *testing.T, visitorID string) {
	t.Helper()
	if _, err := env.portals.Get(visitorID).SignIn(context.Background(), "ana@example.com", "s3cret"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
}

// settled returns the portal of visitorID once its session check is done.
func (env *testEnv) settled(t *testing.T, visitorID string) *service.Portal {
	t.Helper()
	p := env.portals.Get(visitorID)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Auth.Wait(ctx); err != nil {
		t.Fatalf("session never settled: %v", err)
	}
	return p
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
}

const (
	visitorA = "0a4b3c2d-1e0f-4a9b-8c7d-6e5f4a3b2c1d"
	visitorB = "1b5c4d3e-2f10-4b0c-9d8e-7f6a5b4c3d2e"
)
