package handler

import (
	"context"
	"net/http"
	"testing"
)

func newApplyEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.e.POST("/api/apply/:product", NewApplyHandler().Apply)
	return env
}

func TestApplyHandler_AnonymousGoesToLogin(t *testing.T) {
	env := newApplyEnv(t)

	rec := env.do(http.MethodPost, "/api/apply/loans", visitorA, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp applyResponse
	decode(t, rec, &resp)
	if resp.Outcome != "redirected" || resp.RedirectTo != "/login" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if got := env.portals.Get(visitorA).Redirects.Consume(context.Background()); got != "/products/loans" {
		t.Fatalf("remembered %q, want /products/loans", got)
	}
}

func TestApplyHandler_CustomerGoesToApplication(t *testing.T) {
	env := newApplyEnv(t)
	env.signIn(t, visitorA)

	rec := env.do(http.MethodPost, "/api/apply/credit-cards", visitorA, "")

	var resp applyResponse
	decode(t, rec, &resp)
	if resp.Outcome != "invoked" || resp.RedirectTo != "/credit-cards" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestApplyHandler_UnknownProduct(t *testing.T) {
	env := newApplyEnv(t)

	if rec := env.do(http.MethodPost, "/api/apply/yachts", visitorA, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
