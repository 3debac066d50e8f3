package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func requestWithRoles(roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	c.SetRequest(req.WithContext(ctx))
	return c, rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, _ := requestWithRoles(RoleChargeNurse)
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	if err := RequireRole(RoleChargeNurse)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequireRole_AdminBypassesCheck(t *testing.T) {
	c, _ := requestWithRoles(RoleAdmin)
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	if err := RequireRole(RoleProvider)(handler)(c); err != nil {
		t.Fatalf("expected admin to pass, got %v", err)
	}
}

func TestRequireRole_Forbidden(t *testing.T) {
	c, _ := requestWithRoles(RoleTriageNurse)
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	err := RequireRole(RoleProvider)(handler)(c)
	if err == nil {
		t.Fatal("expected forbidden error")
	}
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	c, _ := requestWithRoles()
	handler := func(c echo.Context) error { return c.NoContent(http.StatusOK) }

	if err := RequireRole(RoleEDNurse)(handler)(c); err == nil {
		t.Fatal("expected forbidden error for request without roles")
	}
}

func TestActorFromContext_PrefersName(t *testing.T) {
	ctx := context.WithValue(context.Background(), UserIDKey, "u-123")
	if got := ActorFromContext(ctx); got != "u-123" {
		t.Errorf("expected subject fallback, got %q", got)
	}

	ctx = context.WithValue(ctx, UserNameKey, "Casey RN")
	if got := ActorFromContext(ctx); got != "Casey RN" {
		t.Errorf("expected name, got %q", got)
	}
}
