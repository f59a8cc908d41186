package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// adminEcho wires the real access gate in front of the role gate, the way
// the router composes them.
func adminEcho(iss *utils.Issuer) *echo.Echo {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{})
	}, middleware.JWTAuth(iss), middleware.RequireRole(model.RoleAdmin))
	return e
}

func getAdmin(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequireRoleAllowsAdmin(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := adminEcho(iss)

	tok, _, err := iss.AccessToken(1, model.RoleAdmin)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	if rec := getAdmin(e, tok); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRequireRoleForbidsCustomer(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := adminEcho(iss)

	tok, _, err := iss.AccessToken(1, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	// Authenticated but not authorized: 403, not 401.
	if rec := getAdmin(e, tok); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequireRoleUnauthenticatedIs401(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := adminEcho(iss)

	// No token: the access gate fires first, so the answer is 401.
	if rec := getAdmin(e, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
