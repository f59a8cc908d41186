package middleware_test

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

func newTestIssuer(t *testing.T, accessTTL time.Duration) *utils.Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	iss, err := utils.NewIssuer(key, []byte("test-refresh-secret"), "auth-service", accessTTL, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	return iss
}

// echoWithGate builds an Echo app with one gated route echoing the
// context identity back.
func echoWithGate(gate echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"user_id": c.Get(middleware.CtxUserID),
			"role":    c.Get(middleware.CtxRole),
		})
	}, gate)
	return e
}

func TestJWTAuthBearerHeader(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := echoWithGate(middleware.JWTAuth(iss))

	tok, _, err := iss.AccessToken(7, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
}

func TestJWTAuthCookieFallback(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := echoWithGate(middleware.JWTAuth(iss))

	tok, _, err := iss.AccessToken(7, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: tok})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
}

func TestJWTAuthHeaderTakesPrecedence(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := echoWithGate(middleware.JWTAuth(iss))

	tok, _, err := iss.AccessToken(7, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	// A garbage bearer token must not fall back to the valid cookie.
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: tok})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthMissingToken(t *testing.T) {
	iss := newTestIssuer(t, time.Hour)
	e := echoWithGate(middleware.JWTAuth(iss))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestJWTAuthExpiredToken(t *testing.T) {
	iss := newTestIssuer(t, -time.Minute)
	e := echoWithGate(middleware.JWTAuth(iss))

	tok, _, err := iss.AccessToken(7, model.RoleCustomer)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
