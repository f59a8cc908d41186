package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/model"
	"github.com/iliyamo/auth-service/internal/utils"
)

// Gates bundles the shared middleware applied across route groups.  Limit
// and Cache may be pass-through middlewares when Redis is unavailable.
type Gates struct {
	Issuer *utils.Issuer
	Ledger middleware.Ledger
	Limit  echo.MiddlewareFunc
	Cache  echo.MiddlewareFunc
}

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the auth endpoints.  Register and login sit behind
// the rate limiter only; self requires an access token, refresh requires a
// non-revoked refresh token, and logout requires both so a stolen access
// token alone cannot end another session and a bare refresh token cannot
// be probed for validity.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Gates) {
	accessGate := middleware.JWTAuth(g.Issuer)
	refreshGate := middleware.RefreshAuth(g.Issuer, g.Ledger)

	auth := e.Group("/auth")
	auth.POST("/register", a.Register, g.Limit)
	auth.POST("/login", a.Login, g.Limit)
	auth.GET("/self", a.Self, accessGate)
	auth.POST("/refresh", a.Refresh, refreshGate)
	auth.POST("/logout", a.Logout, accessGate, refreshGate)
}

// RegisterTenants wires tenant management.  The listing is public (and
// cached); everything else is admin-only behind the access gate.
func RegisterTenants(e *echo.Echo, t *handler.TenantHandler, g Gates) {
	accessGate := middleware.JWTAuth(g.Issuer)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	e.GET("/tenants", t.List, g.Cache)

	tenants := e.Group("/tenants", accessGate, adminOnly)
	tenants.POST("", t.Create)
	tenants.GET("/:id", t.GetOne)
	tenants.PATCH("/:id", t.Update)
	tenants.DELETE("/:id", t.Delete)
}

// RegisterUsers wires the admin-only user management endpoints.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, g Gates) {
	users := e.Group("/users",
		middleware.JWTAuth(g.Issuer),
		middleware.RequireRole(model.RoleAdmin))
	users.POST("", u.Create)
	users.GET("", u.List)
	users.GET("/:id", u.GetOne)
	users.PATCH("/:id", u.Update)
	users.DELETE("/:id", u.Delete)
}
