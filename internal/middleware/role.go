package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/model"
)

// RequireRole returns a middleware enforcing that the authenticated user
// holds one of the given roles.  It must run after JWTAuth, which stores
// the verified role claim in the context: authorization is evaluated only
// for requests that already carry a valid identity.  Requests with a role
// outside the allowed set are rejected with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(model.Role)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
