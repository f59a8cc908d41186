package middleware // middleware contains the request-entry gates applied before handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/utils"
)

// Context keys populated by the authentication gates.  Handlers read the
// authenticated identity through these instead of re-parsing tokens.
const (
	CtxUserID    = "user_id"    // uint64 user id from the access token
	CtxRole      = "role"       // model.Role from the access token
	CtxRefreshID = "refresh_id" // uint64 ledger row id from the refresh token
)

// JWTAuth returns a middleware that validates an access token and injects
// the subject and role claims into the request context.  The token is read
// from the Authorization header ("Bearer <token>") when present and
// non-empty, otherwise from the accessToken cookie.  Verification covers
// signature (RS256 public key), issuer and expiry; any failure rejects the
// request with 401 before the handler runs.
func JWTAuth(issuer *utils.Issuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := accessTokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing access token"})
			}
			claims, err := issuer.ParseAccess(raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			uid, err := utils.SubjectID(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(CtxUserID, uid)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// accessTokenFrom extracts the raw access token, header before cookie.
func accessTokenFrom(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if tok := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); tok != "" {
			return tok
		}
	}
	cookie, err := c.Cookie("accessToken")
	if err != nil {
		return ""
	}
	return cookie.Value
}
