package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auth-service/internal/utils"
)

// Ledger is the revocation lookup the refresh gate consults.  Implemented
// by repository.TokenRepo.  IsRevoked must fail closed: when the store
// cannot answer, the token counts as revoked.
type Ledger interface {
	IsRevoked(ctx context.Context, id, userID uint64) bool
}

// RefreshAuth returns a middleware that validates a refresh token read
// exclusively from the refreshToken cookie.  After signature, issuer and
// expiry checks it asks the ledger whether the token's jti is still
// outstanding for the token's subject.  A revoked jti, an owner mismatch
// or a ledger failure all reject with 401.  On success the subject, role
// and ledger id are stored in the request context.
func RefreshAuth(issuer *utils.Issuer, ledger Ledger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("refreshToken")
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing refresh token"})
			}
			claims, err := issuer.ParseRefresh(cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
			}
			uid, err := utils.SubjectID(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			ledgerID, err := strconv.ParseUint(claims.ID, 10, 64)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			if ledger.IsRevoked(c.Request().Context(), ledgerID, uid) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "refresh token revoked"})
			}
			c.Set(CtxUserID, uid)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxRefreshID, ledgerID)
			return next(c)
		}
	}
}
