package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/meit-app/meit/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxIdentityID  = "identity_id"
	ctxEmail       = "email"
	ctxAccessToken = "access_token"
)

// JWTAuth verifies the bearer access token and stores its subject, email
// and raw value on the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			raw = strings.TrimSpace(raw)
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid or expired token"})
			}
			c.Set(ctxIdentityID, claims.Subject)
			c.Set(ctxEmail, claims.Email)
			c.Set(ctxAccessToken, raw)
			return next(c)
		}
	}
}
