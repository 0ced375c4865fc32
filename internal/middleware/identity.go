package middleware

import "github.com/labstack/echo/v4"

// Identity is what JWTAuth learned about the caller.
type Identity struct {
	ID          string
	Email       string
	AccessToken string
}

// IdentityFrom returns the authenticated caller, or false on public routes.
func IdentityFrom(c echo.Context) (Identity, bool) {
	id, _ := c.Get(ctxIdentityID).(string)
	if id == "" {
		return Identity{}, false
	}
	email, _ := c.Get(ctxEmail).(string)
	tok, _ := c.Get(ctxAccessToken).(string)
	return Identity{ID: id, Email: email, AccessToken: tok}, true
}

func currentIdentityID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return id.ID
	}
	return "anon"
}
