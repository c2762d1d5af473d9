package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-booking/internal/model"
)

// Principal returns the authenticated caller.  Outside of JWTAuth the
// zero Principal is returned.
func Principal(c echo.Context) model.Principal {
	uid, _ := c.Get(ctxUserID).(string)
	role, _ := c.Get(ctxRole).(string)
	return model.Principal{UserID: uid, Role: role}
}

// userID names the caller for rate limit keys.
func userID(c echo.Context) string {
	if uid, ok := c.Get(ctxUserID).(string); ok && uid != "" {
		return uid
	}
	return "anon"
}
