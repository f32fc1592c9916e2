package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// Context keys set by JWTAuth.
const (
	UserIDKey = "user_id"
	RoleKey   = "role"
)

// UserID returns the authenticated user's ID.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(UserIDKey).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated role, or model.RoleAnonymous.
func Role(c echo.Context) model.Role {
	if r, ok := c.Get(RoleKey).(model.Role); ok {
		return r
	}
	return model.RoleAnonymous
}

// userKey identifies the caller in rate-limit keys; "anon" before login.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
