package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinepiu-booking/internal/model"
)

// RequireRole lets through only the listed roles. It runs after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return Require(func(r model.Role) bool { return allowed[r] })
}

// Require lets through roles for which can returns true, e.g.
// Require(model.Role.CanManageProgramming).
func Require(can func(model.Role) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !can(Role(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "reason": "forbidden"})
			}
			return next(c)
		}
	}
}
