package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRoles admits callers whose token role is in roles. It runs after JWT.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			switch {
			case role == "":
				return c.JSON(http.StatusForbidden, echo.Map{"error": "token carries no role"})
			case !allowed[role]:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role " + role + " may not call this route"})
			}
			return next(c)
		}
	}
}
