package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// AdminGuard admits callers whose token carries the admin role and whose
// account is on the platform's admin list.
func AdminGuard(isAdmin func(account string) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			if role != "admin" || !isAdmin(Account(c)) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "admin access only",
				})
			}
			return next(c)
		}
	}
}
