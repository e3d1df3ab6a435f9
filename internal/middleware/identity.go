package middleware

import "github.com/labstack/echo/v4"

// userKey returns the caller's user id for rate limit and cache keys, or
// "guest" on unauthenticated routes.
func userKey(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "guest"
}
