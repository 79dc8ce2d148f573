package middleware

import (
	"github.com/labstack/echo/v4"
)

// ResponseHeaders returns an Echo middleware that marks every response as
// non-sniffable, non-frameable and non-cacheable. /call-b reflects live
// downstream state, so caches must not replay it.
func ResponseHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
