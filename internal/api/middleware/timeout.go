package middleware

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// HeaderRequestTimeout carries a per-request deadline in seconds
const HeaderRequestTimeout = "X-Request-Timeout"

// maxRequestTimeout bounds what a client can ask for
const maxRequestTimeout = 10 * time.Minute

// NewRequestTimeout attaches a deadline to the request context. The
// X-Request-Timeout header wins over fallback but never exceeds ceiling, which
// must stay below the server write timeout. A zero ceiling only applies the
// package maximum. A zero fallback and no header leave the context untouched.
// Unparseable headers are ignored.
func NewRequestTimeout(fallback, ceiling time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			timeout := fallback
			if d, ok := ParseRequestTimeout(c.Request().Header.Get(HeaderRequestTimeout)); ok {
				timeout = d
				if ceiling > 0 {
					timeout = min(timeout, ceiling)
				}
			}
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// ParseRequestTimeout reads a positive number of seconds, fractions allowed
func ParseRequestTimeout(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	secs, err := strconv.ParseFloat(value, 64)
	if err != nil || secs <= 0 {
		return 0, false
	}
	d := time.Duration(secs * float64(time.Second))
	return min(d, maxRequestTimeout), true
}
