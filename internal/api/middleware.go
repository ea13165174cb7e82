package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"
)

// RequestID propagates an X-Request-ID header, minting one when the
// client did not send any.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := c.Request().Header.Get(echo.HeaderXRequestID)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, id)
			return next(c)
		}
	}
}

// RateLimit applies a process-wide token bucket across all requests.
// Exceeding it yields 429 with the usual error envelope.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			if !limiter.Allow() {
				return writeError(c, http.StatusTooManyRequests, "rate_limit_error",
					"rate limit exceeded, slow down", "", "rate_limit_exceeded")
			}
			return next(c)
		}
	}
}
