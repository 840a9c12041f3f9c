// Package middleware has the HTTP API middlewares.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimiter limits the requests per client IP on a fixed window. A zero
// limit disables it.
func RateLimiter(limit int, window time.Duration) echo.MiddlewareFunc {
	return rateLimiter(limit, window, time.Now)
}

func rateLimiter(limit int, window time.Duration, now func() time.Time) echo.MiddlewareFunc {
	type bucket struct {
		count int
		start time.Time
	}

	var (
		mu      sync.Mutex
		buckets = map[string]*bucket{}
		swept   = now()
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limit <= 0 {
			return next
		}

		return func(c echo.Context) error {
			t := now()
			key := c.RealIP()

			mu.Lock()
			// Drop expired buckets once per window so idle clients don't accumulate.
			if t.Sub(swept) > window {
				for k, b := range buckets {
					if t.Sub(b.start) > window {
						delete(buckets, k)
					}
				}
				swept = t
			}

			b, ok := buckets[key]
			if !ok || t.Sub(b.start) > window {
				b = &bucket{start: t}
				buckets[key] = b
			}

			if b.count >= limit {
				retry := b.start.Add(window).Sub(t)
				mu.Unlock()
				c.Response().Header().Set("Retry-After", retryAfter(retry))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many attempts. Please try again later")
			}

			b.count++
			mu.Unlock()

			return next(c)
		}
	}
}

func retryAfter(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
