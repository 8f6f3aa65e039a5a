package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/guttosm/cryptonorm/internal/logger"
)

// RequestLogger is a Gin middleware that logs method, path, status code,
// request latency, and request ID (if available).
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	request_id=123e4567-e89b-12d3-a456-426614174000 method=POST path=/api/v1/imports status=201 latency_ms=15
func RequestLogger() gin.HandlerFunc {
	log := logger.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		rid, _ := c.Get(RequestIDKey)
		ev := log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", toString(rid)).
			Str("method", method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Int("bytes_in", int(c.Request.ContentLength)).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Defaults for RateLimiter: limit requests per window per client IP.
var (
	window = time.Minute
	limit  = 60
)

// SetRateLimit changes the defaults used by limiters created afterwards.
// Non-positive values are ignored.
func SetRateLimit(n int, per time.Duration) {
	if n > 0 {
		limit = n
	}
	if per > 0 {
		window = per
	}
}

// RateLimiter limits requests per client IP with a token bucket that holds
// `limit` tokens and refills them over `window`. Each call returns a limiter
// with its own client table; entries idle for longer than two windows are
// dropped.
//
// Response when limit exceeded:
//
//	HTTP/1.1 429 Too Many Requests
//	{"message": "rate limit exceeded", ...}
func RateLimiter() gin.HandlerFunc {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu       sync.Mutex
		visitors = make(map[string]*visitor)
		every    = rate.Every(window / time.Duration(limit))
		burst    = limit
		idle     = 2 * window
	)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		now := time.Now()

		mu.Lock()
		v, ok := visitors[ip]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(every, burst)}
			visitors[ip] = v
		}
		v.lastSeen = now
		for k, other := range visitors {
			if now.Sub(other.lastSeen) > idle {
				delete(visitors, k)
			}
		}
		allowed := v.limiter.AllowN(now, 1)
		mu.Unlock()

		if !allowed {
			AbortWithError(c, http.StatusTooManyRequests, "rate limit exceeded", nil)
			return
		}
		c.Next()
	}
}
