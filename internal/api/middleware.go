package api

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestIDMiddleware tags every request with an id, reusing a well-formed
// incoming X-Request-ID.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// AccessLogMiddleware logs one line per request after it completes.
func AccessLogMiddleware(logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		lvl := level.Info
		switch {
		case status >= http.StatusInternalServerError:
			lvl = level.Error
		case status >= http.StatusBadRequest:
			lvl = level.Warn
		}
		lvl(logger).Log(
			"msg", "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"took", time.Since(start),
			"remote", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		)
	}
}

// RateLimiter is the part of redis_rate.Limiter the middleware needs.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RateLimitMiddleware throttles bundle fetches per requester and target
// user, which keeps a single client from draining someone's one-time
// pre-keys. The requester is identified by a hash of its address and headers.
func RateLimitMiddleware(limiter RateLimiter, limit redis_rate.Limit, logger log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fingerprint := c.ClientIP() + "|" + c.GetHeader("User-Agent") + "|" + c.GetHeader("Accept-Language")
		key := "keyrelay:rate:" + strconv.FormatUint(xxhash.Sum64String(fingerprint), 10) + ":" + c.Param("user")

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		result, err := limiter.Allow(ctx, key, limit)
		if err != nil {
			level.Error(logger).Log("msg", "rate limit check failed", "err", err)
			ApiErrorf(c, http.StatusInternalServerError, "failed to perform rate limit check")
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit.Rate))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if result.Allowed <= 0 {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			ApiErrorf(c, http.StatusTooManyRequests, "too many requests")
			return
		}
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(result.ResetAfter.Milliseconds())))
		c.Next()
	}
}

// CORSMiddleware lets browser clients on origins call the API. "*" allows
// any origin; entries may contain one wildcard, e.g. https://*.example.com.
func CORSMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Accept", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowWildcard: true,
		MaxAge:        5 * time.Minute,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
