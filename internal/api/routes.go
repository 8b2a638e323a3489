package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"keyrelay/internal/metrics"
)

// RouterConfig collects what NewRouter wires together.
type RouterConfig struct {
	Keys   *KeysApi
	Logger log.Logger

	// Limiter throttles bundle fetches when set.
	Limiter    RateLimiter
	FetchLimit redis_rate.Limit

	// MetricsEnabled exposes /metrics, behind basic auth when MetricsAuth
	// has entries.
	MetricsEnabled bool
	MetricsAuth    gin.Accounts

	// Health is consulted by /healthz when set.
	Health func(context.Context) error

	// CORSOrigins enables CORS for these origins when non-empty.
	CORSOrigins []string
}

// NewRouter builds the relay's HTTP handler.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), AccessLogMiddleware(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORSMiddleware(cfg.CORSOrigins))
	}
	if cfg.MetricsEnabled {
		r.Use(metrics.MetricsMiddleware())
	}

	r.GET("/healthz", healthHandler(cfg.Health))
	if cfg.MetricsEnabled {
		h := gin.WrapH(promhttp.Handler())
		if len(cfg.MetricsAuth) > 0 {
			r.GET("/metrics", gin.BasicAuth(cfg.MetricsAuth), h)
		} else {
			r.GET("/metrics", h)
		}
	}

	keys := r.Group("/v1/keys")
	{
		keys.GET("/:user", cfg.Keys.ListDevices)
		keys.PUT("/:user/:device", cfg.Keys.RegisterDevice)
		keys.DELETE("/:user/:device", cfg.Keys.Deregister)

		fetch := []gin.HandlerFunc{cfg.Keys.FetchBundle}
		if cfg.Limiter != nil {
			fetch = append([]gin.HandlerFunc{RateLimitMiddleware(cfg.Limiter, cfg.FetchLimit, logger)}, fetch...)
		}
		keys.GET("/:user/:device/bundle", fetch...)

		keys.POST("/:user/:device/prekeys", cfg.Keys.UploadPreKeys)
		keys.GET("/:user/:device/prekeys/count", cfg.Keys.PreKeyCount)
		keys.DELETE("/:user/:device/prekeys/:id", cfg.Keys.RemovePreKey)
		keys.PUT("/:user/:device/signed", cfg.Keys.RotateSignedPreKey)
	}

	r.NoRoute(func(c *gin.Context) {
		ApiErrorf(c, http.StatusNotFound, "no such route")
	})
	return r
}

func healthHandler(check func(context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				ApiErrorf(c, http.StatusServiceUnavailable, "unhealthy: %v", err)
				return
			}
		}
		c.JSON(http.StatusOK, OutputStatus{Status: "ok"})
	}
}
