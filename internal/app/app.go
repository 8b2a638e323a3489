package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"keyrelay/internal/api"
	assembly "keyrelay/internal/bundle"
	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
	"keyrelay/internal/events"
	"keyrelay/internal/metrics"
	"keyrelay/internal/services/bundle"
	"keyrelay/internal/services/registration"
	"keyrelay/internal/store"
)

// Server is a fully wired relay.
type Server struct {
	HTTP   *http.Server
	Keys   domain.KeyStore
	logger log.Logger
	rdb    *redis.Client
	cfg    ServerConfig
}

// NewServer builds the relay described by cfg. When cfg needs redis the
// connection is checked before returning.
func NewServer(ctx context.Context, cfg ServerConfig, logger log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{logger: logger, cfg: cfg}

	if cfg.NeedsRedis() {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.rdb.Ping(pctx).Err(); err != nil {
			s.rdb.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
	}

	keys, err := s.keyStore()
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Keys = keys

	var verifier domain.SignatureVerifier = crypto.Ed25519Verifier{}
	var fetchVerifier domain.SignatureVerifier
	if cfg.Bundle.VerifyOnFetch {
		fetchVerifier = verifier
	}

	notifier := events.Multi{events.NewLogNotifier(logger)}
	if cfg.Events.Publish {
		notifier = append(notifier, events.NewRedisNotifier(s.rdb, cfg.Events.Channel))
	}

	bundles := bundle.New(keys, assembly.NewAssembler(fetchVerifier),
		bundle.WithNotifier(notifier),
		bundle.WithLogger(logger),
		bundle.WithLowWatermark(cfg.Bundle.LowWatermark),
	)
	registry := registration.New(keys, verifier, logger)

	rc := api.RouterConfig{
		Keys:           api.NewKeysApi(bundles, registry, logger),
		Logger:         logger,
		MetricsEnabled: cfg.Metrics.Enabled,
		Health:         s.health,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}
	if cfg.RateLimit.Enabled {
		rc.Limiter = redis_rate.NewLimiter(s.rdb)
		rc.FetchLimit = redis_rate.PerMinute(cfg.RateLimit.PerMinute)
	}
	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
		if cfg.Metrics.Username != "" {
			rc.MetricsAuth = gin.Accounts{cfg.Metrics.Username: cfg.Metrics.Password}
		}
	}

	s.HTTP = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(rc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) keyStore() (domain.KeyStore, error) {
	switch s.cfg.Store.Backend {
	case BackendMemory:
		return store.NewMemoryKeyStore(), nil
	case BackendFile:
		fs, err := store.NewFileKeyStore(s.cfg.Store.Dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendRedis:
		return store.NewRedisKeyStore(s.rdb,
			store.WithRedisPrefix(s.cfg.Redis.Prefix),
			store.WithMaxRetries(s.cfg.Redis.MaxRetries),
		), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", s.cfg.Store.Backend)
}

func (s *Server) health(ctx context.Context) error {
	if s.rdb != nil {
		if err := s.rdb.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	if s.cfg.Store.Backend == BackendFile {
		if _, err := os.Stat(s.cfg.Store.Dir); err != nil {
			return err
		}
	}
	return nil
}

// Run serves until ctx is done, then shuts down gracefully within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		level.Info(s.logger).Log("msg", "relay listening", "addr", s.HTTP.Addr, "store", s.cfg.Store.Backend)
		errc <- s.HTTP.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	level.Info(s.logger).Log("msg", "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := s.HTTP.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the redis connection, if any.
func (s *Server) Close() error {
	if s.rdb != nil {
		return s.rdb.Close()
	}
	return nil
}
