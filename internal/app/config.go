package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"keyrelay/internal/events"
	"keyrelay/internal/services/bundle"
	"keyrelay/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. KEYRELAY_STORE_BACKEND.
const EnvPrefix = "KEYRELAY"

// Storage backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ServerConfig holds everything the relay needs to start.
type ServerConfig struct {
	Server    HTTPConfig      `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Bundle    BundleConfig    `mapstructure:"bundle"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Log       LogConfig       `mapstructure:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// StoreConfig selects where device records live.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=memory file redis"`
	Dir     string `mapstructure:"dir"`
}

// RedisConfig holds redis connection settings, shared by the redis store,
// the rate limiter and the event publisher.
type RedisConfig struct {
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db" validate:"min=0"`
	Prefix     string `mapstructure:"prefix"`
	MaxRetries int    `mapstructure:"max_retries" validate:"min=1"`
}

// BundleConfig tunes bundle fetches.
type BundleConfig struct {
	LowWatermark  int  `mapstructure:"low_watermark"`
	VerifyOnFetch bool `mapstructure:"verify_on_fetch"`
}

// EventsConfig controls pool events. They are always logged; Publish also
// sends them to a redis channel.
type EventsConfig struct {
	Publish bool   `mapstructure:"publish"`
	Channel string `mapstructure:"channel"`
}

// RateLimitConfig throttles bundle fetches per requester and user.
type RateLimitConfig struct {
	Enabled   bool `mapstructure:"enabled"`
	PerMinute int  `mapstructure:"per_minute" validate:"min=1"`
}

// MetricsConfig controls the /metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
}

// NeedsRedis reports whether any configured component talks to redis.
func (c ServerConfig) NeedsRedis() bool {
	return c.Store.Backend == BackendRedis || c.RateLimit.Enabled || c.Events.Publish
}

// LoadServerConfig reads configuration from path, or from keyrelay.yaml in
// the usual places when path is empty, then applies environment overrides.
// A missing keyrelay.yaml is fine; a missing explicit path is not.
func LoadServerConfig(path string) (*ServerConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("keyrelay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/keyrelay")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and cross-field requirements.
func (c ServerConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Store.Backend == BackendFile && c.Store.Dir == "" {
		return errors.New("invalid config: store.dir is required for the file backend")
	}
	if c.NeedsRedis() && c.Redis.Addr == "" {
		return errors.New("invalid config: redis.addr is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.dir", "./data/keys")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", store.DefaultRedisPrefix)
	v.SetDefault("redis.max_retries", store.DefaultMaxRetries)

	v.SetDefault("bundle.low_watermark", bundle.DefaultLowWatermark)
	v.SetDefault("bundle.verify_on_fetch", true)

	v.SetDefault("events.publish", false)
	v.SetDefault("events.channel", events.DefaultChannel)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.per_minute", 60)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.username", "")
	v.SetDefault("metrics.password", "")

	v.SetDefault("log.level", "info")
}
