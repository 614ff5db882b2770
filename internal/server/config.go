// Package server provides configuration helpers that define runtime defaults,
// validation, and rate-limiting parameters for the Gravity Chat service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

const (
	defaultPort            = ":8080"
	defaultOrigin          = "http://localhost:8080"
	defaultMaxMessageSize  = 2048
	defaultRateBurst       = 5
	defaultRefillInterval  = time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLogLevel        = "INFO"
)

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// Config holds the server configuration settings including security controls.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	RateLimit       RateLimitConfig
	ShutdownTimeout time.Duration
	LogLevel        string
}

// environment mirrors Config as it appears in the process environment.
type environment struct {
	Port                string        `env:"SERVER_PORT,default=:8080" validate:"required"`
	AllowedOrigins      string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize      int64         `env:"MAX_MESSAGE_SIZE,default=2048" validate:"gt=0"`
	RateLimitBurst      int           `env:"RATE_LIMIT_BURST,default=5" validate:"gt=0"`
	RateLimitRefillSecs int           `env:"RATE_LIMIT_REFILL_INTERVAL,default=1" validate:"gt=0"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s" validate:"gt=0"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort,
		AllowedOrigins: []string{defaultOrigin},
		MaxMessageSize: defaultMaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          defaultRateBurst,
			RefillInterval: defaultRefillInterval,
		},
		ShutdownTimeout: defaultShutdownTimeout,
		LogLevel:        defaultLogLevel,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = defaultRateBurst
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = defaultRefillInterval
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	normalizedOrigins, allowAll, _ := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = lo.SliceToMap(normalizedOrigins, func(origin string) (string, struct{}) {
		return origin, struct{}{}
	})

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		sanitizeConfig(defaultConfig())
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// CurrentConfig returns a copy of the configuration in effect.
func CurrentConfig() Config {
	return currentConfig()
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig reads the configuration from the environment. Each envFile that
// exists is loaded first; variables already set in the process win over it.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
	}

	var e environment
	if _, err := env.UnmarshalFromEnviron(&e); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	e.LogLevel = strings.ToUpper(strings.TrimSpace(e.LogLevel))

	if err := validator.New().Struct(e); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Config{
		Port:           e.Port,
		AllowedOrigins: parseOrigins(e.AllowedOrigins),
		MaxMessageSize: e.MaxMessageSize,
		RateLimit: RateLimitConfig{
			Burst:          e.RateLimitBurst,
			RefillInterval: time.Duration(e.RateLimitRefillSecs) * time.Second,
		},
		ShutdownTimeout: e.ShutdownTimeout,
		LogLevel:        e.LogLevel,
	}, nil
}

func parseOrigins(origins string) []string {
	parts := lo.Map(strings.Split(origins, ","), func(part string, _ int) string {
		return strings.TrimSpace(part)
	})
	return lo.Compact(parts)
}
