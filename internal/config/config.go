// Package config loads runtime configuration from SOSESKA_* environment
// variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every environment variable name.
const Prefix = "SOSESKA_"

type Config struct {
	DB     DB     `envPrefix:"DB_"`
	HTTP   HTTP   `envPrefix:"HTTP_"`
	Logger Logger `envPrefix:"LOG_"`
	Admin  Admin  `envPrefix:"ADMIN_"`
}

type DB struct {
	Path string `env:"PATH,expand" envDefault:"soseska.sqlite3"`
	// PurgeInterval is how often expired revoked tokens are removed.
	PurgeInterval time.Duration `env:"PURGE_INTERVAL" envDefault:"1h"`
}

type HTTP struct {
	Address     string    `env:"ADDRESS,expand" envDefault:":8080"`
	CORSOrigins []string  `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	LoginRate   LoginRate `envPrefix:"LOGIN_RATE_"`
	// TrustProxyHeaders makes the rate limiter key clients by X-Forwarded-For.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
}

// LoginRate limits login attempts per client IP.
type LoginRate struct {
	Interval  time.Duration `env:"INTERVAL" envDefault:"6s"`
	Burst     int           `env:"BURST" envDefault:"5"`
	CacheSize int           `env:"CACHE_SIZE" envDefault:"1024"`
	TTL       time.Duration `env:"TTL" envDefault:"10m"`
}

type Logger struct {
	Path  string `env:"PATH,expand"`
	Level string `env:"LEVEL" envDefault:"info"`
}

type Admin struct {
	// Email of the super admin created on first run.
	Email string `env:"EMAIL" envDefault:"admin@soseska.local"`
	Name  string `env:"NAME" envDefault:"Admin"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

func parse(opts env.Options) (*Config, error) {
	conf, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("database path is empty")
	}
	if c.HTTP.LoginRate.Burst < 1 {
		return fmt.Errorf("login rate burst must be at least 1")
	}
	if c.HTTP.LoginRate.Interval <= 0 {
		return fmt.Errorf("login rate interval must be positive")
	}
	if c.HTTP.LoginRate.CacheSize < 1 {
		return fmt.Errorf("login rate cache size must be at least 1")
	}
	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logger.Level)
	}
	return nil
}
