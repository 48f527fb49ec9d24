// Package config loads process configuration from SURFSHOP_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration.
type Config struct {
	Env  string `env:"SURFSHOP_ENV" envDefault:"development"`
	Addr string `env:"SURFSHOP_ADDR" envDefault:":8080"`

	DBDialect      string        `env:"SURFSHOP_DB_DIALECT" envDefault:"sqlite"`
	DBDSN          string        `env:"SURFSHOP_DB_DSN" envDefault:"surfshop.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"`
	DBMaxOpenConns int           `env:"SURFSHOP_DB_MAX_CONNS" envDefault:"25"`
	StoreTimeout   time.Duration `env:"SURFSHOP_STORE_TIMEOUT" envDefault:"10s"`
	StoreRetries   int           `env:"SURFSHOP_STORE_RETRIES" envDefault:"1"`
	SlowQuery      time.Duration `env:"SURFSHOP_SLOW_QUERY" envDefault:"100ms"`

	Timezone   string `env:"SURFSHOP_TIMEZONE" envDefault:"UTC"`
	SchoolName string `env:"SURFSHOP_SCHOOL_NAME" envDefault:"North Shore Surf School"`

	ResendAPIKey string `env:"SURFSHOP_RESEND_API_KEY"`
	EmailFrom    string `env:"SURFSHOP_EMAIL_FROM" envDefault:"Surf School <lessons@example.com>"`
	AMQPURL      string `env:"SURFSHOP_AMQP_URL"`

	CSRFKeyHex     string        `env:"SURFSHOP_CSRF_KEY"`
	TrustedOrigins []string      `env:"SURFSHOP_TRUSTED_ORIGINS" envSeparator:"," envDefault:"localhost:8080,127.0.0.1:8080"`
	RateLimit      float64       `env:"SURFSHOP_RATE_LIMIT" envDefault:"10"`
	RateBurst      int           `env:"SURFSHOP_RATE_BURST" envDefault:"20"`
	SlowRequest    time.Duration `env:"SURFSHOP_SLOW_REQUEST" envDefault:"200ms"`

	OutboxInterval time.Duration `env:"SURFSHOP_OUTBOX_INTERVAL" envDefault:"1m"`
	OTelEndpoint   string        `env:"SURFSHOP_OTEL_ENDPOINT"`
	LogLevel       string        `env:"SURFSHOP_LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional dotenv files (default .env) into the process
// environment, without overriding variables already set, then parses Config.
// PRE: none
// POST: Returns a validated Config or an error naming the bad variable
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StoreTimeout <= 0 {
		return errors.New("SURFSHOP_STORE_TIMEOUT must be positive")
	}
	if c.StoreRetries < 0 {
		return errors.New("SURFSHOP_STORE_RETRIES cannot be negative")
	}
	if c.RateLimit <= 0 || c.RateBurst < 1 {
		return errors.New("SURFSHOP_RATE_LIMIT and SURFSHOP_RATE_BURST must be positive")
	}
	if c.OutboxInterval <= 0 {
		return errors.New("SURFSHOP_OUTBOX_INTERVAL must be positive")
	}
	if c.IsProduction() && c.CSRFKeyHex == "" {
		return errors.New("SURFSHOP_CSRF_KEY is required in production")
	}
	return nil
}

// IsProduction reports whether SURFSHOP_ENV is production.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Location resolves SURFSHOP_TIMEZONE, the zone lesson dates and times are written in.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SURFSHOP_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// CSRFKey decodes SURFSHOP_CSRF_KEY (64 hex characters). Outside production an
// unset key is replaced by a random one, so form tokens do not survive a restart.
func (c Config) CSRFKey() ([]byte, error) {
	if c.CSRFKeyHex != "" {
		key, err := hex.DecodeString(c.CSRFKeyHex)
		if err != nil || len(key) != 32 {
			return nil, errors.New("SURFSHOP_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key, nil
	}
	if c.IsProduction() {
		return nil, errors.New("SURFSHOP_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate CSRF key: %w", err)
	}
	slog.Warn("csrf_key_random", "hint", "set SURFSHOP_CSRF_KEY to keep form tokens across restarts")
	return key, nil
}

// SlogLevel maps SURFSHOP_LOG_LEVEL to a slog level; unknown values are info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
