package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

type Config struct {
	// Server config
	Server ServerConfig `envPrefix:"SERVER_"`

	// database config
	Database DatabaseConfig `envPrefix:"DATABASE_"`

	// CSRF, cookies and password hashing
	Security SecurityConfig

	// label cache
	Valkey ValkeyConfig `envPrefix:"VALKEY_"`

	// guest limits
	Limits LimitsConfig

	// error reporting
	Sentry SentryConfig `envPrefix:"SENTRY_"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `env:"ADDRESS" envDefault:":8080" validate:"required"`
	Environment  string        `env:"ENV" envDefault:"development"`
	BaseURL      string        `env:"BASE_URL" envDefault:"http://localhost:8080" validate:"required,url"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL string `env:"URL"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	CSRFSecret         string        `env:"CSRF_SECRET"`
	CSRFTrustedOrigins []string      `env:"CSRF_TRUSTED_ORIGINS" envSeparator:" "`
	GuestCookieSecret  string        `env:"GUEST_COOKIE_SECRET"`
	SessionDuration    time.Duration `env:"SESSION_DURATION" envDefault:"720h"`
	GuestDuration      time.Duration `env:"GUEST_DURATION" envDefault:"720h"`
	BcryptCost         int           `env:"BCRYPT_COST" envDefault:"12"`
	SecureCookies      bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

// ValkeyConfig configures the optional label cache. An empty address
// disables caching.
type ValkeyConfig struct {
	Address  string        `env:"INIT_ADDRESS"`
	Password string        `env:"PASSWORD"`
	TLS      bool          `env:"TLS" envDefault:"false"`
	TTL      time.Duration `env:"TTL" envDefault:"10m"`
}

// LimitsConfig holds anonymous usage settings.
type LimitsConfig struct {
	GuestHistoryLimit int `env:"GUEST_HISTORY_LIMIT" envDefault:"5" validate:"min=1"`
}

type SentryConfig struct {
	DSN string `env:"DSN"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, oops.Errorf("failed to parse environment variables: %w", err)
	}

	if cfg.IsProduction() {
		cfg.Security.SecureCookies = true
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks the rules struct tags cannot express and reports
// every problem at once.
func (c *Config) validate() error {
	var errs []error

	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	if c.Security.CSRFSecret == "" {
		errs = append(errs, errors.New("CSRF_SECRET is required"))
	} else if len(c.Security.CSRFSecret) < 32 {
		errs = append(errs, errors.New("CSRF_SECRET must be at least 32 characters"))
	}

	if len(c.Security.GuestCookieSecret) < 32 {
		errs = append(errs, errors.New("GUEST_COOKIE_SECRET must be at least 32 characters"))
	}

	// Valkey EX takes whole seconds; anything shorter would be rejected
	// or never expire.
	if c.Valkey.TTL < time.Second {
		errs = append(errs, errors.New("VALKEY_TTL must be at least 1s"))
	}

	// Cost < 10 is too fast, > 16 makes login noticeably slow.
	if c.Security.BcryptCost < 10 || c.Security.BcryptCost > 16 {
		errs = append(errs, errors.New("BCRYPT_COST must be between 10 and 16"))
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.Server.Environment] {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be one of: development, staging, production (got: %s)", c.Server.Environment))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%w", errors.Join(errs...))
	}

	return nil
}
