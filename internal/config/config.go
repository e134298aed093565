package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	minCodeLength = 4
	maxCodeLength = 32

	defaultSessionSecret = "yetla-session"
)

type Config struct {
	ServerAddress   string `env:"SERVER_ADDRESS"`
	DatabaseDSN     string `env:"DATABASE_DSN"`
	BaseDomain      string `env:"BASE_DOMAIN"`
	ShortCodeLength int    `env:"SHORT_CODE_LENGTH"`

	SessionSecret       string        `env:"SESSION_SECRET"`
	SessionCookieSecure bool          `env:"SESSION_COOKIE_SECURE"`
	SessionMaxAge       time.Duration `env:"SESSION_MAX_AGE"`

	AdminUser          string `env:"ADMIN_USER"`
	AdminPass          string `env:"ADMIN_PASS"`
	AdminEmail         string `env:"ADMIN_EMAIL"`
	PasswordIterations int    `env:"PASSWORD_ITERATIONS"`

	LogLevel string `env:"LOG_LEVEL"`
	AppEnv   string `env:"APP_ENV"`
}

// ParseFlags reads an optional .env file, then command line flags, then the
// environment. Non-empty environment variables win over flags.
func ParseFlags() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.ServerAddress, "a", getDefaultServerAddress(), "Address of the server")
	flag.StringVar(&cfg.DatabaseDSN, "d", getDefaultDatabaseDSN(), "Database DSN (postgres://, libsql:// or a SQLite file)")
	flag.StringVar(&cfg.BaseDomain, "b", "", "Host that serves short codes; empty serves them on every host")
	flag.IntVar(&cfg.ShortCodeLength, "l", 6, "Length of generated short codes")

	flag.Parse()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	cfg.applyDefaultValues()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server address cannot be empty")
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	if c.ShortCodeLength < minCodeLength || c.ShortCodeLength > maxCodeLength {
		return fmt.Errorf("short code length must be between %d and %d, got %d",
			minCodeLength, maxCodeLength, c.ShortCodeLength)
	}
	if c.PasswordIterations <= 0 {
		return fmt.Errorf("password iterations must be positive, got %d", c.PasswordIterations)
	}
	if c.SessionMaxAge < 0 {
		return fmt.Errorf("session max age cannot be negative")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return nil
}

// Production reports whether the JSON production logger should be used.
func (c *Config) Production() bool {
	return c.AppEnv == "production"
}

func (c *Config) applyDefaultValues() {
	if c.ServerAddress == "" {
		c.ServerAddress = getDefaultServerAddress()
	}
	if c.DatabaseDSN == "" {
		c.DatabaseDSN = getDefaultDatabaseDSN()
	}
	if c.SessionSecret == "" {
		c.SessionSecret = c.AdminPass
	}
	if c.SessionSecret == "" {
		c.SessionSecret = defaultSessionSecret
	}
	if c.AdminUser == "" {
		c.AdminUser = "admin"
	}
	if c.AdminPass == "" {
		c.AdminPass = "admin"
	}
	if c.AdminEmail == "" {
		c.AdminEmail = "admin@example.com"
	}
	if c.PasswordIterations == 0 {
		c.PasswordIterations = 600_000
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func getDefaultServerAddress() string {
	return ":8080"
}

func getDefaultDatabaseDSN() string {
	return "file:yetla.db"
}
