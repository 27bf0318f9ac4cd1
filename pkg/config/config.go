// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Import        ImportConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port               int           `env:"SERVER_PORT" default:"8080"`
	ReadTimeout        time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	IdleTimeout        time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout    time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitPerSecond int           `env:"RATE_LIMIT_PER_SECOND" default:"20"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" default:"40"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" default:"localhost"`
	Port            int           `env:"DB_PORT" default:"5432"`
	User            string        `env:"DB_USER" default:"postgres"`
	Password        string        `env:"DB_PASSWORD" envAlt:"POSTGRES_PASSWORD"`
	Name            string        `env:"DB_NAME" default:"smart_import"`
	SSLMode         string        `env:"DB_SSLMODE" default:"disable"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"25"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"5"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"5m"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"10m"`
}

// DSN builds a PostgreSQL connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" required:"true"`
}

// ImportConfig bounds the work a single import request may do.
type ImportConfig struct {
	MaxUploadBytes          int64 `env:"IMPORT_MAX_UPLOAD_BYTES" default:"10485760"`
	MaxRows                 int   `env:"IMPORT_MAX_ROWS" default:"50000"`
	BatchSize               int   `env:"IMPORT_BATCH_SIZE" default:"500"`
	DuplicateThreshold      int   `env:"IMPORT_DUPLICATE_THRESHOLD" default:"80"`
	DuplicateCandidateLimit int   `env:"IMPORT_DUPLICATE_CANDIDATE_LIMIT" default:"5000"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"json"`
}

// ObservabilityConfig toggles the metrics endpoint.
type ObservabilityConfig struct {
	MetricsEnabled bool `env:"METRICS_ENABLED" default:"true"`
}

// ProfilingConfig controls the pprof side server.
type ProfilingConfig struct {
	Enabled bool `env:"PPROF_ENABLED" default:"false"`
	Port    int  `env:"PPROF_PORT" default:"6060"`
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RateLimitPerSecond < 0 || c.Server.RateLimitBurst < 0 {
		errs = append(errs, "RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be non-negative")
	}

	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	if c.Import.MaxUploadBytes <= 0 {
		errs = append(errs, "IMPORT_MAX_UPLOAD_BYTES must be positive")
	}
	if c.Import.MaxRows <= 0 {
		errs = append(errs, "IMPORT_MAX_ROWS must be positive")
	}
	if c.Import.BatchSize <= 0 {
		errs = append(errs, "IMPORT_BATCH_SIZE must be positive")
	}
	if c.Import.DuplicateThreshold < 1 || c.Import.DuplicateThreshold > 100 {
		errs = append(errs, fmt.Sprintf("IMPORT_DUPLICATE_THRESHOLD (%d) must be 1-100", c.Import.DuplicateThreshold))
	}
	if c.Import.DuplicateCandidateLimit <= 0 {
		errs = append(errs, "IMPORT_DUPLICATE_CANDIDATE_LIMIT must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}
