// Package config loads settings from environment variables into typed
// structs, applies defaults and validates the result before anything starts.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Audit    AuditConfig
	Report   ReportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining uploads.
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by middleware to every request.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig locates the workbook that holds every record.
type StoreConfig struct {
	Path string `env:"STORE_PATH" envAlt:"WELLTRACK_DATA" default:"data/well_program_data.xlsx"`
}

// UploadConfig holds bulk upload settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted workbook in bytes (default: 10MB).
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is how many workbooks may be parsed at once.
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a preview waits for a parse slot.
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"15s"`

	// StagingTTL is how long a previewed upload waits for its commit.
	StagingTTL time.Duration `env:"UPLOAD_STAGING_TTL" default:"30m"`

	// SweepInterval is how often expired staged uploads are dropped.
	SweepInterval time.Duration `env:"UPLOAD_SWEEP_INTERVAL" default:"1m"`
}

// RateLimitConfig holds per-IP rate limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey guards the JSON API with the X-API-Key header.
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// AuditConfig selects where the audit trail goes. With no DatabaseURL the
// trail is kept in memory and lost on restart.
type AuditConfig struct {
	DatabaseURL string `env:"AUDIT_DATABASE_URL" envAlt:"DATABASE_URL"`
	MaxConns    int    `env:"AUDIT_DB_MAX_CONNS" default:"4"`
	MemorySize  int    `env:"AUDIT_MEMORY_SIZE" default:"1000"`

	// RetentionDays bounds how long Postgres keeps entries; 0 keeps them forever.
	RetentionDays     int           `env:"AUDIT_RETENTION_DAYS" default:"365"`
	RetentionInterval time.Duration `env:"AUDIT_RETENTION_INTERVAL" default:"24h"`
}

// ReportConfig holds report page settings.
type ReportConfig struct {
	// Timezone decides which calendar day "today" is for reminders.
	Timezone string `env:"REPORT_TIMEZONE" default:"UTC"`
}

// Addr returns the server listen address in host:port form.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Location resolves Timezone, falling back to UTC.
func (c *ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
