// Package config loads server settings from environment variables.
//
// Every field is bound to a variable through struct tags (env, envAlt,
// default, required) and the whole tree is validated on startup so a bad
// deployment fails before it serves traffic.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Data     DataConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	History  HistoryConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `env:"SERVER_PORT" default:"8000"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is applied by middleware to every request (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DataConfig controls the dataset loaded at startup.
type DataConfig struct {
	// Files are tried in order; the first one that exists is loaded.
	Files []string `env:"DATA_FILES" default:"bin-list-data-small.csv,bin-list-data.csv"`

	// DefaultPageSize applies when /bins is called without page_size (default: 50)
	DefaultPageSize int `env:"DEFAULT_PAGE_SIZE" default:"50"`
}

// UploadConfig holds upload and parse limits.
type UploadConfig struct {
	// MaxFileSize caps both the request body and the decompressed data. Accepts
	// sizes such as "100MiB" or a plain byte count.
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"100MiB" unit:"bytes"`

	// MaxConcurrent is how many loads may parse at once (default: 1)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long an upload waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single parse (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
	UploadLimit       int  `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Forwarded-For / X-Real-IP headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects mutating routes (upload, mapping).
	RequireAPIKey bool     `env:"REQUIRE_API_KEY" default:"false"`
	APIKeys       []string `env:"API_KEYS"`

	// CORSAllowedOrigins defaults to any origin.
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// HistoryConfig selects where load history is kept.
type HistoryConfig struct {
	// Driver is none, postgres or sqlite (default: none)
	Driver string `env:"HISTORY_DRIVER" default:"none"`

	// URL is the PostgreSQL connection string used by the postgres driver.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	SQLitePath string `env:"HISTORY_SQLITE_PATH" default:"bin_history.db"`

	Retention     time.Duration `env:"HISTORY_RETENTION" default:"720h"`
	PruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" default:"24h"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"0"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
