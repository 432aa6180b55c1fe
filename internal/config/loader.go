package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Load builds a Config from the process environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// envTag is the parsed form of a field's env, envAlt, default, required and
// unit tags.
type envTag struct {
	name     string
	alt      string
	def      string
	required bool
	bytes    bool
}

func parseEnvTag(f reflect.StructField) (envTag, bool) {
	name := f.Tag.Get("env")
	if name == "" {
		return envTag{}, false
	}
	return envTag{
		name:     name,
		alt:      f.Tag.Get("envAlt"),
		def:      f.Tag.Get("default"),
		required: f.Tag.Get("required") == "true",
		bytes:    f.Tag.Get("unit") == "bytes",
	}, true
}

// lookup returns the raw value for the tag. An empty result with a nil error
// leaves the field at its zero value.
func (t envTag) lookup() (string, error) {
	if v := os.Getenv(t.name); v != "" {
		return v, nil
	}
	if t.alt != "" {
		if v := os.Getenv(t.alt); v != "" {
			return v, nil
		}
	}
	if t.required {
		return "", fmt.Errorf("required environment variable %s is not set", t.name)
	}
	return t.def, nil
}

// loadStruct fills v from the environment, descending into section structs.
func loadStruct(v reflect.Value) error {
	t := v.Type()
	for i := range t.NumField() {
		f, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if f.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv); err != nil {
				return err
			}
			continue
		}

		tag, ok := parseEnvTag(f)
		if !ok {
			continue
		}
		raw, err := tag.lookup()
		if err != nil {
			return err
		}
		if raw == "" {
			continue
		}
		if err := tag.set(fv, raw); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", tag.name, raw, err)
		}
	}
	return nil
}

func (t envTag) set(fv reflect.Value, raw string) error {
	switch {
	case fv.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		fv.SetInt(int64(d))

	case fv.Kind() == reflect.Int64 && t.bytes:
		// Accepts plain byte counts as well as "100MB", "64 MiB" and similar.
		n, err := humanize.ParseBytes(raw)
		if err != nil {
			return fmt.Errorf("invalid size: %w", err)
		}
		if n > math.MaxInt64 {
			return fmt.Errorf("size %s out of range", raw)
		}
		fv.SetInt(int64(n))

	case fv.Kind() == reflect.Int || fv.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		fv.SetInt(n)

	case fv.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		fv.SetBool(b)

	case fv.Kind() == reflect.String:
		fv.SetString(raw)

	case fv.Kind() == reflect.Slice && fv.Type().Elem().Kind() == reflect.String:
		fv.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every invalid setting at once, one per line.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Data.DefaultPageSize <= 0 {
		errs = append(errs, "DEFAULT_PAGE_SIZE must be positive")
	}

	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	switch strings.ToLower(c.History.Driver) {
	case "none":
	case "postgres", "postgresql":
		if c.History.URL == "" {
			errs = append(errs, "DATABASE_URL is required when HISTORY_DRIVER=postgres")
		}
		if c.History.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.History.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
		if c.History.MaxConns < c.History.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.History.MaxConns, c.History.MinConns))
		}
	case "sqlite":
		if c.History.SQLitePath == "" {
			errs = append(errs, "HISTORY_SQLITE_PATH is required when HISTORY_DRIVER=sqlite")
		}
	default:
		errs = append(errs, fmt.Sprintf("HISTORY_DRIVER (%q) must be one of: none, postgres, sqlite", c.History.Driver))
	}
	if c.History.Retention <= 0 {
		errs = append(errs, "HISTORY_RETENTION must be positive")
	}
	if c.History.PruneInterval <= 0 {
		errs = append(errs, "HISTORY_PRUNE_INTERVAL must be positive")
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

// String returns a safe string representation of the config for logging.
// The database URL and API keys are never printed.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Data: {Files: %q, DefaultPageSize: %d}, ", c.Data.Files, c.Data.DefaultPageSize)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d configured}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "History: {Driver: %q, URL: [MASKED], Retention: %s}, ",
		c.History.Driver, c.History.Retention)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
