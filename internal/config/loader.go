package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from the process environment, applies defaults
// and validates the result.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with a custom variable source.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct walks nested structs and fills tagged fields.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, getenv); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		value := getenv(envName)
		if value == "" && envAlt != "" {
			value = getenv(envAlt)
		}

		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField parses value into field according to its kind.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
			return nil
		}
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				result = append(result, p)
			}
		}
		field.Set(reflect.ValueOf(result))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT and SERVER_WRITE_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, "STORE_PATH must not be empty")
	} else if !strings.EqualFold(filepath.Ext(c.Store.Path), ".xlsx") {
		errs = append(errs, fmt.Sprintf("STORE_PATH (%q) must end in .xlsx", c.Store.Path))
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
	if c.Upload.StagingTTL <= 0 {
		errs = append(errs, "UPLOAD_STAGING_TTL must be positive")
	}
	if c.Upload.SweepInterval <= 0 {
		errs = append(errs, "UPLOAD_SWEEP_INTERVAL must be positive")
	}

	if c.Rate.Enabled && (c.Rate.RequestsPerMinute <= 0 || c.Rate.UploadLimit <= 0) {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE and RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty")
	}
	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errs = append(errs, fmt.Sprintf("TRUSTED_PROXIES entry %q is not a CIDR", cidr))
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if c.Audit.DatabaseURL != "" && c.Audit.MaxConns <= 0 {
		errs = append(errs, "AUDIT_DB_MAX_CONNS must be positive")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "AUDIT_RETENTION_DAYS must not be negative")
	}
	if c.Audit.MemorySize <= 0 {
		errs = append(errs, "AUDIT_MEMORY_SIZE must be positive")
	}

	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("REPORT_TIMEZONE (%q) is not a known time zone", c.Report.Timezone))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String summarises the config for logging with the database URL masked.
func (c *Config) String() string {
	audit := "memory"
	if c.Audit.DatabaseURL != "" {
		audit = "postgres [MASKED]"
	}
	return fmt.Sprintf("Config{Server: %s, Store: %q, Upload: {MaxFileSize: %d, MaxConcurrent: %d, StagingTTL: %s}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d}, Audit: %s, Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Store.Path,
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.StagingTTL,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		audit, c.Logging.Level, c.Logging.Format)
}

