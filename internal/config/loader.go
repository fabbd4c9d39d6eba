package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// lookupFunc reads one variable, reporting whether it was set.
type lookupFunc func(string) (string, bool)

// Load reads configuration from environment variables, applies defaults and
// validates the result.
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

func load(lookup lookupFunc) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), lookup); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from the environment.
func loadStruct(v reflect.Value, lookup lookupFunc) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal, lookup); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value := get(lookup, envName)
		if alt := field.Tag.Get("envAlt"); value == "" && alt != "" {
			value = get(lookup, alt)
		}

		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = field.Tag.Get("default")
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

func get(lookup lookupFunc, name string) string {
	v, _ := lookup(name)
	return strings.TrimSpace(v)
}

// setField sets a reflect.Value from a string based on its type.
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

// Validate checks the configuration and reports every problem at once.
// knownValidators, when given, are the names ENGINE_ENABLED_VALIDATORS may use.
func (c *Config) Validate(knownValidators ...string) error {
	var errs []string

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Engine
	if c.Engine.MaxFixPasses <= 0 {
		errs = append(errs, "ENGINE_MAX_FIX_PASSES must be positive")
	}
	if len(knownValidators) > 0 {
		known := make(map[string]bool, len(knownValidators))
		for _, n := range knownValidators {
			known[n] = true
		}
		for _, n := range c.Engine.EnabledValidators {
			if !known[n] {
				errs = append(errs, fmt.Sprintf("ENGINE_ENABLED_VALIDATORS names unknown validator %q", n))
			}
		}
	}

	// Store
	if c.Store.URL != "" {
		if c.Store.MaxConns < c.Store.MinConns {
			errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
				c.Store.MaxConns, c.Store.MinConns))
		}
		if c.Store.MaxConns <= 0 {
			errs = append(errs, "DB_MAX_CONNS must be positive")
		}
		if c.Store.MinConns < 0 {
			errs = append(errs, "DB_MIN_CONNS must be non-negative")
		}
	}
	if c.Store.SessionTTL <= 0 {
		errs = append(errs, "SESSION_TTL must be positive")
	}
	if c.Store.PurgeInterval <= 0 {
		errs = append(errs, "SESSION_PURGE_INTERVAL must be positive")
	}

	// Cache
	if c.Cache.RedisAddr != "" && c.Cache.TTL <= 0 {
		errs = append(errs, "CACHE_TTL must be positive when REDIS_ADDR is set")
	}

	// Upload
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}

	// Rate limit
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.ValidateLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_VALIDATE must be positive when rate limiting is enabled")
	}

	// Security
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging
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

// LoadRules reads Engine.RulesFile. It returns nil rules when no file is set.
func (c *Config) LoadRules() ([]core.BusinessRule, error) {
	if c.Engine.RulesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Engine.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := core.DecodeRules(data)
	if err != nil {
		return nil, fmt.Errorf("rules file %s: %w", c.Engine.RulesFile, err)
	}
	return rules, nil
}

// LoadAttributesSchema reads Engine.AttributesSchema. It returns nil when no
// schema is configured.
func (c *Config) LoadAttributesSchema() ([]byte, error) {
	if c.Engine.AttributesSchema == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Engine.AttributesSchema)
	if err != nil {
		return nil, fmt.Errorf("read attributes schema: %w", err)
	}
	return data, nil
}

// String returns a representation safe for logging. Connection strings and
// keys are masked.
func (c *Config) String() string {
	mask := func(s string) string {
		if s == "" {
			return "none"
		}
		return "[MASKED]"
	}

	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Engine: {Strict: %v, MaxFixPasses: %d, Rules: %q}, ",
		c.Engine.StrictMode, c.Engine.MaxFixPasses, c.Engine.RulesFile)
	fmt.Fprintf(&b, "Store: {URL: %s, MaxConns: %d, SessionTTL: %s}, ",
		mask(c.Store.URL), c.Store.MaxConns, c.Store.SessionTTL)
	fmt.Fprintf(&b, "Cache: {Redis: %s, TTL: %s}, ", mask(c.Cache.RedisAddr), c.Cache.TTL)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {APIKeys: %d}, ", len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
