// Package config loads server and CLI settings from environment variables.
// Defaults are applied for unset values and everything is validated at
// startup so a bad setting fails fast.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/sheetcheck/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Engine   EngineConfig
	Store    StoreConfig
	Cache    CacheConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for
	// running validations (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// EngineConfig holds the defaults for validation runs. Requests may
// override the run flags per call.
type EngineConfig struct {
	// EnabledValidators is a comma-separated allow list; empty runs all
	EnabledValidators []string `env:"ENGINE_ENABLED_VALIDATORS"`

	StrictMode              bool `env:"ENGINE_STRICT_MODE" default:"false"`
	AutoFix                 bool `env:"ENGINE_AUTO_FIX" default:"false"`
	SkipDependentValidators bool `env:"ENGINE_SKIP_DEPENDENT" default:"true"`

	// MaxFixPasses bounds the repair loop (default: 5)
	MaxFixPasses int `env:"ENGINE_MAX_FIX_PASSES" default:"5"`

	// RulesFile is a YAML or JSON rules file applied when a request has none
	RulesFile string `env:"ENGINE_RULES_FILE"`

	// AttributesSchema is a JSON Schema file for the AttributesJSON column
	AttributesSchema string `env:"ENGINE_ATTRIBUTES_SCHEMA"`
}

// ValidationConfig returns the run defaults as a core.ValidationConfig.
func (e EngineConfig) ValidationConfig() core.ValidationConfig {
	return core.ValidationConfig{
		EnabledValidators:       append([]string(nil), e.EnabledValidators...),
		StrictMode:              e.StrictMode,
		AutoFix:                 e.AutoFix,
		SkipDependentValidators: e.SkipDependentValidators,
		MaxFixPasses:            e.MaxFixPasses,
	}
}

// StoreConfig holds session storage settings.
type StoreConfig struct {
	// URL is the PostgreSQL connection string; sessions are kept in memory
	// when it is empty. DB_URL is accepted as an alternative.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// SessionTTL is how long an untouched session is kept (default: 24h)
	SessionTTL time.Duration `env:"SESSION_TTL" default:"24h"`

	// PurgeInterval is how often expired sessions are deleted (default: 1h)
	PurgeInterval time.Duration `env:"SESSION_PURGE_INTERVAL" default:"1h"`
}

// CacheConfig holds report cache settings. Caching is off without an address.
type CacheConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" default:"0"`
	TTL           time.Duration `env:"CACHE_TTL" default:"15m"`
}

// UploadConfig holds upload and validation concurrency settings.
type UploadConfig struct {
	// MaxFileSize is the largest accepted workbook in bytes (default: 10MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// MaxConcurrent is the number of validations run in parallel (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a validation slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to every API route (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ValidateLimit applies to validate, fix and repair routes (default: 20)
	ValidateLimit int `env:"RATE_LIMIT_VALIDATE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey turns on X-API-Key checks for /api routes
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
