// Package config provides configuration loading and parsing for api-firewall.
package config

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Log level constants.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Filter strategy constants.
const (
	StrategySlidingWindow = "sliding_window"
	StrategyTokenBucket   = "token_bucket"
)

// ProfileBrowser enables the outbound browser header profile.
const ProfileBrowser = "browser"

// DefaultAllowedModels is the allowlist applied when the filters section
// does not name any models.
var DefaultAllowedModels = []string{
	"gpt-3.5-turbo", "gpt-4", "gpt-4-turbo", "gpt-4.1", "gpt-4o", "gpt-4o-mini",
	"text-embedding-ada-002",
	"claude-3-opus-20240229", "claude-3-sonnet-20240229", "claude-3-haiku-20240307",
	"claude-3-5-sonnet-20240620", "claude-3-7-sonnet-20250219",
	"llama-3.3-70b",
}

// Config represents the complete api-firewall configuration.
// It is loaded once at start-up and never mutated afterwards.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Filters   FilterConfig    `toml:"filters"`
	Providers ProvidersConfig `toml:"providers"`
	Outbound  OutboundConfig  `toml:"outbound"`
	Health    HealthConfig    `toml:"health"`
	Cache     CacheConfig     `toml:"cache"`
}

// ServerConfig defines server-level settings.
type ServerConfig struct {
	Listen        string `toml:"listen"`
	TimeoutMS     int    `toml:"timeout_ms"`
	MaxConcurrent int    `toml:"max_concurrent"`
	EnableHTTP2   bool   `toml:"enable_http2"`

	// Mock short-circuits all upstream calls with canned responses.
	// Useful for tests and offline development.
	Mock bool `toml:"mock"`

	// StreamEventsPerSec caps relayed SSE events per second per stream.
	// Zero or negative leaves streams unthrottled.
	StreamEventsPerSec int `toml:"stream_events_per_sec"`
}

// GetTimeoutOption returns the upstream request timeout as a duration Option.
// Returns None when TimeoutMS is zero or negative, in which case the
// upstream client applies its own default.
func (s *ServerConfig) GetTimeoutOption() mo.Option[time.Duration] {
	if s.TimeoutMS <= 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(time.Duration(s.TimeoutMS) * time.Millisecond)
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // json, console, pretty
	Output string `toml:"output"` // stdout, stderr, or file path
	Pretty bool   `toml:"pretty"` // force colored console output
}

// ParseLevel converts the configured level string to zerolog.Level.
// Returns zerolog.InfoLevel for empty or unknown values.
func (l *LoggingConfig) ParseLevel() zerolog.Level {
	switch l.Level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelInfo, "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// FilterConfig is the security policy enforced on every inbound request.
type FilterConfig struct {
	Enabled           bool     `toml:"enabled"`
	AllowedModels     []string `toml:"allowed_models"`
	MaxTokens         int      `toml:"max_tokens"`
	BlockedPrompts    []string `toml:"blocked_prompts"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
	TokensPerMinute   int      `toml:"tokens_per_minute"`

	// Strategy selects the inbound admission algorithm:
	// sliding_window (default) or token_bucket.
	Strategy string `toml:"strategy"`
}

// GetEffectiveStrategy returns the admission strategy with default fallback.
func (f *FilterConfig) GetEffectiveStrategy() string {
	if f.Strategy == "" {
		return StrategySlidingWindow
	}
	return f.Strategy
}

// ProvidersConfig holds the per-provider upstream targets.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `toml:"openai"`
	Anthropic ProviderConfig `toml:"anthropic"`
	Cerebras  ProviderConfig `toml:"cerebras"`
}

// ProviderConfig defines one upstream provider endpoint.
type ProviderConfig struct {
	BaseURL string `toml:"base_url"`
	APIKey  string `toml:"api_key"` // supports ${ENV_VAR} expansion

	// OrgID is sent as OpenAI-Organization for OpenAI-compatible targets.
	OrgID string `toml:"org_id"`

	// Version is sent as anthropic-version for Anthropic targets.
	Version string `toml:"version"`
}

// OutboundConfig controls the optional outbound header profile.
//
// The browser profile rotates user agents and attaches browser-shaped
// headers to upstream calls. It is traffic shaping only, disabled by
// default, and orthogonal to the policy engine.
type OutboundConfig struct {
	Profile         string `toml:"profile"` // "" (none) or "browser"
	RandomRequestID bool   `toml:"random_request_id"`
}

// HealthConfig tunes the per-target circuit breakers.
type HealthConfig struct {
	FailureThreshold int `toml:"failure_threshold"` // consecutive failures before opening
	OpenSeconds      int `toml:"open_seconds"`      // how long an open circuit stays open
	HalfOpenProbes   int `toml:"half_open_probes"`  // probe requests allowed half-open
}

// CacheConfig controls the idempotent-GET response cache.
type CacheConfig struct {
	Enabled    bool  `toml:"enabled"`
	MaxBytes   int64 `toml:"max_bytes"`
	TTLSeconds int   `toml:"ttl_seconds"`
}

// GetTTL returns the cache TTL with a 60s default.
func (c *CacheConfig) GetTTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// applyDefaults fills zero values with production defaults.
func (c *Config) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1:8000"
	}
	if len(c.Filters.AllowedModels) == 0 {
		c.Filters.AllowedModels = DefaultAllowedModels
	}
	if c.Filters.MaxTokens == 0 {
		c.Filters.MaxTokens = 8192
	}
	if c.Filters.RequestsPerMinute == 0 {
		c.Filters.RequestsPerMinute = 100
	}
	if c.Filters.TokensPerMinute == 0 {
		c.Filters.TokensPerMinute = 30000
	}
}
