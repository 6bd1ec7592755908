package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// Validation errors.
var (
	ErrNegativeMaxTokens = errors.New("config: filters.max_tokens must be >= 0")
	ErrNegativeRPM       = errors.New("config: filters.requests_per_minute must be >= 0")
	ErrNegativeTPM       = errors.New("config: filters.tokens_per_minute must be >= 0")
)

// InvalidStrategyError is returned for an unknown filters.strategy value.
type InvalidStrategyError struct {
	Strategy string
}

func (e InvalidStrategyError) Error() string {
	return fmt.Sprintf("config: filters.strategy must be %q or %q, got %q",
		StrategySlidingWindow, StrategyTokenBucket, e.Strategy)
}

// InvalidProfileError is returned for an unknown outbound.profile value.
type InvalidProfileError struct {
	Profile string
}

func (e InvalidProfileError) Error() string {
	return fmt.Sprintf("config: outbound.profile must be empty or %q, got %q",
		ProfileBrowser, e.Profile)
}

// InvalidPatternError is returned when a blocked prompt pattern does not compile.
type InvalidPatternError struct {
	Pattern string
	Err     error
}

func (e InvalidPatternError) Error() string {
	return fmt.Sprintf("config: invalid blocked prompt pattern %q: %v", e.Pattern, e.Err)
}

func (e InvalidPatternError) Unwrap() error { return e.Err }

// InvalidBaseURLError is returned when a provider base URL does not parse.
type InvalidBaseURLError struct {
	Provider string
	BaseURL  string
}

func (e InvalidBaseURLError) Error() string {
	return fmt.Sprintf("config: invalid base_url %q for provider %s", e.BaseURL, e.Provider)
}

// Validate checks the configuration for errors after defaults are applied.
func (c *Config) Validate() error {
	if c.Filters.MaxTokens < 0 {
		return ErrNegativeMaxTokens
	}
	if c.Filters.RequestsPerMinute < 0 {
		return ErrNegativeRPM
	}
	if c.Filters.TokensPerMinute < 0 {
		return ErrNegativeTPM
	}

	switch c.Filters.GetEffectiveStrategy() {
	case StrategySlidingWindow, StrategyTokenBucket:
	default:
		return InvalidStrategyError{Strategy: c.Filters.Strategy}
	}

	switch c.Outbound.Profile {
	case "", ProfileBrowser:
	default:
		return InvalidProfileError{Profile: c.Outbound.Profile}
	}

	// Blocked patterns are compiled case-insensitively by the security
	// filter; reject ones that cannot compile at all up front.
	for _, pattern := range c.Filters.BlockedPrompts {
		if _, err := regexp.Compile("(?i)" + pattern); err != nil {
			return InvalidPatternError{Pattern: pattern, Err: err}
		}
	}

	providers := map[string]string{
		"openai":    c.Providers.OpenAI.BaseURL,
		"anthropic": c.Providers.Anthropic.BaseURL,
		"cerebras":  c.Providers.Cerebras.BaseURL,
	}
	for name, base := range providers {
		if base == "" {
			continue
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return InvalidBaseURLError{Provider: name, BaseURL: base}
		}
	}

	return nil
}
