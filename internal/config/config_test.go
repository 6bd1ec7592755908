package config_test

import (
	"testing"
	"time"

	"api-firewall/internal/config"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// assertTimeoutOption checks GetTimeoutOption for a given timeout_ms value.
func assertTimeoutOption(t *testing.T, name string, timeoutMS int, wantSome bool, wantValue time.Duration) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		t.Parallel()

		s := config.ServerConfig{TimeoutMS: timeoutMS}
		opt := s.GetTimeoutOption()

		if opt.IsPresent() != wantSome {
			t.Errorf("IsPresent() = %v, want %v", opt.IsPresent(), wantSome)
		}
		if wantSome {
			if got := opt.MustGet(); got != wantValue {
				t.Errorf("MustGet() = %v, want %v", got, wantValue)
			}
		}
	})
}

func TestGetTimeoutOption(t *testing.T) {
	t.Parallel()

	assertTimeoutOption(t, "zero is none", 0, false, 0)
	assertTimeoutOption(t, "negative is none", -1, false, 0)
	assertTimeoutOption(t, "positive is some", 30000, true, 30*time.Second)
}

func TestGetTimeoutOptionType(_ *testing.T) {
	// Confirms the return type stays mo.Option[time.Duration].
	var _ mo.Option[time.Duration] = (&config.ServerConfig{}).GetTimeoutOption()
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{config.LevelDebug, zerolog.DebugLevel},
		{config.LevelInfo, zerolog.InfoLevel},
		{config.LevelWarn, zerolog.WarnLevel},
		{config.LevelError, zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		l := config.LoggingConfig{Level: tt.level}
		if got := l.ParseLevel(); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestGetEffectiveStrategy(t *testing.T) {
	t.Parallel()

	f := config.FilterConfig{}
	if got := f.GetEffectiveStrategy(); got != config.StrategySlidingWindow {
		t.Errorf("Expected default strategy sliding_window, got %s", got)
	}

	f.Strategy = config.StrategyTokenBucket
	if got := f.GetEffectiveStrategy(); got != config.StrategyTokenBucket {
		t.Errorf("Expected token_bucket, got %s", got)
	}
}

func TestCacheGetTTL(t *testing.T) {
	t.Parallel()

	c := config.CacheConfig{}
	if got := c.GetTTL(); got != time.Minute {
		t.Errorf("Expected default TTL 1m, got %v", got)
	}

	c.TTLSeconds = 300
	if got := c.GetTTL(); got != 5*time.Minute {
		t.Errorf("Expected TTL 5m, got %v", got)
	}
}
