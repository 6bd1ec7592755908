package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTempConfigFile creates a temporary config file for testing.
func createTempConfigFile(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte(validConfig), 0o600)
	require.NoError(t, err)
	return path
}

// validConfig is a minimal valid configuration for testing.
const validConfig = `
[server]
listen = ":8100"
mock = true

[logging]
level = "info"
format = "json"

[filters]
enabled = true

[providers.openai]
base_url = "https://api.openai.com/v1"
api_key = "sk-test"
`

func TestNewContainer(t *testing.T) {
	configPath := createTempConfigFile(t)

	container := NewContainer(configPath)
	require.NotNil(t, container)

	err := container.Shutdown()
	assert.NoError(t, err)
}

func TestContainerInvoke(t *testing.T) {
	configPath := createTempConfigFile(t)
	container := NewContainer(configPath)
	defer container.Shutdown()

	t.Run("resolves config service", func(t *testing.T) {
		cfgSvc, err := Invoke[*ConfigService](container)
		require.NoError(t, err)
		require.NotNil(t, cfgSvc.Config)
		assert.Equal(t, ":8100", cfgSvc.Config.Server.Listen)
		assert.True(t, cfgSvc.Config.Server.Mock)
	})

	t.Run("resolves targets service", func(t *testing.T) {
		targets := MustInvoke[*TargetsService](container)
		assert.NotNil(t, targets.OpenAI)
		assert.NotNil(t, targets.Anthropic)
		assert.False(t, targets.CerebrasEnabled)
	})

	t.Run("resolves limiters service", func(t *testing.T) {
		limiters := MustInvoke[*LimitersService](container)
		assert.NotNil(t, limiters.Requests)
		assert.NotNil(t, limiters.Tokens)
	})

	t.Run("resolves server service", func(t *testing.T) {
		serverSvc := MustInvoke[*ServerService](container)
		require.NotNil(t, serverSvc.Server)
		assert.Equal(t, ":8100", serverSvc.Server.Addr())
	})
}

func TestContainerInvokeBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	err := os.WriteFile(path, []byte("[filters]\nmax_tokens = -1\n"), 0o600)
	require.NoError(t, err)

	container := NewContainer(path)
	defer container.Shutdown()

	_, err = Invoke[*ConfigService](container)
	assert.Error(t, err)
}
