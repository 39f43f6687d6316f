package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BITUNIX_API_KEY", "")
	t.Setenv("BITUNIX_SECRET", "")

	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://fapi.bitunix.com", cfg.Exchange.BaseUrl)
	assert.Equal(t, "en-US", cfg.Exchange.Language)
	assert.Equal(t, 10*time.Second, cfg.Exchange.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Exchange.TimeSyncTTL)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 200*time.Millisecond, cfg.Retry.BackoffBase)
	assert.Equal(t, 2*time.Second, cfg.Retry.BackoffMax)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.HasCredentials())
}

func TestLoadFromFileWithEnvSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
exchange:
  base_url: https://example.test
  timeout: 3s
  api_key: ${TEST_BITUNIX_KEY}
  secret: ${TEST_BITUNIX_SECRET}
  rate_limit: 5
retry:
  max_retries: 5
  backoff_base: 100ms
  backoff_max: 1s
log:
  level: debug
  format: json
`)
	t.Setenv("TEST_BITUNIX_KEY", "key-from-env")
	t.Setenv("TEST_BITUNIX_SECRET", "secret-from-env")

	cfg, err := LoadFrom(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "https://example.test", cfg.Exchange.BaseUrl)
	assert.Equal(t, 3*time.Second, cfg.Exchange.Timeout)
	assert.Equal(t, "key-from-env", cfg.Exchange.ApiKey)
	assert.Equal(t, "secret-from-env", cfg.Exchange.Secret)
	assert.Equal(t, 5.0, cfg.Exchange.RateLimit)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BackoffBase)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.HasCredentials())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "exchange:\n  language: en-US\n")
	t.Setenv("BITUNIX_EXCHANGE_LANGUAGE", "ru-RU")
	t.Setenv("BITUNIX_RETRY_MAX_RETRIES", "1")

	cfg, err := LoadFrom(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "ru-RU", cfg.Exchange.Language)
	assert.Equal(t, 1, cfg.Retry.MaxRetries)
}

func TestLoadReadsDotEnv(t *testing.T) {
	const key = "BITUNIX_DOTENV_ONLY_KEY"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", key+"=from-dotenv\n")
	writeFile(t, dir, "config.yaml", "exchange:\n  api_key: ${"+key+"}\n")

	cfg, err := LoadFrom(dir, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Exchange.ApiKey)
}

func TestLoadMissingDotEnvIsIgnored(t *testing.T) {
	_, err := LoadFrom(t.TempDir(), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir(), "")
	require.NoError(t, err)

	cfg.Exchange.BaseUrl = " "
	cfg.Retry.MaxRetries = -1

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
	assert.Contains(t, err.Error(), "max_retries")
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "exchange: [unclosed\n")

	_, err := LoadFrom(dir, "")
	require.Error(t, err)
}
