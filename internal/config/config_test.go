package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080/", cfg.Client.BaseURL)
	assert.Equal(t, 0, cfg.Client.Retries)
	assert.Equal(t, time.Second, cfg.Client.CooldownTick)
	assert.Equal(t, "zh", cfg.Client.Language)
	assert.Equal(t, "memory", cfg.Credentials.Backend)
	assert.Equal(t, "user_prefs", cfg.Credentials.Namespace)
	assert.Equal(t, 5*time.Minute, cfg.Server.CodeTTL)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte(`
client:
  base_url: "http://api.example.com"
  timeout: 3s
  retries: 2
credentials:
  backend: "redis"
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	t.Setenv("QUICKPLAN_CLIENT_LANGUAGE", "en")
	t.Setenv("QUICKPLAN_CREDENTIALS_NAMESPACE", "alt")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://api.example.com/", cfg.Client.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2, cfg.Client.Retries)
	assert.Equal(t, "redis", cfg.Credentials.Backend)
	assert.Equal(t, "en", cfg.Client.Language)
	assert.Equal(t, "alt", cfg.Credentials.Namespace)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
