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
	t.Setenv("COLLABIORA_STATE_DIR", t.TempDir())
	t.Setenv("COLLABIORA_API_URL", "")
	t.Setenv("COLLABIORA_POLL_SECONDS", "")
	t.Setenv("COLLABIORA_DEBUG", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.collabiora.org", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
	assert.False(t, cfg.Debug)
}

func TestFileOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`{
		"api_base_url": "https://staging.collabiora.org",
		"poll_interval_seconds": 5
	}`), 0o644))

	t.Setenv("COLLABIORA_STATE_DIR", dir)
	t.Setenv("COLLABIORA_API_URL", "")
	t.Setenv("COLLABIORA_POLL_SECONDS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://staging.collabiora.org", cfg.APIBaseURL)
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
}

func TestEnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(`{
		"api_base_url": "https://staging.collabiora.org"
	}`), 0o644))

	t.Setenv("COLLABIORA_STATE_DIR", dir)
	t.Setenv("COLLABIORA_API_URL", "https://local.collabiora.test")
	t.Setenv("COLLABIORA_POLL_SECONDS", "3")
	t.Setenv("COLLABIORA_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://local.collabiora.test", cfg.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.PollInterval)
	assert.True(t, cfg.Debug)
}

func TestMalformedFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("{nope"), 0o644))
	t.Setenv("COLLABIORA_STATE_DIR", dir)

	_, err := Load()
	assert.Error(t, err)
}
