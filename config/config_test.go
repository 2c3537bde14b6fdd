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
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "microsoft/tapex-base-finetuned-wikisql", cfg.Model.Name)
	assert.Equal(t, 512, cfg.Model.MaxLength)
	assert.Equal(t, time.Duration(0), cfg.Model.Timeout)
	assert.Equal(t, 8501, cfg.Web.Port)
	assert.Equal(t, 5, cfg.Web.PreviewRows)
	assert.Equal(t, 30*time.Minute, cfg.Web.SessionTTL)
	assert.Equal(t, ":8501", cfg.Web.Addr())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tableqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  name: custom/tapex
  max_length: 256
  timeout: 45s
web:
  port: 9000
  session_ttl: 5m
log:
  level: debug
`), 0o600))

	t.Setenv("TABLEQA_MODEL_TOKEN", "secret")
	t.Setenv("TABLEQA_WEB_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom/tapex", cfg.Model.Name)
	assert.Equal(t, 256, cfg.Model.MaxLength)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "secret", cfg.Model.Token)
	assert.Equal(t, 9100, cfg.Web.Port, "environment wins over file")
	assert.Equal(t, 5*time.Minute, cfg.Web.SessionTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TABLEQA_MODEL_MAX_LENGTH", "0")

	_, err := Load("")
	assert.Error(t, err)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
