package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp keeps a stray .env in the working tree out of the test.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	dir := chdirTemp(t)

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Market.Timezone)
	assert.Equal(t, ".NS", cfg.Yahoo.Suffix)
	assert.Contains(t, cfg.Server.CORS.AllowedOrigins, "http://localhost:5173")
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 6001
dhan:
  timeout_ms: 2500
  max_sessions: 10
symbols:
  security_ids:
    WIPRO: "3787"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6001, cfg.Server.Port)
	assert.Equal(t, 2500, cfg.Dhan.TimeoutMs)
	assert.Equal(t, 10, cfg.Dhan.MaxSessions)
	assert.Equal(t, "EQUITY", cfg.Dhan.Instrument, "unset keys keep defaults")
	assert.Equal(t, "3787", cfg.Symbols.SecurityIDs["WIPRO"])
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("PORT", "7001")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := Load(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7001, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORS.AllowedOrigins)
	assert.Empty(t, cfg.Store.Sqlite.Path)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DHAN_BASE_URL=http://dhan.test\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("DHAN_BASE_URL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://dhan.test", cfg.Dhan.BaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	dir := chdirTemp(t)

	t.Run("bad port env", func(t *testing.T) {
		t.Setenv("PORT", "abc")
		_, err := Load("")
		assert.ErrorContains(t, err, "invalid PORT")
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [1, 2"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("zero timeout", func(t *testing.T) {
		path := filepath.Join(dir, "zero.yaml")
		require.NoError(t, os.WriteFile(path, []byte("yahoo:\n  timeout_ms: 0\n"), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "yahoo.timeout_ms")
	})
}
