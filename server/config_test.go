package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nestlist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9000"
database:
  driver: postgres
  url: postgres://localhost/nestlist
auth:
  token_ttl: 2h
  cookie_name: custom
cors:
  origins: [https://app.example.com]
log:
  level: debug
`), 0o600))

	t.Setenv("NESTLIST_CONFIG", path)
	t.Setenv("ADDR", ":9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/nestlist", cfg.Database.URL)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "custom", cfg.Auth.CookieName)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("NESTLIST_CONFIG", "")
	t.Setenv("SESSION_TTL", "30m")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())

	t.Setenv("SESSION_TTL", "soon")
	_, err = loadConfig()
	assert.Error(t, err)
}
