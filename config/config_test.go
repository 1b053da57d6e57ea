package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "claude", cfg.Claude.Path)
	assert.Equal(t, uint16(200), cfg.Terminal.Cols)
	assert.Equal(t, uint16(50), cfg.Terminal.Rows)
	assert.Equal(t, 256, cfg.Events.Buffer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[claude]
path = "/usr/local/bin/claude"
model = "opus"
skip_permissions = true
allowed_tools = ["Bash", "Read"]
max_turns = 25

[claude.env]
HTTP_PROXY = "http://proxy:8080"

[terminal]
cols = 120
rows = 40

[log]
level = "debug"
format = "json"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/local/bin/claude", cfg.Claude.Path)
	assert.Equal(t, "opus", cfg.Claude.Model)
	assert.True(t, cfg.Claude.SkipPermissions)
	assert.Equal(t, []string{"Bash", "Read"}, cfg.Claude.AllowedTools)
	assert.Equal(t, 25, cfg.Claude.MaxTurns)
	assert.Equal(t, "http://proxy:8080", cfg.Claude.Env["HTTP_PROXY"])
	assert.Equal(t, uint16(120), cfg.Terminal.Cols)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Sections absent from the file keep their defaults.
	assert.Equal(t, 256, cfg.Events.Buffer)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.toml")
	require.NoError(t, os.WriteFile(path, []byte(`[claude`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manager.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[claude]
model = "opus"
`), 0o644))

	t.Setenv("CCM_MODEL", "haiku")
	t.Setenv("CCM_SKIP_PERMISSIONS", "true")
	t.Setenv("CCM_MAX_TURNS", "7")
	t.Setenv("CCM_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "haiku", cfg.Claude.Model)
	assert.True(t, cfg.Claude.SkipPermissions)
	assert.Equal(t, 7, cfg.Claude.MaxTurns)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"empty claude path", func(c *Config) { c.Claude.Path = "" }},
		{"negative budget", func(c *Config) { c.Claude.MaxBudgetUSD = -1 }},
		{"negative turns", func(c *Config) { c.Claude.MaxTurns = -1 }},
		{"negative buffer", func(c *Config) { c.Events.Buffer = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	cfg.Claude.Model = "opus"
	cfg.Claude.SkipPermissions = true

	// Options apply without panicking; their effect is exercised through
	// the engine package's own tests.
	assert.NotEmpty(t, cfg.EngineOptions())
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"

	logger := cfg.Logger()
	require.NotNil(t, logger)
	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	cfg.Log.Level = "error"
	assert.False(t, cfg.Logger().Enabled(ctx, slog.LevelInfo))
}
