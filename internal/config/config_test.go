package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParse_OverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[world]
strict = false
report_interval = 60
large_delta = "100ms"

[loop]
tick_rate = "20ms"
max_frames = 500

[logging]
level = "debug"
format = "json"
`), "inline")
	require.NoError(t, err)

	require.False(t, cfg.World.Strict)
	require.True(t, cfg.World.WarnCreateDuringUpdate, "unset keys keep defaults")
	require.Equal(t, 60, cfg.World.ReportInterval)
	require.Equal(t, 100*time.Millisecond, cfg.World.LargeDelta)
	require.Equal(t, 20*time.Millisecond, cfg.Loop.TickRate)
	require.Equal(t, 500, cfg.Loop.MaxFrames)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, "tickforge", cfg.Host.Name)
	require.NotZero(t, cfg.Host.StartTime)

	w := cfg.World.ECS()
	require.False(t, w.Strict)
	require.Equal(t, 60, w.ReportInterval)
}

func TestParse_RejectsBadInput(t *testing.T) {
	_, err := Parse([]byte(`[loop`), "broken")
	require.ErrorContains(t, err, "parse config broken")

	_, err = Parse([]byte("[loop]\ntick_rate = \"0s\"\n"), "zero")
	require.ErrorContains(t, err, "tick_rate")
}

func TestLoad_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "host.toml")
	require.NoError(t, os.WriteFile(path, []byte("[host]\nname = \"bench\"\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "bench", cfg.Host.Name)
	require.Empty(t, cfg.Database.DSN)
	require.Equal(t, "bench", cfg.Database.ApplicationName, "defaults to host name")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "read config")
}

func TestLoad_ShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "tickforge.toml"))
	require.NoError(t, err)
	require.Equal(t, "tickforge-dev", cfg.Host.Name)
	require.Equal(t, 16*time.Millisecond, cfg.Loop.TickRate)
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	require.Equal(t, "data/scene.yaml", cfg.Scene.Path)
	require.Equal(t, time.Minute, cfg.Database.HealthCheck)
}
