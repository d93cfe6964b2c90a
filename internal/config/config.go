package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tickforge/ecsrt/internal/core/ecs"
)

type Config struct {
	Host      HostConfig      `toml:"host"`
	World     WorldConfig     `toml:"world"`
	Loop      LoopConfig      `toml:"loop"`
	Database  DatabaseConfig  `toml:"database"`
	Scripting ScriptingConfig `toml:"scripting"`
	Scene     SceneConfig     `toml:"scene"`
	Logging   LoggingConfig   `toml:"logging"`
}

type HostConfig struct {
	Name      string `toml:"name"`
	StartTime int64  // set at boot, not from config
}

type WorldConfig struct {
	Strict                 bool          `toml:"strict"`
	WarnCreateDuringUpdate bool          `toml:"warn_create_during_update"`
	ReportInterval         int           `toml:"report_interval"` // frames per metrics window
	LargeDelta             time.Duration `toml:"large_delta"`
}

type LoopConfig struct {
	TickRate      time.Duration `toml:"tick_rate"`
	MaxFrames     int           `toml:"max_frames"`     // 0 = run until signalled
	ProducerEvery time.Duration `toml:"producer_every"` // background spawn cadence, 0 disables
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables report persistence
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
	FlushEvery      int           `toml:"flush_every"`      // frames between report flushes
	ApplicationName string        `toml:"application_name"` // defaults to host.name
	HealthCheck     time.Duration `toml:"health_check"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"`
}

type SceneConfig struct {
	Path string `toml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes TOML over the defaults. name is only used in errors.
func Parse(data []byte, name string) (*Config, error) {
	cfg := defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", name, err)
	}
	if cfg.Loop.TickRate <= 0 {
		return nil, fmt.Errorf("config %s: loop.tick_rate must be positive", name)
	}
	if cfg.Database.ApplicationName == "" {
		cfg.Database.ApplicationName = cfg.Host.Name
	}
	cfg.Host.StartTime = time.Now().Unix()
	return cfg, nil
}

// ECS converts the [world] section to the World's configuration.
func (c WorldConfig) ECS() ecs.Config {
	return ecs.Config{
		Strict:                 c.Strict,
		WarnCreateDuringUpdate: c.WarnCreateDuringUpdate,
		ReportInterval:         c.ReportInterval,
		LargeDelta:             c.LargeDelta,
	}
}

func defaults() *Config {
	wd := ecs.DefaultConfig()
	return &Config{
		Host: HostConfig{
			Name: "tickforge",
		},
		World: WorldConfig{
			Strict:                 wd.Strict,
			WarnCreateDuringUpdate: wd.WarnCreateDuringUpdate,
			ReportInterval:         wd.ReportInterval,
			LargeDelta:             wd.LargeDelta,
		},
		Loop: LoopConfig{
			TickRate:      16 * time.Millisecond,
			ProducerEvery: 500 * time.Millisecond,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 30 * time.Minute,
			FlushEvery:      60,
			HealthCheck:     time.Minute,
		},
		Scripting: ScriptingConfig{
			Dir: "scripts",
		},
		Scene: SceneConfig{
			Path: "data/scene.yaml",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
