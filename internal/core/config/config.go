package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pulsegrid-lab/pulsegrid/internal/core/series"
)

// Config represents the top-level application config plus resolved series definitions.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Series    SeriesConfig    `koanf:"series"`
	Scheduler SchedulerConfig `koanf:"scheduler"`

	// SeriesLoading is populated by Load after parsing series files.
	SeriesLoading SeriesLoadingConfig `koanf:"-"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"` // postgres | memory
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type SeriesConfig struct {
	ConfigDir     string `koanf:"config_dir"`
	RequireSeries bool   `koanf:"require_series"`
}

type SchedulerConfig struct {
	FlushInterval string `koanf:"flush_interval"` // parsed and validated on startup
}

type SeriesLoadingConfig struct {
	ConfigDir string
	Series    []series.Series
}

func (c SchedulerConfig) EffectiveFlushInterval() string {
	if c.FlushInterval != "" {
		return c.FlushInterval
	}
	return "1s"
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Database.Type {
	case "postgres":
		if strings.TrimSpace(c.Database.DSN) == "" {
			return fmt.Errorf("database.dsn is required for database.type postgres")
		}
		if c.Database.MaxOpenConns <= 0 {
			return fmt.Errorf("database.max_open_conns must be > 0")
		}
		if c.Database.MaxIdleConns <= 0 {
			return fmt.Errorf("database.max_idle_conns must be > 0")
		}
	case "memory":
		// No connection settings to check.
	default:
		return fmt.Errorf("unsupported database.type %q (must be postgres or memory)", c.Database.Type)
	}

	if strings.TrimSpace(c.Series.ConfigDir) == "" {
		return fmt.Errorf("series.config_dir is required")
	}

	interval, err := time.ParseDuration(c.Scheduler.EffectiveFlushInterval())
	if err != nil {
		return fmt.Errorf("invalid scheduler flush interval %q: %w", c.Scheduler.EffectiveFlushInterval(), err)
	}
	if interval <= 0 {
		return fmt.Errorf("scheduler flush interval must be > 0")
	}

	return nil
}

// Load parses config from file + env, validates it, then loads and validates series definitions.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":              8080,
		"server.host":              "0.0.0.0",
		"server.max_body_size_mb":  1,
		"server.mode":              "release",
		"database.type":            "postgres",
		"database.dsn":             "",
		"database.max_open_conns":  25,
		"database.max_idle_conns":  25,
		"database.auto_migrate":    true,
		"series.config_dir":        "./config/series",
		"series.require_series":    true,
		"scheduler.flush_interval": "1s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PULSEGRID_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "PULSEGRID_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := series.NewFileSystemRepository(cfg.Series.ConfigDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load series definitions: %w", err)
	}
	defs := repo.List()
	if cfg.Series.RequireSeries && len(defs) == 0 {
		return nil, fmt.Errorf("no series definitions found in %q", cfg.Series.ConfigDir)
	}

	cfg.SeriesLoading = SeriesLoadingConfig{
		ConfigDir: cfg.Series.ConfigDir,
		Series:    defs,
	}

	return &cfg, nil
}
