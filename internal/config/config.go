package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/rpggio/fifoguard/internal/domain/change"
)

// Config defines fifoguard's process configuration.
type Config struct {
	DB    DBConfig    `yaml:"db"`
	Log   LogConfig   `yaml:"log"`
	Audit AuditConfig `yaml:"audit"`
	Clock ClockConfig `yaml:"clock"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File, when set, directs log output to a rotating file instead of
	// stderr; see internal/logging.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AuditConfig controls retention of processed changes and audit log
// entries, and the default conflict resolution strategy applied to
// newly detected conflicts.
type AuditConfig struct {
	RetentionDays   int             `yaml:"retention_days"`
	DefaultStrategy change.Strategy `yaml:"default_strategy"`
}

// ClockConfig holds settings for the monotonic per-step clock, kept as
// its own nested struct so it can grow without touching the rest of
// Config. SeedFromHistory is loaded from the config file but nothing
// reads it: change.Service always seeds each (session, step) clock from
// stored history on first use, whatever its value.
type ClockConfig struct {
	SeedFromHistory bool `yaml:"seed_from_history"`
}

const envPrefix = "FIFOGUARD"

// Load reads configuration from an optional YAML file, then layers
// FIFOGUARD_* environment variables on top via viper.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv(envPrefix + "_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func defaults() Config {
	defaultDBPath := "fifoguard.db"
	if exePath, err := os.Executable(); err == nil {
		defaultDBPath = filepath.Join(filepath.Dir(exePath), "fifoguard.db")
	}

	return Config{
		DB: DBConfig{Path: defaultDBPath},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			RetentionDays:   30,
			DefaultStrategy: change.StrategyLatestWins,
		},
		Clock: ClockConfig{SeedFromHistory: true},
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// applyEnvOverrides binds FIFOGUARD_* environment variables on top of
// the YAML-loaded config via viper, giving operators an env override
// path without editing the config file.
func applyEnvOverrides(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bind := func(key string) string {
		_ = v.BindEnv(key)
		return v.GetString(key)
	}

	if val := bind("db.path"); val != "" {
		cfg.DB.Path = val
	}
	if val := bind("log.level"); val != "" {
		cfg.Log.Level = val
	}
	if val := bind("log.file"); val != "" {
		cfg.Log.File = val
	}
	if val := bind("audit.default_strategy"); val != "" {
		strategy := change.Strategy(val)
		if !strategy.Valid() {
			return fmt.Errorf("invalid %s_AUDIT_DEFAULT_STRATEGY: %s", envPrefix, val)
		}
		cfg.Audit.DefaultStrategy = strategy
	}
	if val := bind("audit.retention_days"); val != "" {
		days, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s_AUDIT_RETENTION_DAYS: %w", envPrefix, err)
		}
		cfg.Audit.RetentionDays = days
	}

	return nil
}
