package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration. It is treated as
// immutable after Load returns; components receive the sub-structs they
// need by value at construction time.
type Config struct {
	Registry  RegistryConfig  `yaml:"registry"`
	Failover  FailoverConfig  `yaml:"failover"`
	Guidance  GuidanceConfig  `yaml:"guidance"`
	Story     StoryConfig     `yaml:"story"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
}

// RegistryConfig holds agent registry settings.
type RegistryConfig struct {
	MaxBackupAgents int `yaml:"max_backup_agents"` // default 3
}

// FailoverConfig holds failover manager settings.
type FailoverConfig struct {
	Enabled             bool          `yaml:"enabled"`               // automatic failover, default true
	RecoveryTimeout     time.Duration `yaml:"recovery_timeout"`      // delay before a recovery attempt, default 30s
	HealthCheckInterval time.Duration `yaml:"health_check_interval"` // periodic sweep interval, default 60s
	FailureThreshold    int           `yaml:"failure_threshold"`     // consecutive failures before FAILED, default 3
}

// GuidanceConfig holds session context settings.
type GuidanceConfig struct {
	StaleAfter      time.Duration `yaml:"stale_after"`      // session idle limit, default 30m
	CleanupInterval time.Duration `yaml:"cleanup_interval"` // stale sweep interval, default 10m
}

// StoryConfig holds story-strengthening pipeline settings.
type StoryConfig struct {
	AllowedRepository     string `yaml:"allowed_repository"` // default "durion-positivity-backend"
	MaxRewriteIterations  int    `yaml:"max_rewrite_iterations"`
	MaxAcceptanceCriteria int    `yaml:"max_acceptance_criteria"`
	MaxOpenQuestions      int    `yaml:"max_open_questions"`
	EnableLoopDetection   *bool  `yaml:"enable_loop_detection,omitempty"` // nil = true
}

// LoopDetectionEnabled resolves the tri-state flag (unset means enabled).
func (c StoryConfig) LoopDetectionEnabled() bool {
	return c.EnableLoopDetection == nil || *c.EnableLoopDetection
}

// ArchiveConfig holds archive store settings.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // SQLite file, default "./data/archive.db"
}

// SchedulerConfig holds background task settings.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	enabled := true
	return &Config{
		Registry: RegistryConfig{MaxBackupAgents: 3},
		Failover: FailoverConfig{
			Enabled:             true,
			RecoveryTimeout:     30 * time.Second,
			HealthCheckInterval: 60 * time.Second,
			FailureThreshold:    3,
		},
		Guidance: GuidanceConfig{
			StaleAfter:      30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Story: StoryConfig{
			AllowedRepository:     "durion-positivity-backend",
			MaxRewriteIterations:  2,
			MaxAcceptanceCriteria: 25,
			MaxOpenQuestions:      10,
			EnableLoopDetection:   &enabled,
		},
		Archive:   ArchiveConfig{Enabled: false, Path: "./data/archive.db"},
		Scheduler: SchedulerConfig{Enabled: true},
		Logger:    LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer:    TracerConfig{Enabled: false, Exporter: "noop"},
	}
}

// Load reads a YAML config file, applies env overrides and validates.
// A missing file is not an error: defaults plus env overrides are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides applies AGENTHUB_* environment variables on top of cfg.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AGENTHUB_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("AGENTHUB_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("AGENTHUB_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("AGENTHUB_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
	if v := os.Getenv("AGENTHUB_FAILOVER_ENABLED"); v != "" {
		cfg.Failover.Enabled = v == "true"
	}
	if v := os.Getenv("AGENTHUB_FAILOVER_RECOVERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Failover.RecoveryTimeout = d
		}
	}
	if v := os.Getenv("AGENTHUB_FAILOVER_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Failover.HealthCheckInterval = d
		}
	}
	if v := os.Getenv("AGENTHUB_REGISTRY_MAX_BACKUP_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Registry.MaxBackupAgents = n
		}
	}
	if v := os.Getenv("AGENTHUB_STORY_ALLOWED_REPOSITORY"); v != "" {
		cfg.Story.AllowedRepository = v
	}
	if v := os.Getenv("AGENTHUB_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
		cfg.Archive.Enabled = true
	}
}
