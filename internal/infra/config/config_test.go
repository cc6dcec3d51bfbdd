package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Registry.MaxBackupAgents != 3 {
		t.Errorf("MaxBackupAgents = %d, want 3", cfg.Registry.MaxBackupAgents)
	}
	if !cfg.Failover.Enabled {
		t.Error("failover should be enabled by default")
	}
	if cfg.Failover.RecoveryTimeout != 30*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 30s", cfg.Failover.RecoveryTimeout)
	}
	if cfg.Failover.HealthCheckInterval != 60*time.Second {
		t.Errorf("HealthCheckInterval = %v, want 60s", cfg.Failover.HealthCheckInterval)
	}
	if cfg.Failover.FailureThreshold != 3 {
		t.Errorf("FailureThreshold = %d, want 3", cfg.Failover.FailureThreshold)
	}
	if cfg.Story.MaxRewriteIterations != 2 || cfg.Story.MaxAcceptanceCriteria != 25 || cfg.Story.MaxOpenQuestions != 10 {
		t.Errorf("story limits = %d/%d/%d, want 2/25/10",
			cfg.Story.MaxRewriteIterations, cfg.Story.MaxAcceptanceCriteria, cfg.Story.MaxOpenQuestions)
	}
	if !cfg.Story.LoopDetectionEnabled() {
		t.Error("loop detection should be enabled by default")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Guidance.StaleAfter != 30*time.Minute {
		t.Errorf("StaleAfter = %v, want 30m", cfg.Guidance.StaleAfter)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
failover:
  enabled: false
  recovery_timeout: 5s
  health_check_interval: 10s
  failure_threshold: 2
story:
  allowed_repository: other-repo
logger:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Failover.Enabled {
		t.Error("failover should be disabled")
	}
	if cfg.Failover.RecoveryTimeout != 5*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 5s", cfg.Failover.RecoveryTimeout)
	}
	if cfg.Story.AllowedRepository != "other-repo" {
		t.Errorf("AllowedRepository = %q", cfg.Story.AllowedRepository)
	}
	// Untouched sections keep defaults.
	if cfg.Story.MaxAcceptanceCriteria != 25 {
		t.Errorf("MaxAcceptanceCriteria = %d, want 25", cfg.Story.MaxAcceptanceCriteria)
	}
	if cfg.Logger.Format != "json" {
		t.Errorf("Logger.Format = %q, want json", cfg.Logger.Format)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENTHUB_LOGGER_LEVEL", "debug")
	t.Setenv("AGENTHUB_FAILOVER_ENABLED", "false")
	t.Setenv("AGENTHUB_FAILOVER_RECOVERY_TIMEOUT", "45s")
	t.Setenv("AGENTHUB_REGISTRY_MAX_BACKUP_AGENTS", "5")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q, want debug", cfg.Logger.Level)
	}
	if cfg.Failover.Enabled {
		t.Error("failover should be disabled via env")
	}
	if cfg.Failover.RecoveryTimeout != 45*time.Second {
		t.Errorf("RecoveryTimeout = %v, want 45s", cfg.Failover.RecoveryTimeout)
	}
	if cfg.Registry.MaxBackupAgents != 5 {
		t.Errorf("MaxBackupAgents = %d, want 5", cfg.Registry.MaxBackupAgents)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative backups", func(c *Config) { c.Registry.MaxBackupAgents = -1 }},
		{"zero threshold", func(c *Config) { c.Failover.FailureThreshold = 0 }},
		{"zero recovery timeout", func(c *Config) { c.Failover.RecoveryTimeout = 0 }},
		{"zero sweep interval", func(c *Config) { c.Failover.HealthCheckInterval = 0 }},
		{"empty repository", func(c *Config) { c.Story.AllowedRepository = "" }},
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }},
		{"bad exporter", func(c *Config) { c.Tracer.Exporter = "jaeger" }},
		{"archive without path", func(c *Config) { c.Archive.Enabled = true; c.Archive.Path = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
