package config

import (
	"fmt"
	"strings"
)

// Validate checks cfg for invalid values. It returns the first problem
// found; configs that pass are safe to hand to component constructors.
func Validate(cfg *Config) error {
	if cfg.Registry.MaxBackupAgents < 0 {
		return fmt.Errorf("registry.max_backup_agents must not be negative")
	}
	if cfg.Failover.FailureThreshold < 1 {
		return fmt.Errorf("failover.failure_threshold must be at least 1")
	}
	if cfg.Failover.RecoveryTimeout <= 0 {
		return fmt.Errorf("failover.recovery_timeout must be positive")
	}
	if cfg.Failover.HealthCheckInterval <= 0 {
		return fmt.Errorf("failover.health_check_interval must be positive")
	}
	if cfg.Guidance.StaleAfter <= 0 {
		return fmt.Errorf("guidance.stale_after must be positive")
	}
	if cfg.Guidance.CleanupInterval <= 0 {
		return fmt.Errorf("guidance.cleanup_interval must be positive")
	}
	if cfg.Story.MaxRewriteIterations < 0 {
		return fmt.Errorf("story.max_rewrite_iterations must not be negative")
	}
	if cfg.Story.MaxAcceptanceCriteria < 1 {
		return fmt.Errorf("story.max_acceptance_criteria must be at least 1")
	}
	if cfg.Story.MaxOpenQuestions < 1 {
		return fmt.Errorf("story.max_open_questions must be at least 1")
	}
	if cfg.Story.AllowedRepository == "" {
		return fmt.Errorf("story.allowed_repository must not be empty")
	}
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logger.level %q is not a valid level", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logger.format %q is not valid (text or json)", cfg.Logger.Format)
	}
	switch strings.ToLower(cfg.Tracer.Exporter) {
	case "", "noop", "stdout":
	default:
		return fmt.Errorf("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
	if cfg.Archive.Enabled && cfg.Archive.Path == "" {
		return fmt.Errorf("archive.path must be set when archive is enabled")
	}
	return nil
}
