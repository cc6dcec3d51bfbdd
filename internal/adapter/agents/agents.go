// Package agents provides the built-in consultation agents: each one
// wraps a consult.Core around a canned per-domain strategy.
package agents

import (
	"context"
	"log/slog"

	"agenthub/internal/domain"
	"agenthub/internal/usecase/consult"
)

// Confidence levels reported by the built-in strategies.
const (
	baseConfidence    = 0.8
	focusedConfidence = 0.85
)

var defaultRecommendations = []string{"implement pattern", "configure system", "add monitoring"}

func architectureConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "architecture-agent",
		Name:         "Architecture Agent",
		Domain:       "architecture",
		Capabilities: []string{"service-design", "api-contracts", "dependency-analysis", "module-boundaries"},
		Spec:         domain.HighPerformanceSpec(),
	}
}

func architectureStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "Architecture Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Keep service boundaries aligned with business capabilities\n" +
		"- Define API contracts before implementation\n" +
		"- Avoid shared databases between services\n" +
		"- Document architectural decisions as they are made\n"
	return guidance, baseConfidence, defaultRecommendations, nil
}

func eventDrivenConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "event-driven-agent",
		Name:         "Event-Driven Architecture Agent",
		Domain:       "event-driven",
		Capabilities: []string{"event-sourcing", "message-brokers", "event-schema-design", "saga-patterns", "event-streaming"},
	}
}

func eventDrivenStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "Event-Driven Architecture Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Use message brokers like Kafka or RabbitMQ\n" +
		"- Implement event schema versioning and validation\n" +
		"- Ensure idempotent event handlers\n" +
		"- Consider dead-letter queues for failed events\n" +
		"- Implement saga patterns for distributed transactions\n"
	return guidance, baseConfidence, defaultRecommendations, nil
}

func cicdConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "cicd-agent",
		Name:         "CI/CD Pipeline Agent",
		Domain:       "cicd",
		Capabilities: []string{"pipeline-design", "deployment-strategies", "security-scanning", "artifact-management"},
	}
}

func cicdStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "CI/CD Pipeline Security and Configuration Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Implement security scanning in pipeline stages\n" +
		"- Use artifact verification and signing\n" +
		"- Apply blue-green deployment strategies\n" +
		"- Integrate static analysis (SAST) tools\n" +
		"- Enforce policy checks before deployment\n"
	recs := []string{
		"Use rolling deployment strategy for zero-downtime updates",
		"Configure resource requests and limits",
		"Set up liveness and readiness probes",
	}
	return guidance, focusedConfidence, recs, nil
}

func configurationConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "configuration-agent",
		Name:         "Configuration Management Agent",
		Domain:       "configuration",
		Capabilities: []string{"config-sources", "secret-management", "feature-flags", "environment-parity"},
	}
}

func configurationStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "Configuration Management Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Centralize configuration with Spring Cloud Config or Consul\n" +
		"- Store secrets in Vault, never in source control\n" +
		"- Validate configuration at startup, fail fast on errors\n" +
		"- Use feature flags for gradual rollout\n" +
		"- Keep environment-specific values out of images\n"
	return guidance, baseConfidence, defaultRecommendations, nil
}

func resilienceConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "resilience-agent",
		Name:         "Resilience Engineering Agent",
		Domain:       "resilience",
		Capabilities: []string{"circuit-breakers", "retry-policies", "bulkheads", "chaos-engineering", "health-checks"},
	}
}

func resilienceStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "Resilience Engineering Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Protect downstream calls with circuit breakers\n" +
		"- Use exponential backoff with jitter for retries\n" +
		"- Isolate failure domains with bulkheads\n" +
		"- Define SLI and SLO targets before tuning timeouts\n" +
		"- Run chaos monkey experiments against staging first\n"
	return guidance, focusedConfidence, defaultRecommendations, nil
}

func testingConfig() consult.CoreConfig {
	return consult.CoreConfig{
		ID:           "testing-agent",
		Name:         "Testing Agent",
		Domain:       "testing",
		Capabilities: []string{"test-strategy", "contract-testing", "test-data", "coverage-analysis"},
	}
}

func testingStrategy(ctx context.Context, req domain.ConsultationRequest) (string, float64, []string, error) {
	guidance := "Testing Guidance:\n\n" +
		"For query: " + req.Query + "\n\n" +
		"- Shape the suite as a pyramid: unit, integration, end-to-end\n" +
		"- Use contract tests at every service boundary\n" +
		"- Generate test data, never share it between tests\n" +
		"- Track coverage trends rather than absolute numbers\n"
	return guidance, baseConfidence, defaultRecommendations, nil
}

// NewArchitectureAgent advises on service decomposition and API design.
func NewArchitectureAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(architectureConfig(), architectureStrategy, logger)
}

// NewEventDrivenAgent advises on messaging and event design.
func NewEventDrivenAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(eventDrivenConfig(), eventDrivenStrategy, logger)
}

// NewCICDAgent advises on pipeline security and deployment strategy.
func NewCICDAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(cicdConfig(), cicdStrategy, logger)
}

// NewConfigurationAgent advises on configuration sources and secrets.
func NewConfigurationAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(configurationConfig(), configurationStrategy, logger)
}

// NewResilienceAgent advises on failure isolation and recovery.
func NewResilienceAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(resilienceConfig(), resilienceStrategy, logger)
}

// NewTestingAgent advises on test strategy and coverage.
func NewTestingAgent(logger *slog.Logger) *consult.Core {
	return consult.NewCore(testingConfig(), testingStrategy, logger)
}

// All returns every built-in agent, in registration order.
func All(logger *slog.Logger) []*consult.Core {
	return []*consult.Core{
		NewArchitectureAgent(logger),
		NewEventDrivenAgent(logger),
		NewCICDAgent(logger),
		NewConfigurationAgent(logger),
		NewResilienceAgent(logger),
		NewTestingAgent(logger),
	}
}

// AllProtected returns every built-in agent with its strategy guarded by a
// dedicated circuit breaker, in registration order.
func AllProtected(cfg BreakerConfig, logger *slog.Logger) []*consult.Core {
	specs := []struct {
		config   consult.CoreConfig
		strategy consult.Strategy
	}{
		{architectureConfig(), architectureStrategy},
		{eventDrivenConfig(), eventDrivenStrategy},
		{cicdConfig(), cicdStrategy},
		{configurationConfig(), configurationStrategy},
		{resilienceConfig(), resilienceStrategy},
		{testingConfig(), testingStrategy},
	}
	cores := make([]*consult.Core, 0, len(specs))
	for _, s := range specs {
		protected := WithBreaker(s.config.ID, s.strategy, cfg, logger)
		cores = append(cores, consult.NewCore(s.config, protected, logger))
	}
	return cores
}
