package domain

import (
	"context"
	"time"
)

// HealthState classifies agent health.
type HealthState string

const (
	HealthHealthy   HealthState = "HEALTHY"
	HealthDegraded  HealthState = "DEGRADED"
	HealthUnhealthy HealthState = "UNHEALTHY"
	HealthUnknown   HealthState = "UNKNOWN"
)

// HealthStatus is a point-in-time health report for an agent.
type HealthStatus struct {
	AgentID   string      `json:"agent_id"`
	State     HealthState `json:"state"`
	Message   string      `json:"message,omitempty"`
	CheckedAt time.Time   `json:"checked_at"`
}

// Available reports whether the agent can accept work. Degraded agents
// still serve requests; only unhealthy (or unknown) ones are excluded.
func (h HealthStatus) Available() bool {
	return h.State == HealthHealthy || h.State == HealthDegraded
}

// PerformanceSpec declares the targets an agent is held to. The response
// time target drives degradation marking; the concurrency ceiling drives
// capacity rejection.
type PerformanceSpec struct {
	ResponseTime          time.Duration `json:"response_time"`
	AccuracyThreshold     float64       `json:"accuracy_threshold"`
	AvailabilityThreshold float64       `json:"availability_threshold"`
	MaxConcurrentRequests int           `json:"max_concurrent_requests"`
	CacheTimeout          time.Duration `json:"cache_timeout"`
}

// DefaultSpec returns the standard performance targets.
func DefaultSpec() PerformanceSpec {
	return PerformanceSpec{
		ResponseTime:          3 * time.Second,
		AccuracyThreshold:     0.95,
		AvailabilityThreshold: 0.999,
		MaxConcurrentRequests: 100,
		CacheTimeout:          5 * time.Minute,
	}
}

// HighPerformanceSpec returns tightened targets for latency-critical agents.
func HighPerformanceSpec() PerformanceSpec {
	return PerformanceSpec{
		ResponseTime:          2 * time.Second,
		AccuracyThreshold:     0.96,
		AvailabilityThreshold: 0.999,
		MaxConcurrentRequests: 200,
		CacheTimeout:          10 * time.Minute,
	}
}

// Metrics is a snapshot of an agent's request counters.
type Metrics struct {
	AgentID             string        `json:"agent_id"`
	TotalRequests       int64         `json:"total_requests"`
	SuccessfulRequests  int64         `json:"successful_requests"`
	FailedRequests      int64         `json:"failed_requests"`
	ActiveRequests      int64         `json:"active_requests"`
	AverageResponseTime time.Duration `json:"average_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`
	CurrentAccuracy     float64       `json:"current_accuracy"`
	Availability        float64       `json:"availability"`
	CollectedAt         time.Time     `json:"collected_at"`
}

// ConsultAgent is a consultable domain expert. Implementations wrap a
// guidance strategy with capacity gating, metrics, and health tracking;
// ProvideGuidance never returns an error, failures surface as unsuccessful
// responses.
type ConsultAgent interface {
	ID() string
	Name() string
	Domain() string
	Capabilities() []string
	Dependencies() []string
	PerformanceSpec() PerformanceSpec

	ProvideGuidance(ctx context.Context, req ConsultationRequest) GuidanceResponse
	CanHandle(req ConsultationRequest) bool
	Health() HealthStatus
	Available() bool
	Metrics() Metrics
}
