// Package consult implements the agent consultation core: a composition
// wrapper that turns a guidance strategy into a full agent, an ordered
// registry for lookup and backup selection, and a failover manager that
// tracks per-agent failure state and drives recovery.
package consult

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"agenthub/internal/domain"
)

// Strategy produces guidance for a request. Implementations hold the
// domain knowledge; everything operational (capacity, metrics, health)
// lives in Core.
type Strategy func(ctx context.Context, req domain.ConsultationRequest) (guidance string, confidence float64, recommendations []string, err error)

// CoreConfig describes the agent identity wrapped around a Strategy.
type CoreConfig struct {
	ID           string
	Name         string
	Domain       string
	Capabilities []string
	Dependencies []string
	Spec         domain.PerformanceSpec
}

// Core wraps a Strategy with capacity gating, request metrics, and health
// tracking. All counters are atomic; a single mutex guards the moving
// average and the health snapshot. Cores are independent: no shared state
// exists between agents.
type Core struct {
	cfg      CoreConfig
	strategy Strategy
	logger   *slog.Logger

	active  atomic.Int64
	total   atomic.Int64
	success atomic.Int64
	failed  atomic.Int64
	maxResp atomic.Int64 // nanoseconds

	mu      sync.Mutex
	avgResp time.Duration
	health  domain.HealthStatus
}

// NewCore builds an agent around strategy. A zero Spec is replaced with
// domain.DefaultSpec.
func NewCore(cfg CoreConfig, strategy Strategy, logger *slog.Logger) *Core {
	if cfg.Spec == (domain.PerformanceSpec{}) {
		cfg.Spec = domain.DefaultSpec()
	}
	return &Core{
		cfg:      cfg,
		strategy: strategy,
		logger:   logger,
		health: domain.HealthStatus{
			AgentID:   cfg.ID,
			State:     domain.HealthHealthy,
			Message:   "agent initialized",
			CheckedAt: time.Now(),
		},
	}
}

func (c *Core) ID() string                             { return c.cfg.ID }
func (c *Core) Name() string                           { return c.cfg.Name }
func (c *Core) Domain() string                         { return c.cfg.Domain }
func (c *Core) Capabilities() []string                 { return append([]string(nil), c.cfg.Capabilities...) }
func (c *Core) Dependencies() []string                 { return append([]string(nil), c.cfg.Dependencies...) }
func (c *Core) PerformanceSpec() domain.PerformanceSpec { return c.cfg.Spec }

// CanHandle reports whether this agent is a fit for the request: an exact
// domain match, or any capability appearing as a substring of the
// lower-cased query.
func (c *Core) CanHandle(req domain.ConsultationRequest) bool {
	if strings.EqualFold(req.Domain, c.cfg.Domain) {
		return true
	}
	query := strings.ToLower(req.Query)
	for _, cap := range c.cfg.Capabilities {
		if cap != "" && strings.Contains(query, strings.ToLower(cap)) {
			return true
		}
	}
	return false
}

// ProvideGuidance runs the strategy behind the capacity gate and updates
// metrics and health. It never returns an error: failures come back as
// unsuccessful responses so failover can act on them uniformly.
func (c *Core) ProvideGuidance(ctx context.Context, req domain.ConsultationRequest) domain.GuidanceResponse {
	if !c.CanHandle(req) {
		return domain.NewFailureResponse(req.RequestID, c.cfg.ID, "Agent cannot handle this request")
	}

	if c.active.Add(1) > int64(c.cfg.Spec.MaxConcurrentRequests) {
		c.active.Add(-1)
		c.logger.Warn("request rejected at capacity",
			"agent", c.cfg.ID,
			"request", req.RequestID,
			"max_concurrent", c.cfg.Spec.MaxConcurrentRequests)
		return domain.NewFailureResponse(req.RequestID, c.cfg.ID, "Agent at maximum capacity")
	}
	defer c.active.Add(-1)

	start := time.Now()
	guidance, confidence, recs, err := c.strategy(ctx, req)
	elapsed := time.Since(start)

	c.record(elapsed, err)

	if err != nil {
		c.logger.Error("guidance strategy failed",
			"agent", c.cfg.ID,
			"request", req.RequestID,
			"error", err,
			"code", domain.ErrorCodeOf(err))
		return domain.NewFailureResponse(req.RequestID, c.cfg.ID, err.Error())
	}

	c.logger.Debug("guidance provided",
		"agent", c.cfg.ID,
		"request", req.RequestID,
		"elapsed", elapsed)
	return domain.NewGuidanceResponse(req.RequestID, c.cfg.ID, guidance, confidence, recs, elapsed)
}

// record folds one request outcome into counters and health.
func (c *Core) record(elapsed time.Duration, err error) {
	n := c.total.Add(1)
	if err != nil {
		c.failed.Add(1)
	} else {
		c.success.Add(1)
	}

	for {
		prev := c.maxResp.Load()
		if int64(elapsed) <= prev || c.maxResp.CompareAndSwap(prev, int64(elapsed)) {
			break
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Moving average over all requests seen so far.
	c.avgResp = time.Duration((int64(c.avgResp)*(n-1) + int64(elapsed)) / n)

	now := time.Now()
	switch {
	case err != nil:
		c.health = domain.HealthStatus{
			AgentID:   c.cfg.ID,
			State:     domain.HealthUnhealthy,
			Message:   "guidance processing failed: " + err.Error(),
			CheckedAt: now,
		}
	case elapsed > c.cfg.Spec.ResponseTime:
		c.health = domain.HealthStatus{
			AgentID:   c.cfg.ID,
			State:     domain.HealthDegraded,
			Message:   "response time above target",
			CheckedAt: now,
		}
	default:
		c.health = domain.HealthStatus{
			AgentID:   c.cfg.ID,
			State:     domain.HealthHealthy,
			CheckedAt: now,
		}
	}
}

// Health returns the latest health snapshot.
func (c *Core) Health() domain.HealthStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health
}

// Available reports whether the agent currently accepts work.
func (c *Core) Available() bool {
	return c.Health().Available()
}

// Metrics returns a point-in-time snapshot of the request counters.
func (c *Core) Metrics() domain.Metrics {
	total := c.total.Load()
	success := c.success.Load()

	accuracy := 1.0
	availability := 1.0
	if total > 0 {
		accuracy = float64(success) / float64(total)
		availability = accuracy
	}

	c.mu.Lock()
	avg := c.avgResp
	c.mu.Unlock()

	return domain.Metrics{
		AgentID:             c.cfg.ID,
		TotalRequests:       total,
		SuccessfulRequests:  success,
		FailedRequests:      c.failed.Load(),
		ActiveRequests:      c.active.Load(),
		AverageResponseTime: avg,
		MaxResponseTime:     time.Duration(c.maxResp.Load()),
		CurrentAccuracy:     accuracy,
		Availability:        availability,
		CollectedAt:         time.Now(),
	}
}

var _ domain.ConsultAgent = (*Core)(nil)
