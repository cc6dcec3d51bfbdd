package consult

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"agenthub/internal/domain"
	"agenthub/internal/infra/tracer"
	"agenthub/internal/usecase/scheduling"
)

// Failover status values for an agent.
type FailoverStatus string

const (
	StatusHealthy    FailoverStatus = "HEALTHY"
	StatusFailed     FailoverStatus = "FAILED"
	StatusRecovering FailoverStatus = "RECOVERING"
)

// FailoverState is a snapshot of one agent's failover bookkeeping.
type FailoverState struct {
	AgentID             string         `json:"agent_id"`
	Status              FailoverStatus `json:"status"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	TotalFailures       int64          `json:"total_failures"`
	TotalRecoveries     int64          `json:"total_recoveries"`
	LastFailure         time.Time      `json:"last_failure,omitempty"`
	LastRecovery        time.Time      `json:"last_recovery,omitempty"`
	LastFailureReason   string         `json:"last_failure_reason,omitempty"`
}

// agentState is the live, mutex-guarded form of FailoverState. Each agent
// gets its own lock so bookkeeping for unrelated agents never contends.
type agentState struct {
	mu    sync.Mutex
	state FailoverState
}

// FailoverStatistics aggregates failover activity across all agents.
type FailoverStatistics struct {
	TotalAgents     int     `json:"total_agents"`
	FailedAgents    int     `json:"failed_agents"`
	TotalFailures   int64   `json:"total_failures"`
	TotalRecoveries int64   `json:"total_recoveries"`
	FailureRate     float64 `json:"failure_rate"`
	RecoveryRate    float64 `json:"recovery_rate"`
}

// TransitionRecorder persists failover state transitions. Implementations
// must tolerate being called concurrently; errors are logged, never fatal.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, agentID string, from, to FailoverStatus, reason string) error
}

// FailoverOptions configures the manager.
type FailoverOptions struct {
	Enabled             bool          // automatic failover to backups
	RecoveryTimeout     time.Duration // delay before the scheduled recovery attempt
	HealthCheckInterval time.Duration // periodic sweep interval
	FailureThreshold    int           // consecutive failures before FAILED
}

// DefaultFailoverOptions mirrors the production defaults.
func DefaultFailoverOptions() FailoverOptions {
	return FailoverOptions{
		Enabled:             true,
		RecoveryTimeout:     30 * time.Second,
		HealthCheckInterval: 60 * time.Second,
		FailureThreshold:    3,
	}
}

// FailoverManager routes consultations through the registry's best agent
// and fails over to backups when the primary returns an unsuccessful
// response. It tracks per-agent failure state, schedules a single delayed
// recovery attempt when an agent trips the failure threshold, and runs a
// periodic sweep reconciling failover state with live agent health.
type FailoverManager struct {
	registry *Registry
	sched    *scheduling.Scheduler
	recorder TransitionRecorder // optional
	logger   *slog.Logger
	opts     FailoverOptions

	mu     sync.Mutex // guards the states map, not the states themselves
	states map[string]*agentState
}

// NewFailoverManager creates a manager. recorder may be nil.
func NewFailoverManager(registry *Registry, sched *scheduling.Scheduler, opts FailoverOptions, recorder TransitionRecorder, logger *slog.Logger) *FailoverManager {
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 3
	}
	if opts.RecoveryTimeout <= 0 {
		opts.RecoveryTimeout = 30 * time.Second
	}
	if opts.HealthCheckInterval <= 0 {
		opts.HealthCheckInterval = 60 * time.Second
	}
	return &FailoverManager{
		registry: registry,
		sched:    sched,
		recorder: recorder,
		logger:   logger,
		opts:     opts,
		states:   make(map[string]*agentState),
	}
}

// Start registers the periodic health sweep and starts the scheduler.
func (m *FailoverManager) Start(ctx context.Context) error {
	m.sched.RegisterAction(scheduling.ActionHealthSweep, m.MonitorHealth)
	if err := m.sched.AddTask(scheduling.ScheduledTask{
		Name:     "failover-health-sweep",
		Schedule: m.opts.HealthCheckInterval.String(),
		Action:   scheduling.ActionHealthSweep,
	}); err != nil {
		return err
	}
	return m.sched.Start(ctx)
}

// Stop halts the scheduler; pending recovery one-shots are dropped.
func (m *FailoverManager) Stop() error {
	return m.sched.Stop()
}

// Consult routes the request to the best available agent and fails over
// to backups on an unsuccessful response. It always returns a response;
// chain-level failures carry a fixed reason message.
func (m *FailoverManager) Consult(ctx context.Context, req domain.ConsultationRequest) domain.GuidanceResponse {
	ctx, span := tracer.StartSpan(ctx, "failover.consult")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("request.id", req.RequestID),
		tracer.StringAttr("request.domain", req.Domain),
	)

	primary, err := m.registry.FindBest(req)
	if err != nil {
		m.logger.Warn("no agent for request", "request", req.RequestID, "domain", req.Domain)
		tracer.RecordError(span, err)
		return domain.NewFailureResponse(req.RequestID, "", "No available agents found")
	}

	resp := primary.ProvideGuidance(ctx, req)
	if resp.Success {
		m.RecordSuccess(ctx, primary.ID())
		tracer.SetOK(span)
		return resp
	}
	m.RecordFailure(ctx, primary.ID(), resp.ErrorMessage)

	if !m.opts.Enabled {
		m.logger.Info("failover disabled, returning primary failure",
			"request", req.RequestID, "agent", primary.ID())
		return domain.NewFailureResponse(req.RequestID, primary.ID(), "Automatic failover disabled")
	}

	backups := m.registry.Backups(primary.ID())
	if len(backups) == 0 {
		m.logger.Warn("no backups for failed agent", "agent", primary.ID(), "request", req.RequestID)
		return domain.NewFailureResponse(req.RequestID, primary.ID(), "No backup agents available")
	}

	for _, backup := range backups {
		if !backup.Available() {
			continue
		}
		m.logger.Info("failing over",
			"request", req.RequestID,
			"from", primary.ID(),
			"to", backup.ID())
		r := backup.ProvideGuidance(ctx, req)
		if r.Success {
			m.RecordSuccess(ctx, backup.ID())
			tracer.SetOK(span)
			return r
		}
		m.RecordFailure(ctx, backup.ID(), r.ErrorMessage)
	}

	m.logger.Error("failover exhausted", "request", req.RequestID, "primary", primary.ID())
	tracer.RecordError(span, domain.ErrFailoverExhausted)
	return domain.NewFailureResponse(req.RequestID, primary.ID(), "All backup agents failed")
}

// state returns the live state for an agent, creating it on first use.
func (m *FailoverManager) state(agentID string) *agentState {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[agentID]
	if !ok {
		st = &agentState{state: FailoverState{AgentID: agentID, Status: StatusHealthy}}
		m.states[agentID] = st
	}
	return st
}

// RecordSuccess resets the consecutive failure counter for an agent.
func (m *FailoverManager) RecordSuccess(ctx context.Context, agentID string) {
	st := m.state(agentID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.state.ConsecutiveFailures = 0
}

// RecordFailure counts a failure and, at the threshold, marks the agent
// FAILED and schedules one recovery attempt after the recovery timeout.
func (m *FailoverManager) RecordFailure(ctx context.Context, agentID, reason string) {
	st := m.state(agentID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.ConsecutiveFailures++
	st.state.TotalFailures++
	st.state.LastFailure = time.Now()
	st.state.LastFailureReason = reason

	if st.state.ConsecutiveFailures >= m.opts.FailureThreshold && st.state.Status != StatusFailed {
		m.markFailedLocked(ctx, st, "Too many consecutive failures")
		m.scheduleRecovery(agentID)
	}
}

// MarkFailed transitions an agent to FAILED and schedules a recovery
// attempt. Used by the health sweep when an agent reports unhealthy.
func (m *FailoverManager) MarkFailed(ctx context.Context, agentID, reason string) {
	st := m.state(agentID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state.Status == StatusFailed {
		return
	}
	m.markFailedLocked(ctx, st, reason)
	m.scheduleRecovery(agentID)
}

// markFailedLocked requires st.mu held.
func (m *FailoverManager) markFailedLocked(ctx context.Context, st *agentState, reason string) {
	from := st.state.Status
	st.state.Status = StatusFailed
	st.state.LastFailureReason = reason
	m.logger.Warn("agent marked failed",
		"agent", st.state.AgentID,
		"reason", reason,
		"consecutive_failures", st.state.ConsecutiveFailures)
	m.record(ctx, st.state.AgentID, from, StatusFailed, reason)
}

// MarkRecovered transitions an agent back to HEALTHY. Idempotent: marking
// an already-healthy agent is a no-op, so the scheduled recovery attempt
// and the periodic sweep may both fire without double counting.
func (m *FailoverManager) MarkRecovered(ctx context.Context, agentID string) {
	st := m.state(agentID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.state.Status == StatusHealthy {
		return
	}
	from := st.state.Status
	st.state.Status = StatusHealthy
	st.state.ConsecutiveFailures = 0
	st.state.TotalRecoveries++
	st.state.LastRecovery = time.Now()
	m.logger.Info("agent recovered", "agent", agentID)
	m.record(ctx, agentID, from, StatusHealthy, "recovered")
}

// scheduleRecovery arranges a single delayed recovery attempt. An attempt
// already pending for the agent is left alone.
func (m *FailoverManager) scheduleRecovery(agentID string) {
	err := m.sched.AddOneShot("recover:"+agentID, m.opts.RecoveryTimeout, func(ctx context.Context) error {
		m.AttemptRecovery(ctx, agentID)
		return nil
	})
	if err != nil {
		m.logger.Debug("recovery already scheduled", "agent", agentID)
	}
}

// AttemptRecovery checks the agent's live health and recovers it when it
// reports available again. Agents still unhealthy stay FAILED and wait
// for the periodic sweep.
func (m *FailoverManager) AttemptRecovery(ctx context.Context, agentID string) {
	st := m.state(agentID)
	st.mu.Lock()
	if st.state.Status == StatusHealthy {
		st.mu.Unlock()
		return
	}
	st.state.Status = StatusRecovering
	st.mu.Unlock()

	agent, err := m.registry.Get(agentID)
	if err != nil {
		m.logger.Warn("recovery attempt for unknown agent", "agent", agentID)
		st.mu.Lock()
		st.state.Status = StatusFailed
		st.mu.Unlock()
		return
	}

	if agent.Health().Available() {
		m.MarkRecovered(ctx, agentID)
		return
	}

	m.logger.Info("recovery attempt failed, agent still unhealthy", "agent", agentID)
	st.mu.Lock()
	st.state.Status = StatusFailed
	st.mu.Unlock()
}

// MonitorHealth reconciles failover state with live agent health: agents
// reporting unhealthy are marked failed, failed agents reporting healthy
// are recovered. The scheduler runs it periodically; tests call it
// directly.
func (m *FailoverManager) MonitorHealth(ctx context.Context) error {
	for _, agent := range m.registry.All() {
		h := agent.Health()
		st := m.State(agent.ID())

		// Only an explicit unhealthy report marks an agent failed; an
		// unknown state is left alone until the agent reports.
		switch {
		case h.State == domain.HealthUnhealthy && st.Status != StatusFailed:
			msg := h.Message
			if msg == "" {
				msg = "agent reported unhealthy"
			}
			m.MarkFailed(ctx, agent.ID(), msg)
		case h.State == domain.HealthHealthy && st.Status == StatusFailed:
			m.MarkRecovered(ctx, agent.ID())
		}
	}
	return nil
}

// State returns a copy of the agent's failover state.
func (m *FailoverManager) State(agentID string) FailoverState {
	st := m.state(agentID)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Statistics aggregates failover activity across all tracked agents.
func (m *FailoverManager) Statistics() FailoverStatistics {
	m.mu.Lock()
	tracked := make([]*agentState, 0, len(m.states))
	for _, st := range m.states {
		tracked = append(tracked, st)
	}
	m.mu.Unlock()

	stats := FailoverStatistics{TotalAgents: m.registry.HealthSnapshot().TotalAgents}
	for _, st := range tracked {
		st.mu.Lock()
		if st.state.Status == StatusFailed {
			stats.FailedAgents++
		}
		stats.TotalFailures += st.state.TotalFailures
		stats.TotalRecoveries += st.state.TotalRecoveries
		st.mu.Unlock()
	}

	if stats.TotalAgents > 0 {
		stats.FailureRate = float64(stats.FailedAgents) / float64(stats.TotalAgents)
	}
	if stats.TotalFailures > 0 {
		stats.RecoveryRate = float64(stats.TotalRecoveries) / float64(stats.TotalFailures)
	} else {
		stats.RecoveryRate = 1.0
	}
	return stats
}

// record persists a transition through the optional recorder.
func (m *FailoverManager) record(ctx context.Context, agentID string, from, to FailoverStatus, reason string) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordTransition(ctx, agentID, from, to, reason); err != nil {
		m.logger.Warn("failed to record failover transition", "agent", agentID, "error", err)
	}
}
