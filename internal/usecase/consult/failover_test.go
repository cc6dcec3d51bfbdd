package consult

import (
	"context"
	"testing"
	"time"

	"agenthub/internal/domain"
	"agenthub/internal/usecase/scheduling"
)

func failingAgent(id, dom string, caps ...string) *stubAgent {
	return &stubAgent{
		id: id, domain: dom, caps: caps,
		provideFn: func(ctx context.Context, req domain.ConsultationRequest) domain.GuidanceResponse {
			return domain.NewFailureResponse(req.RequestID, id, "stub failure")
		},
	}
}

func newManager(t *testing.T, r *Registry, opts FailoverOptions) *FailoverManager {
	t.Helper()
	sched := scheduling.NewScheduler(testLogger())
	return NewFailoverManager(r, sched, opts, nil, testLogger())
}

func TestConsultHappyPath(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "primary", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))

	if !resp.Success {
		t.Fatalf("expected success, got %q", resp.ErrorMessage)
	}
	if resp.AgentID != "primary" {
		t.Errorf("AgentID = %s", resp.AgentID)
	}
	if st := m.State("primary"); st.ConsecutiveFailures != 0 || st.Status != StatusHealthy {
		t.Errorf("state = %+v", st)
	}
}

func TestConsultNoAgents(t *testing.T) {
	m := newManager(t, NewRegistry(3, testLogger()), DefaultFailoverOptions())

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.ErrorMessage != "No available agents found" {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}
}

func TestConsultFailoverDisabled(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(failingAgent("primary", "d"))
	r.Register(&stubAgent{id: "backup", domain: "d"})

	opts := DefaultFailoverOptions()
	opts.Enabled = false
	m := newManager(t, r, opts)

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.ErrorMessage != "Automatic failover disabled" {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}
	// The primary's failure is still recorded.
	if st := m.State("primary"); st.TotalFailures != 1 {
		t.Errorf("TotalFailures = %d, want 1", st.TotalFailures)
	}
}

func TestConsultNoBackups(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(failingAgent("primary", "d"))
	r.Register(&stubAgent{id: "unrelated", domain: "other"})
	m := newManager(t, r, DefaultFailoverOptions())

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))
	if resp.ErrorMessage != "No backup agents available" {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}
}

func TestConsultFailsOverToBackup(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(failingAgent("primary", "d"))
	r.Register(&stubAgent{id: "backup", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))
	if !resp.Success {
		t.Fatalf("expected backup success, got %q", resp.ErrorMessage)
	}
	if resp.AgentID != "backup" {
		t.Errorf("AgentID = %s, want backup", resp.AgentID)
	}
	if st := m.State("backup"); st.ConsecutiveFailures != 0 {
		t.Errorf("backup ConsecutiveFailures = %d", st.ConsecutiveFailures)
	}
}

func TestConsultAllBackupsFail(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(failingAgent("primary", "d"))
	r.Register(failingAgent("b1", "d"))
	r.Register(failingAgent("b2", "d"))
	m := newManager(t, r, DefaultFailoverOptions())

	resp := m.Consult(context.Background(), domain.NewConsultationRequest("d", "q", nil))
	if resp.Success {
		t.Fatal("expected failure")
	}
	if resp.ErrorMessage != "All backup agents failed" {
		t.Errorf("ErrorMessage = %q", resp.ErrorMessage)
	}
	for _, id := range []string{"primary", "b1", "b2"} {
		if st := m.State(id); st.TotalFailures != 1 {
			t.Errorf("%s TotalFailures = %d, want 1", id, st.TotalFailures)
		}
	}
}

func TestThresholdMarksFailed(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	m.RecordFailure(ctx, "a", "boom")
	m.RecordFailure(ctx, "a", "boom")
	if st := m.State("a"); st.Status != StatusHealthy {
		t.Fatalf("status after 2 failures = %s, want HEALTHY", st.Status)
	}

	m.RecordFailure(ctx, "a", "boom")
	st := m.State("a")
	if st.Status != StatusFailed {
		t.Fatalf("status after 3 failures = %s, want FAILED", st.Status)
	}
	if st.LastFailureReason != "Too many consecutive failures" {
		t.Errorf("LastFailureReason = %q", st.LastFailureReason)
	}
	if !m.sched.Pending("recover:a") {
		t.Error("a recovery attempt should be scheduled")
	}
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	m.RecordFailure(ctx, "a", "boom")
	m.RecordFailure(ctx, "a", "boom")
	m.RecordSuccess(ctx, "a")
	m.RecordFailure(ctx, "a", "boom")

	st := m.State("a")
	if st.Status != StatusHealthy {
		t.Errorf("status = %s, want HEALTHY (counter was reset)", st.Status)
	}
	if st.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", st.ConsecutiveFailures)
	}
	if st.TotalFailures != 3 {
		t.Errorf("TotalFailures = %d, want 3 (total never resets)", st.TotalFailures)
	}
}

func TestAttemptRecoverySucceedsWhenAgentAvailable(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	m.MarkFailed(ctx, "a", "sweep said so")
	m.AttemptRecovery(ctx, "a")

	st := m.State("a")
	if st.Status != StatusHealthy {
		t.Errorf("status = %s, want HEALTHY", st.Status)
	}
	if st.TotalRecoveries != 1 {
		t.Errorf("TotalRecoveries = %d, want 1", st.TotalRecoveries)
	}
}

func TestAttemptRecoveryStaysFailedWhenAgentDown(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d", healthFn: unhealthy("a")})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	m.MarkFailed(ctx, "a", "down")
	m.AttemptRecovery(ctx, "a")

	if st := m.State("a"); st.Status != StatusFailed {
		t.Errorf("status = %s, want FAILED", st.Status)
	}
}

func TestMarkRecoveredIsIdempotent(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	m.MarkFailed(ctx, "a", "down")
	m.MarkRecovered(ctx, "a")
	m.MarkRecovered(ctx, "a")
	m.MarkRecovered(ctx, "a")

	if st := m.State("a"); st.TotalRecoveries != 1 {
		t.Errorf("TotalRecoveries = %d, want 1 (idempotent)", st.TotalRecoveries)
	}
}

func TestMonitorHealthSweep(t *testing.T) {
	healthy := true
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "flappy", domain: "d", healthFn: func() domain.HealthStatus {
		if healthy {
			return domain.HealthStatus{AgentID: "flappy", State: domain.HealthHealthy}
		}
		return domain.HealthStatus{AgentID: "flappy", State: domain.HealthUnhealthy, Message: "health check timeout"}
	}})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	// Agent goes down; the sweep marks it failed with the health message.
	healthy = false
	if err := m.MonitorHealth(ctx); err != nil {
		t.Fatal(err)
	}
	st := m.State("flappy")
	if st.Status != StatusFailed {
		t.Fatalf("status = %s, want FAILED", st.Status)
	}
	if st.LastFailureReason != "health check timeout" {
		t.Errorf("LastFailureReason = %q", st.LastFailureReason)
	}

	// Agent comes back; the sweep recovers it.
	healthy = true
	if err := m.MonitorHealth(ctx); err != nil {
		t.Fatal(err)
	}
	if st := m.State("flappy"); st.Status != StatusHealthy {
		t.Errorf("status = %s, want HEALTHY after recovery sweep", st.Status)
	}
}

func TestMonitorHealthIgnoresUnknownState(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "quiet", domain: "d", healthFn: func() domain.HealthStatus {
		return domain.HealthStatus{AgentID: "quiet", State: domain.HealthUnknown}
	}})
	m := newManager(t, r, DefaultFailoverOptions())

	if err := m.MonitorHealth(context.Background()); err != nil {
		t.Fatal(err)
	}

	// An agent that has not reported yet is not failed over.
	if st := m.State("quiet"); st.Status != StatusHealthy {
		t.Errorf("status = %s, want HEALTHY for unknown health state", st.Status)
	}
}

func TestStatistics(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})
	r.Register(&stubAgent{id: "b", domain: "d"})
	m := newManager(t, r, DefaultFailoverOptions())
	ctx := context.Background()

	stats := m.Statistics()
	if stats.RecoveryRate != 1.0 {
		t.Errorf("RecoveryRate with no failures = %v, want 1.0", stats.RecoveryRate)
	}

	m.MarkFailed(ctx, "a", "down")
	m.MarkFailed(ctx, "b", "down")
	m.MarkRecovered(ctx, "b")

	stats = m.Statistics()
	if stats.TotalAgents != 2 {
		t.Errorf("TotalAgents = %d, want 2", stats.TotalAgents)
	}
	if stats.FailedAgents != 1 {
		t.Errorf("FailedAgents = %d, want 1", stats.FailedAgents)
	}
	if stats.FailureRate != 0.5 {
		t.Errorf("FailureRate = %v, want 0.5", stats.FailureRate)
	}
}

func TestScheduledRecoveryFires(t *testing.T) {
	r := NewRegistry(3, testLogger())
	r.Register(&stubAgent{id: "a", domain: "d"})

	opts := DefaultFailoverOptions()
	opts.RecoveryTimeout = 30 * time.Millisecond
	opts.HealthCheckInterval = time.Hour

	sched := scheduling.NewScheduler(testLogger())
	m := NewFailoverManager(r, sched, opts, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	m.RecordFailure(ctx, "a", "boom")
	m.RecordFailure(ctx, "a", "boom")
	m.RecordFailure(ctx, "a", "boom")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.State("a").Status == StatusHealthy {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	st := m.State("a")
	if st.Status != StatusHealthy {
		t.Fatalf("status = %s, want HEALTHY after scheduled recovery", st.Status)
	}
	if st.TotalRecoveries != 1 {
		t.Errorf("TotalRecoveries = %d, want 1", st.TotalRecoveries)
	}
}
