// Package guidance tracks per-session consultation context and enriches
// agent guidance with it: session objectives and decisions, plus
// specialized technology contexts built up by classifying guidance text.
package guidance

import (
	"sync"
	"time"
)

// SessionContext accumulates what is known about one consultation session.
// Decisions are keyed by topic so revising a decision replaces the prior
// entry instead of accumulating both. Each session carries its own lock;
// sessions never share state.
type SessionContext struct {
	mu                     sync.Mutex
	SessionID              string            `json:"session_id"`
	CurrentObjective       string            `json:"current_objective,omitempty"`
	ArchitecturalDecisions map[string]string `json:"architectural_decisions,omitempty"`
	NextSteps              []string          `json:"next_steps,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	LastUpdated            time.Time         `json:"last_updated"`
}

func newSessionContext(sessionID string) *SessionContext {
	now := time.Now()
	return &SessionContext{
		SessionID:              sessionID,
		ArchitecturalDecisions: make(map[string]string),
		CreatedAt:              now,
		LastUpdated:            now,
	}
}

// Stale reports whether the session has been idle longer than staleAfter.
func (s *SessionContext) Stale(staleAfter time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.LastUpdated) > staleAfter
}

// Touch refreshes the activity timestamp.
func (s *SessionContext) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastUpdated = time.Now()
}

// UpdateProgress records the current objective, the decision map, and the
// planned next steps. A non-nil decisions map replaces the stored one, so
// a revised decision supersedes its earlier version under the same topic.
func (s *SessionContext) UpdateProgress(objective string, decisions map[string]string, nextSteps []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if objective != "" {
		s.CurrentObjective = objective
	}
	if decisions != nil {
		s.ArchitecturalDecisions = make(map[string]string, len(decisions))
		for topic, d := range decisions {
			s.ArchitecturalDecisions[topic] = d
		}
	}
	if nextSteps != nil {
		s.NextSteps = append([]string(nil), nextSteps...)
	}
	s.LastUpdated = time.Now()
}

// RecordDecision stores a single architectural decision, replacing any
// earlier decision on the same topic.
func (s *SessionContext) RecordDecision(topic, decision string) {
	if topic == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ArchitecturalDecisions[topic] = decision
	s.LastUpdated = time.Now()
}

// Snapshot returns a lock-free copy for rendering and archival.
func (s *SessionContext) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	decisions := make(map[string]string, len(s.ArchitecturalDecisions))
	for topic, d := range s.ArchitecturalDecisions {
		decisions[topic] = d
	}
	return SessionSnapshot{
		SessionID:              s.SessionID,
		CurrentObjective:       s.CurrentObjective,
		ArchitecturalDecisions: decisions,
		NextSteps:              append([]string(nil), s.NextSteps...),
		CreatedAt:              s.CreatedAt,
		LastUpdated:            s.LastUpdated,
	}
}

// SessionSnapshot is an immutable copy of a SessionContext.
type SessionSnapshot struct {
	SessionID              string            `json:"session_id"`
	CurrentObjective       string            `json:"current_objective,omitempty"`
	ArchitecturalDecisions map[string]string `json:"architectural_decisions,omitempty"`
	NextSteps              []string          `json:"next_steps,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	LastUpdated            time.Time         `json:"last_updated"`
}
