package consult

import (
	"log/slog"
	"strings"
	"sync"

	"agenthub/internal/domain"
)

// Registry holds the known agents in registration order. It is read-mostly:
// agents register at startup and lookups dominate afterwards, so a single
// RWMutex over the map and order slice is enough.
type Registry struct {
	mu         sync.RWMutex
	agents     map[string]domain.ConsultAgent
	order      []string
	maxBackups int
	logger     *slog.Logger
}

// RegistryHealth summarizes agent availability across the registry.
type RegistryHealth struct {
	TotalAgents     int     `json:"total_agents"`
	AvailableAgents int     `json:"available_agents"`
	UnhealthyAgents int     `json:"unhealthy_agents"`
	Availability    float64 `json:"availability"`
}

// NewRegistry creates a registry. maxBackups caps the backup candidate
// list returned by Backups; values below 1 fall back to 3.
func NewRegistry(maxBackups int, logger *slog.Logger) *Registry {
	if maxBackups < 1 {
		maxBackups = 3
	}
	return &Registry{
		agents:     make(map[string]domain.ConsultAgent),
		maxBackups: maxBackups,
		logger:     logger,
	}
}

// Register adds an agent. Registering an ID twice is an error; the first
// registration wins and keeps its position in the order.
func (r *Registry) Register(agent domain.ConsultAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := agent.ID()
	if _, exists := r.agents[id]; exists {
		return domain.NewDomainError("Registry.Register", domain.ErrDuplicate, id)
	}
	r.agents[id] = agent
	r.order = append(r.order, id)
	r.logger.Info("agent registered",
		"agent", id,
		"domain", agent.Domain(),
		"capabilities", agent.Capabilities())
	return nil
}

// Unregister removes an agent. The steady-state system never calls this;
// unhealthy agents stay registered and are excluded via health. It exists
// for administrative teardown.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[id]; !exists {
		return domain.NewDomainError("Registry.Unregister", domain.ErrNotFound, id)
	}
	delete(r.agents, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.logger.Info("agent unregistered", "agent", id)
	return nil
}

// Get returns the agent with the given ID.
func (r *Registry) Get(id string) (domain.ConsultAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agent, ok := r.agents[id]
	if !ok {
		return nil, domain.NewDomainError("Registry.Get", domain.ErrNotFound, id)
	}
	return agent, nil
}

// All returns every agent in registration order.
func (r *Registry) All() []domain.ConsultAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(domain.ConsultAgent) bool { return true })
}

// ForDomain returns agents whose domain matches (case-insensitive),
// in registration order.
func (r *Registry) ForDomain(d string) []domain.ConsultAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(a domain.ConsultAgent) bool {
		return strings.EqualFold(a.Domain(), d)
	})
}

// WithCapability returns agents advertising the capability, in
// registration order.
func (r *Registry) WithCapability(cap string) []domain.ConsultAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(a domain.ConsultAgent) bool {
		return hasCapability(a, cap)
	})
}

// Available returns agents currently accepting work, in registration order.
func (r *Registry) Available() []domain.ConsultAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.collect(func(a domain.ConsultAgent) bool {
		return a.Available()
	})
}

// collect walks the order slice under the caller's lock.
func (r *Registry) collect(keep func(domain.ConsultAgent) bool) []domain.ConsultAgent {
	var out []domain.ConsultAgent
	for _, id := range r.order {
		if a, ok := r.agents[id]; ok && keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// FindBest selects the agent for a request: exact-domain matches are
// preferred, falling back to any agent whose CanHandle accepts the query.
// Unavailable agents are excluded. Among candidates the least-loaded wins,
// then the faster, then the more accurate; remaining ties go to the
// earliest registered so selection is deterministic.
func (r *Registry) FindBest(req domain.ConsultationRequest) (domain.ConsultAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := r.collect(func(a domain.ConsultAgent) bool {
		return strings.EqualFold(a.Domain(), req.Domain) && a.Available()
	})
	if len(candidates) == 0 {
		candidates = r.collect(func(a domain.ConsultAgent) bool {
			return a.CanHandle(req) && a.Available()
		})
	}
	if len(candidates) == 0 {
		return nil, domain.NewDomainError("Registry.FindBest", domain.ErrNoAgentAvailable, req.Domain)
	}

	best := candidates[0]
	bestM := best.Metrics()
	for _, a := range candidates[1:] {
		m := a.Metrics()
		if better(m, bestM) {
			best, bestM = a, m
		}
	}
	return best, nil
}

// better reports whether m beats current on load, latency, then accuracy.
// Equal metrics return false, preserving registration order.
func better(m, current domain.Metrics) bool {
	if m.ActiveRequests != current.ActiveRequests {
		return m.ActiveRequests < current.ActiveRequests
	}
	if m.AverageResponseTime != current.AverageResponseTime {
		return m.AverageResponseTime < current.AverageResponseTime
	}
	return m.CurrentAccuracy > current.CurrentAccuracy
}

// Backups returns available stand-ins for a failed agent: others sharing
// its domain or overlapping a capability, in registration order, capped at
// the configured maximum.
func (r *Registry) Backups(failedID string) []domain.ConsultAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	failed, ok := r.agents[failedID]
	if !ok {
		return nil
	}

	var out []domain.ConsultAgent
	for _, id := range r.order {
		if len(out) >= r.maxBackups {
			break
		}
		if id == failedID {
			continue
		}
		a := r.agents[id]
		if !a.Available() {
			continue
		}
		if strings.EqualFold(a.Domain(), failed.Domain()) || capabilitiesOverlap(a, failed) {
			out = append(out, a)
		}
	}
	return out
}

// HealthSnapshot aggregates agent health for monitoring.
func (r *Registry) HealthSnapshot() RegistryHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h := RegistryHealth{TotalAgents: len(r.order)}
	for _, id := range r.order {
		if r.agents[id].Available() {
			h.AvailableAgents++
		} else {
			h.UnhealthyAgents++
		}
	}
	if h.TotalAgents > 0 {
		h.Availability = float64(h.AvailableAgents) / float64(h.TotalAgents)
	}
	return h
}

func hasCapability(a domain.ConsultAgent, cap string) bool {
	for _, c := range a.Capabilities() {
		if strings.EqualFold(c, cap) {
			return true
		}
	}
	return false
}

func capabilitiesOverlap(a, b domain.ConsultAgent) bool {
	for _, c := range a.Capabilities() {
		if hasCapability(b, c) {
			return true
		}
	}
	return false
}
