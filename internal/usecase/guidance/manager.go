package guidance

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"agenthub/internal/domain"
)

// Context keys every consultation is expected to carry.
const (
	KeySessionID              = "session-id"
	KeyProjectContext         = "project-context"
	KeyArchitecturalDecisions = "architectural-decisions"
	KeyCurrentTask            = "current-task"
	KeyDomainConstraints      = "domain-constraints"
	KeyEventDrivenContext     = "event-driven-context"
	KeyCICDContext            = "cicd-context"
	KeyConfigurationContext   = "configuration-context"
	KeyResilienceContext      = "resilience-context"
)

// requiredContextKeys in reporting order.
var requiredContextKeys = []string{
	KeySessionID,
	KeyProjectContext,
	KeyArchitecturalDecisions,
	KeyCurrentTask,
	KeyDomainConstraints,
	KeyEventDrivenContext,
	KeyCICDContext,
	KeyConfigurationContext,
	KeyResilienceContext,
}

// missingStaleSession flags a session idle past the staleness limit.
const missingStaleSession = "stale-session-context"

// ContextValidation is the result of checking a request's context.
type ContextValidation struct {
	Sufficient   bool          `json:"sufficient"`
	MissingItems []string      `json:"missing_items,omitempty"`
	Elapsed      time.Duration `json:"elapsed"`
}

// Archiver persists a session and its specialized contexts on archival.
type Archiver interface {
	ArchiveSession(ctx context.Context, session SessionSnapshot, specialized map[Family]map[string][]string) error
}

// Manager owns session contexts and the specialized technology contexts
// keyed by session. Creation is atomic per key; a single mutex guards the
// maps while each context carries its own lock, so cross-session work
// never serializes.
type Manager struct {
	logger     *slog.Logger
	staleAfter time.Duration
	classifier Classifier
	archiver   Archiver // optional

	mu          sync.Mutex
	sessions    map[string]*SessionContext
	specialized map[Family]map[string]*SpecializedContext
}

// NewManager creates a manager. classifier defaults to KeywordClassifier,
// staleAfter to 30 minutes; archiver may be nil.
func NewManager(staleAfter time.Duration, classifier Classifier, archiver Archiver, logger *slog.Logger) *Manager {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if classifier == nil {
		classifier = KeywordClassifier
	}
	specialized := make(map[Family]map[string]*SpecializedContext)
	for _, f := range []Family{FamilyEventDriven, FamilyCICD, FamilyConfiguration, FamilyResilience} {
		specialized[f] = make(map[string]*SpecializedContext)
	}
	return &Manager{
		logger:      logger,
		staleAfter:  staleAfter,
		classifier:  classifier,
		archiver:    archiver,
		sessions:    make(map[string]*SessionContext),
		specialized: specialized,
	}
}

// RequiredContextKeys returns the keys ValidateContext checks for.
func RequiredContextKeys() []string {
	return append([]string(nil), requiredContextKeys...)
}

// ValidateContext checks whether a request carries enough context for
// context-aware guidance. Missing keys, a stale session, and a session
// with no recorded decisions all surface as missing items.
func (m *Manager) ValidateContext(req domain.ConsultationRequest) ContextValidation {
	start := time.Now()
	var missing []string

	for _, key := range requiredContextKeys {
		if strings.TrimSpace(req.Context[key]) == "" {
			missing = append(missing, key)
		}
	}

	if sessionID := req.Context[KeySessionID]; sessionID != "" {
		if session := m.lookupSession(sessionID); session != nil {
			if session.Stale(m.staleAfter) {
				missing = append(missing, missingStaleSession)
			}
			if len(session.Snapshot().ArchitecturalDecisions) == 0 && !contains(missing, KeyArchitecturalDecisions) {
				missing = append(missing, KeyArchitecturalDecisions)
			}
		}
	}

	v := ContextValidation{
		Sufficient:   len(missing) == 0,
		MissingItems: missing,
		Elapsed:      time.Since(start),
	}
	if !v.Sufficient {
		m.logger.Debug("context validation found gaps",
			"session", req.Context[KeySessionID],
			"missing", missing)
	}
	return v
}

// GetOrCreateSession returns the session context for sessionID, creating
// it atomically on first use.
func (m *Manager) GetOrCreateSession(sessionID string) *SessionContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = newSessionContext(sessionID)
		m.sessions[sessionID] = s
		m.logger.Debug("session context created", "session", sessionID)
	}
	return s
}

func (m *Manager) lookupSession(sessionID string) *SessionContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionID]
}

// GetOrCreateSpecialized returns the specialized context for a family and
// session, creating it atomically on first use.
func (m *Manager) GetOrCreateSpecialized(family Family, sessionID string) *SpecializedContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	byFamily := m.specialized[family]
	c, ok := byFamily[sessionID]
	if !ok {
		c = newSpecializedContext(family, sessionID)
		byFamily[sessionID] = c
	}
	return c
}

// UpdateProgress records session progress and refreshes its activity time.
// The decisions map is keyed by topic and replaces the stored decisions.
func (m *Manager) UpdateProgress(sessionID, objective string, decisions map[string]string, nextSteps []string) {
	m.GetOrCreateSession(sessionID).UpdateProgress(objective, decisions, nextSteps)
}

// agentFamilies maps agent-id substrings to the context families that
// agent's guidance feeds.
var agentFamilies = []struct {
	substring string
	family    Family
}{
	{"event-driven", FamilyEventDriven},
	{"cicd", FamilyCICD},
	{"pipeline", FamilyCICD},
	{"configuration", FamilyConfiguration},
	{"config", FamilyConfiguration},
	{"resilience", FamilyResilience},
	{"circuit", FamilyResilience},
	{"retry", FamilyResilience},
}

// familiesFor returns the families an agent's guidance should update.
func familiesFor(agentID string) []Family {
	id := strings.ToLower(agentID)
	var out []Family
	seen := make(map[Family]bool)
	for _, af := range agentFamilies {
		if strings.Contains(id, af.substring) && !seen[af.family] {
			out = append(out, af.family)
			seen[af.family] = true
		}
	}
	return out
}

// UpdateSpecializedContext classifies guidance text and folds the markers
// into the specialized contexts the agent feeds. Re-running the same
// guidance leaves the contexts unchanged.
func (m *Manager) UpdateSpecializedContext(agentID, sessionID, guidance string) {
	families := familiesFor(agentID)
	if len(families) == 0 {
		return
	}

	markers := m.classifier(guidance)
	for _, family := range families {
		ctx := m.GetOrCreateSpecialized(family, sessionID)
		for _, marker := range markers {
			if marker.Family == family {
				ctx.Apply(marker)
			}
		}
	}
	m.GetOrCreateSession(sessionID).Touch()
}

// CleanupStaleContexts removes every stale session together with its
// specialized contexts. Wired to the scheduler's context_cleanup action.
func (m *Manager) CleanupStaleContexts(ctx context.Context) error {
	m.mu.Lock()
	var stale []string
	for id, s := range m.sessions {
		if s.Stale(m.staleAfter) {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(m.sessions, id)
		for _, byFamily := range m.specialized {
			delete(byFamily, id)
		}
	}
	m.mu.Unlock()

	if len(stale) > 0 {
		m.logger.Info("stale session contexts removed", "count", len(stale))
	}
	return nil
}

// ArchiveSession removes a session and its specialized contexts together
// and hands them to the archiver so recorded decisions survive. Archiving
// an unknown session is an error.
func (m *Manager) ArchiveSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	session, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return domain.NewDomainError("Guidance.ArchiveSession", domain.ErrSessionNotFound, sessionID)
	}
	delete(m.sessions, sessionID)

	specialized := make(map[Family]map[string][]string)
	for family, byFamily := range m.specialized {
		if c, ok := byFamily[sessionID]; ok {
			specialized[family] = c.Snapshot()
			delete(byFamily, sessionID)
		}
	}
	m.mu.Unlock()

	if m.archiver == nil {
		m.logger.Debug("session archived without persistence", "session", sessionID)
		return nil
	}
	if err := m.archiver.ArchiveSession(ctx, session.Snapshot(), specialized); err != nil {
		return domain.WrapOp("Guidance.ArchiveSession", err)
	}
	m.logger.Info("session archived", "session", sessionID)
	return nil
}

// SessionCount reports how many live sessions the manager holds.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
