package guidance

import (
	"fmt"
	"sort"
	"strings"
)

// familyHeadings in rendering order.
var familyHeadings = []struct {
	family  Family
	heading string
}{
	{FamilyEventDriven, "Event-Driven Architecture Context"},
	{FamilyCICD, "CI/CD Pipeline Context"},
	{FamilyConfiguration, "Configuration Management Context"},
	{FamilyResilience, "Resilience Engineering Context"},
}

// EnhanceWithContext wraps raw agent guidance in what is already known
// about the session: objective, recorded decisions, non-empty specialized
// contexts, and context-derived recommendations. The original guidance is
// preserved verbatim under its own heading.
func (m *Manager) EnhanceWithContext(agentID, sessionID, guidance string) string {
	session := m.GetOrCreateSession(sessionID)
	snap := session.Snapshot()

	var b strings.Builder
	b.WriteString("## Context-Aware Guidance\n\n")
	fmt.Fprintf(&b, "Session: %s\n", sessionID)
	if snap.CurrentObjective != "" {
		fmt.Fprintf(&b, "Current Objective: %s\n", snap.CurrentObjective)
	}
	b.WriteString("\n")

	if len(snap.ArchitecturalDecisions) > 0 {
		b.WriteString("### Architectural Decisions\n")
		topics := make([]string, 0, len(snap.ArchitecturalDecisions))
		for topic := range snap.ArchitecturalDecisions {
			topics = append(topics, topic)
		}
		sort.Strings(topics)
		for _, topic := range topics {
			fmt.Fprintf(&b, "- %s: %s\n", topic, snap.ArchitecturalDecisions[topic])
		}
		b.WriteString("\n")
	}

	for _, fh := range familyHeadings {
		ctx := m.lookupSpecialized(fh.family, sessionID)
		if ctx == nil || ctx.Empty() {
			continue
		}
		fmt.Fprintf(&b, "### %s\n", fh.heading)
		writeCategories(&b, ctx.Snapshot())
		b.WriteString("\n")
	}

	if recs := m.contextRecommendations(sessionID); len(recs) > 0 {
		b.WriteString("### Context Recommendations\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Agent Guidance\n\n")
	b.WriteString(guidance)

	session.Touch()
	return b.String()
}

func (m *Manager) lookupSpecialized(family Family, sessionID string) *SpecializedContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.specialized[family][sessionID]
}

func writeCategories(b *strings.Builder, categories map[string][]string) {
	keys := make([]string, 0, len(categories))
	for k := range categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if len(categories[k]) == 0 {
			continue
		}
		fmt.Fprintf(b, "- %s: %s\n", k, strings.Join(categories[k], ", "))
	}
}

// contextRecommendations derives canned advice from what the specialized
// contexts already hold.
func (m *Manager) contextRecommendations(sessionID string) []string {
	var recs []string

	if ed := m.lookupSpecialized(FamilyEventDriven, sessionID); ed != nil {
		if brokers := ed.Values("broker"); len(brokers) > 0 {
			recs = append(recs,
				"Consider event schema versioning and backward compatibility",
				"Ensure consumers are idempotent and route poison messages to dead letter queues")
			if contains(brokers, "kafka") {
				recs = append(recs, "Review Kafka partitioning strategy against ordering requirements")
			}
		}
	}

	if cd := m.lookupSpecialized(FamilyCICD, sessionID); cd != nil && !cd.Empty() {
		recs = append(recs, "Include SAST/DAST stages and artifact management in the pipeline")
		if contains(cd.Values("deployment"), "blue-green") {
			recs = append(recs, "Verify database migrations are compatible with blue-green rollback")
		}
	}

	if cf := m.lookupSpecialized(FamilyConfiguration, sessionID); cf != nil && !cf.Empty() {
		recs = append(recs, "Validate configuration at startup and plan secret rotation")
		if len(cf.Values("feature-flags")) > 0 {
			recs = append(recs, "Track feature flag lifecycles to avoid stale flags")
		}
	}

	if rs := m.lookupSpecialized(FamilyResilience, sessionID); rs != nil && !rs.Empty() {
		recs = append(recs, "Apply circuit breakers and bulkheads at external integration points")
		recs = append(recs, "Set explicit timeouts and retry budgets for every remote call")
	}

	return recs
}
