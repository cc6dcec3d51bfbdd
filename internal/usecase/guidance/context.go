package guidance

import "sync"

// SpecializedContext accumulates classified markers for one technology
// family within a session. Values are kept unique per category.
type SpecializedContext struct {
	mu         sync.Mutex
	Family     Family              `json:"family"`
	SessionID  string              `json:"session_id"`
	Categories map[string][]string `json:"categories"`
}

func newSpecializedContext(family Family, sessionID string) *SpecializedContext {
	return &SpecializedContext{
		Family:     family,
		SessionID:  sessionID,
		Categories: make(map[string][]string),
	}
}

// Apply adds a marker's value under its category. Re-applying the same
// marker is a no-op.
func (c *SpecializedContext) Apply(m Marker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Categories[m.Category] = appendUnique(c.Categories[m.Category], m.Value)
}

// Values returns a copy of the values recorded under category.
func (c *SpecializedContext) Values(category string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Categories[category]...)
}

// Empty reports whether any marker has been applied.
func (c *SpecializedContext) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, vals := range c.Categories {
		if len(vals) > 0 {
			return false
		}
	}
	return true
}

// Snapshot returns a deep copy of the category map for rendering and
// archival.
func (c *SpecializedContext) Snapshot() map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.Categories))
	for k, vals := range c.Categories {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
