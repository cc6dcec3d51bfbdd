package story

import (
	"regexp"
	"strings"
)

// EARS (Easy Approach to Requirements Syntax) rendering. Each pattern
// has a fixed template; the transformer extracts the condition or
// trigger from the requirement text when it is already phrased that
// way, or falls back to a generic one.

var (
	earsAlready = regexp.MustCompile(`(?i)^THE\s+system\s+SHALL\s+.+`)

	whenThenPattern  = regexp.MustCompile(`(?is)^\s*when\s+(.+?)\s+then\s+(.+)$`)
	whileThenPattern = regexp.MustCompile(`(?is)^\s*while\s+(.+?)\s+then\s+(.+)$`)
	ifThenPattern    = regexp.MustCompile(`(?is)^\s*if\s+(.+?)\s+then\s+(.+)$`)

	inStatePattern    = regexp.MustCompile(`(?is)^(?:when\s+)?(?:in|during)\s+(.+?)\s+state[,:]?\s+(.+)$`)
	whileCommaPattern = regexp.MustCompile(`(?is)^while\s+(.+?)[,:]\s+(.+)$`)
	whenCommaPattern  = regexp.MustCompile(`(?is)^when\s+(.+?)[,:]\s+(.+)$`)
	onUponPattern     = regexp.MustCompile(`(?is)^(?:on|upon)\s+(.+?)[,:]\s+(.+)$`)
	afterCommaPattern = regexp.MustCompile(`(?is)^after\s+(.+?)[,:]\s+(.+)$`)
	ifCommaPattern    = regexp.MustCompile(`(?is)^if\s+(.+?)[,:]\s+(.+)$`)
	inCaseOfPattern   = regexp.MustCompile(`(?is)^in\s+case\s+of\s+(.+?)[,:]\s+(.+)$`)

	modalPrefix  = regexp.MustCompile(`(?i)^(?:the\s+system\s+)?(?:must|should|will|shall)\s+`)
	alwaysPrefix = regexp.MustCompile(`(?i)^always\s+`)
	actionPrefix = regexp.MustCompile(`(?i)^(?:the\s+)?system\s+(?:shall|must|should|will)\s+`)
	thenPrefix   = regexp.MustCompile(`(?i)^then\s+`)
)

// RenderEARS renders a requirement in the EARS form matching its pattern.
func RenderEARS(req Requirement) string {
	text := strings.TrimSpace(req.Text)
	switch req.Pattern {
	case PatternStateDriven:
		return renderStateDriven(text)
	case PatternEventDriven:
		return renderEventDriven(text)
	case PatternUnwanted:
		return renderUnwanted(text)
	default:
		return renderUbiquitous(text)
	}
}

// RenderAllEARS renders a slice of requirements in order.
func RenderAllEARS(reqs []Requirement) []string {
	rendered := make([]string, 0, len(reqs))
	for _, req := range reqs {
		rendered = append(rendered, RenderEARS(req))
	}
	return rendered
}

func renderUbiquitous(text string) string {
	if earsAlready.MatchString(text) {
		return text
	}
	text = modalPrefix.ReplaceAllString(text, "")
	text = alwaysPrefix.ReplaceAllString(text, "")
	return "THE system SHALL " + lowerFirst(text)
}

func renderStateDriven(text string) string {
	if m := whileThenPattern.FindStringSubmatch(text); m != nil {
		return formatStateDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := inStatePattern.FindStringSubmatch(text); m != nil {
		return formatStateDriven(strings.TrimSpace(m[1])+" state", strings.TrimSpace(m[2]))
	}
	if m := whileCommaPattern.FindStringSubmatch(text); m != nil {
		return formatStateDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	return formatStateDriven("in the appropriate state", text)
}

func renderEventDriven(text string) string {
	if m := whenThenPattern.FindStringSubmatch(text); m != nil {
		return formatEventDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := whenCommaPattern.FindStringSubmatch(text); m != nil {
		return formatEventDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := onUponPattern.FindStringSubmatch(text); m != nil {
		return formatEventDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := afterCommaPattern.FindStringSubmatch(text); m != nil {
		return formatEventDriven(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	return formatEventDriven("the event occurs", text)
}

func renderUnwanted(text string) string {
	if m := ifThenPattern.FindStringSubmatch(text); m != nil {
		return formatUnwanted(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := ifCommaPattern.FindStringSubmatch(text); m != nil {
		return formatUnwanted(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if m := inCaseOfPattern.FindStringSubmatch(text); m != nil {
		return formatUnwanted(strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	return formatUnwanted("an error occurs", text)
}

func formatStateDriven(condition, action string) string {
	return "WHILE " + condition + ", THE system SHALL " + normalizeAction(action)
}

func formatEventDriven(trigger, action string) string {
	return "WHEN " + trigger + ", THE system SHALL " + normalizeAction(action)
}

func formatUnwanted(condition, action string) string {
	return "IF " + condition + ", THEN THE system SHALL " + normalizeAction(action)
}

func normalizeAction(action string) string {
	action = actionPrefix.ReplaceAllString(action, "")
	action = thenPrefix.ReplaceAllString(action, "")
	return lowerFirst(action)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
