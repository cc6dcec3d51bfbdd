package story

import (
	"regexp"
	"strings"
)

// Gherkin generation turns a requirement into a structured scenario:
// Given/When/Then clauses with modal verbs and narrative prose
// filtered out, compound conditions split, and Then clauses forced
// into a verifiable shape.

var (
	modalVerbPattern = regexp.MustCompile(
		`(?i)\b(?:should|may|might|could|would|ideally|possibly|perhaps)\b\s*`)
	narrativePattern = regexp.MustCompile(
		`(?i)\b(?:in order to|as mentioned|note that|for example|it should be noted|` +
			`please note|keep in mind|bear in mind|it is important to)\b[,\s]*`)
	andSplitPattern = regexp.MustCompile(`(?i)\s+and\s+`)
)

var (
	givenClausePattern = regexp.MustCompile(`(?i)(?:given|assuming|provided that)\s+([^,.]+)`)
	whenClausePattern  = regexp.MustCompile(`(?i)(?:when|if|upon|on|after)\s+([^,.]+)`)
	thenClausePattern  = regexp.MustCompile(`(?i)(?:then|the system|it)\s+([^,.]+)`)

	impliedStatePattern = regexp.MustCompile(`(?i)\b(authenticated|logged in|authorized|active)\b`)
	impliedStateWord    = regexp.MustCompile(`(?i)^(authenticated|logged|authorized|active)$`)
	concreteVerb        = regexp.MustCompile(`(?i)\b(is|are|has|have|displays|shows|returns|creates|updates|deletes|sends|receives)\b`)
	scenarioPrefix      = regexp.MustCompile(`(?i)^(the system shall|the system must|system shall|system must)\s+`)
	clauseKeywordPrefix = regexp.MustCompile(`(?i)^(when|if|given|while)\s+`)
	leadingCondition    = regexp.MustCompile(`(?i)^(when|if|given|while)\s+[^,]+,\s*`)
	trailingPunct       = regexp.MustCompile(`[,;:]+$`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// GenerateScenario builds a Gherkin scenario from a requirement.
func GenerateScenario(req Requirement) GherkinScenario {
	text := req.Text

	given := extractClauses(givenClausePattern, text)
	if len(given) == 0 {
		given = impliedPreconditions(text)
	}

	when := extractClauses(whenClausePattern, text)
	if len(when) == 0 {
		lower := strings.ToLower(text)
		if strings.Contains(lower, "user") || strings.Contains(lower, "system") {
			if action := mainAction(text); action != "" {
				when = []string{action}
			}
		}
	}

	then := extractClauses(thenClausePattern, text)
	if len(then) == 0 {
		if outcome := mainOutcome(text); outcome != "" {
			then = []string{outcome}
		}
	}

	given = splitCompounds(filterModals(filterNarrative(given)))
	when = splitCompounds(filterModals(filterNarrative(when)))
	then = splitCompounds(makeVerifiable(filterModals(filterNarrative(then))))

	return GherkinScenario{
		Name:  scenarioName(text),
		Given: given,
		When:  when,
		Then:  then,
	}
}

// GenerateScenarios converts requirements in order.
func GenerateScenarios(reqs []Requirement) []GherkinScenario {
	scenarios := make([]GherkinScenario, 0, len(reqs))
	for _, req := range reqs {
		scenarios = append(scenarios, GenerateScenario(req))
	}
	return scenarios
}

// FormatScenario renders a scenario as indented Gherkin text.
func FormatScenario(s GherkinScenario) string {
	var b strings.Builder
	b.WriteString("Scenario: " + s.Name + "\n")
	writeClauses(&b, "Given", s.Given)
	writeClauses(&b, "When", s.When)
	writeClauses(&b, "Then", s.Then)
	return b.String()
}

func writeClauses(b *strings.Builder, keyword string, clauses []string) {
	for i, clause := range clauses {
		if i == 0 {
			b.WriteString("  " + keyword + " " + clause + "\n")
		} else {
			b.WriteString("  And " + clause + "\n")
		}
	}
}

func scenarioName(text string) string {
	text = removeNarrative(text)
	text = scenarioPrefix.ReplaceAllString(text, "")
	text = clauseKeywordPrefix.ReplaceAllString(text, "")

	var name string
	if parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '.' }); len(parts) > 0 {
		name = strings.TrimSpace(parts[0])
	}
	name = removeModals(name)

	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	// Truncate on runes so a multibyte character is never split.
	if runes := []rune(name); len(runes) > 80 {
		name = string(runes[:77]) + "..."
	}
	return name
}

func extractClauses(pattern *regexp.Regexp, text string) []string {
	var clauses []string
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		clause := strings.TrimSpace(m[1])
		if clause != "" {
			clauses = append(clauses, normalizeClause(clause))
		}
	}
	return clauses
}

// impliedPreconditions infers a Given clause from authentication or
// lifecycle wording when the text states no explicit precondition.
func impliedPreconditions(text string) []string {
	if !impliedStatePattern.MatchString(text) {
		return nil
	}
	for _, word := range strings.Fields(text) {
		if impliedStateWord.MatchString(word) {
			return []string{"the user is " + strings.ToLower(word)}
		}
	}
	return nil
}

func mainAction(text string) string {
	text = scenarioPrefix.ReplaceAllString(text, "")
	text = clauseKeywordPrefix.ReplaceAllString(text, "")
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '.' })
	if len(parts) == 0 {
		return ""
	}
	return normalizeClause(parts[0])
}

func mainOutcome(text string) string {
	text = scenarioPrefix.ReplaceAllString(text, "")
	text = leadingCondition.ReplaceAllString(text, "")
	parts := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '.' })
	if len(parts) == 0 {
		return normalizeClause(text)
	}
	return normalizeClause(parts[0])
}

func normalizeClause(clause string) string {
	clause = whitespaceRun.ReplaceAllString(strings.TrimSpace(clause), " ")
	clause = trailingPunct.ReplaceAllString(clause, "")
	return lowerFirst(clause)
}

func filterModals(clauses []string) []string {
	out := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		out = append(out, removeModals(clause))
	}
	return out
}

func removeModals(clause string) string {
	return strings.TrimSpace(modalVerbPattern.ReplaceAllString(clause, ""))
}

func filterNarrative(clauses []string) []string {
	var out []string
	for _, clause := range clauses {
		clause = removeNarrative(clause)
		if strings.TrimSpace(clause) != "" {
			out = append(out, clause)
		}
	}
	return out
}

func removeNarrative(text string) string {
	return strings.TrimSpace(narrativePattern.ReplaceAllString(text, ""))
}

// makeVerifiable forces each Then clause to describe an observable
// outcome by prefixing a subject when no concrete verb is present.
func makeVerifiable(clauses []string) []string {
	out := make([]string, 0, len(clauses))
	for _, clause := range clauses {
		if clause != "" && !concreteVerb.MatchString(clause) {
			clause = "the system " + clause
		}
		out = append(out, clause)
	}
	return out
}

// splitCompounds breaks "X and Y" clauses into separate entries so each
// clause asserts a single condition.
func splitCompounds(clauses []string) []string {
	var out []string
	for _, clause := range clauses {
		lower := strings.ToLower(clause)
		if strings.Contains(lower, " and ") && !strings.Contains(lower, " and then") {
			for _, part := range andSplitPattern.Split(clause, -1) {
				if trimmed := strings.TrimSpace(part); trimmed != "" {
					out = append(out, trimmed)
				}
			}
		} else {
			out = append(out, clause)
		}
	}
	return out
}
