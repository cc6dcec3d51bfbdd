package story

import (
	"log/slog"
	"regexp"
	"strings"
)

var (
	actorPattern         = regexp.MustCompile(`(?i)as (?:a|an) ([a-zA-Z][a-zA-Z0-9 ]*?)(?:,| I | so )`)
	intentPattern        = regexp.MustCompile(`(?i)(?:I want to|I need to|I can|should be able to|must be able to) ([^,.]+)`)
	dataFieldPattern     = regexp.MustCompile(`(?i)(?:field|attribute|property|data|column)\s*:?\s*([a-zA-Z][a-zA-Z0-9_]*)`)
	stateSentencePattern = regexp.MustCompile(`(?i)\b(?:when|while|during)\b.*\b(?:state|status|mode)\b`)

	bulletPrefix = regexp.MustCompile(`^[-*•]\s*`)
	numberPrefix = regexp.MustCompile(`^\d+\.\s*`)
	sentenceEnd  = regexp.MustCompile(`[.!?]`)
)

// vagueTerms make a requirement unverifiable. Order matters: the first
// term found in a body is the one flagged as an open question.
var vagueTerms = []string{
	"quickly", "slowly", "fast", "slow", "adequate", "reasonable",
	"user-friendly", "easy", "simple", "appropriate", "suitable",
	"efficient", "optimal", "good", "bad", "nice", "better",
}

// replacementHints map a vague term to a measurable phrasing to suggest
// in its place. Terms without an entry get a generic hint.
var replacementHints = map[string]string{
	"quickly":       "within X seconds/milliseconds",
	"fast":          "within X seconds/milliseconds",
	"slowly":        "taking more than X seconds",
	"slow":          "taking more than X seconds",
	"adequate":      "at least X units/items",
	"reasonable":    "within range X to Y",
	"user-friendly": "requiring fewer than X steps",
	"easy":          "requiring fewer than X steps",
	"simple":        "requiring fewer than X steps",
	"appropriate":   "meeting criteria: [specify criteria]",
	"suitable":      "meeting criteria: [specify criteria]",
	"efficient":     "using less than X resources",
	"optimal":       "within range X to Y",
}

func suggestReplacement(term string) string {
	if hint, ok := replacementHints[term]; ok {
		return hint
	}
	return "specify measurable criteria"
}

// termGroups list wordings that usually name the same concept. A body
// mixing the canonical term with a variation gets a terminology question.
var termGroups = []struct {
	canonical  string
	variations []string
}{
	{"user", []string{"customer", "client", "end-user", "end user"}},
	{"create", []string{"add", "insert"}},
	{"update", []string{"modify", "edit"}},
	{"delete", []string{"remove", "destroy", "erase"}},
	{"retrieve", []string{"fetch", "query"}},
	{"validate", []string{"verify", "confirm"}},
}

var errorKeywords = []string{
	"error", "fail", "failure", "exception", "invalid", "reject",
	"denied", "unauthorized", "forbidden", "timeout", "unavailable",
}

const intentNotSpecified = "Intent not clearly specified"

// Analyzer extracts intent, actors, requirements, data needs and open
// questions from a parsed issue.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze runs the full requirements analysis over a parsed issue.
func (a *Analyzer) Analyze(parsed ParsedIssue) Analysis {
	body := parsed.Body
	sections := parsed.Sections

	intent := extractIntent(body, sections)
	actors := identifyActors(body, sections)
	analysis := Analysis{
		Intent:                 intent,
		Actors:                 actors,
		Stakeholders:           identifyStakeholders(actors),
		Preconditions:          detectPreconditions(body, sections),
		FunctionalRequirements: identifyFunctionalRequirements(sections),
		ErrorFlows:             detectErrorFlows(body, sections),
		BusinessRules:          extractBusinessRules(sections),
		DataRequirements:       identifyDataRequirements(body, sections),
		Ambiguities:            flagAmbiguities(body, intent, actors),
	}

	a.logger.Info("requirements analysis complete",
		"actors", len(analysis.Actors),
		"requirements", len(analysis.FunctionalRequirements),
		"ambiguities", len(analysis.Ambiguities))

	return analysis
}

func extractIntent(body string, sections []Section) string {
	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "description", "overview", "intent", "purpose") {
			if section.Content != "" {
				return extractIntentFromText(section.Content)
			}
		}
	}
	return extractIntentFromText(body)
}

func extractIntentFromText(text string) string {
	if m := intentPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	sentences := sentenceEnd.Split(text, 2)
	if first := strings.TrimSpace(sentences[0]); first != "" {
		return first
	}
	return intentNotSpecified
}

func identifyActors(body string, sections []Section) []string {
	var full strings.Builder
	full.WriteString(body)
	for _, section := range sections {
		full.WriteString(" ")
		full.WriteString(section.Content)
	}
	fullText := full.String()

	var actors []string
	for _, m := range actorPattern.FindAllStringSubmatch(fullText, -1) {
		actors = appendUnique(actors, normalizeActor(strings.TrimSpace(m[1])))
	}

	lower := strings.ToLower(fullText)
	for _, r := range commonRoles {
		if strings.Contains(lower, r.keyword) {
			actors = appendUnique(actors, r.role)
		}
	}

	if len(actors) == 0 {
		actors = []string{"User"}
	}
	return actors
}

var commonRoles = []struct {
	keyword string
	role    string
}{
	{"user", "User"},
	{"admin", "Administrator"},
	{"customer", "Customer"},
	{"developer", "Developer"},
	{"system", "System"},
}

func normalizeActor(actor string) string {
	words := strings.Fields(actor)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func identifyStakeholders(actors []string) []string {
	stakeholders := append([]string(nil), actors...)
	for _, actor := range actors {
		lower := strings.ToLower(actor)
		if strings.Contains(lower, "customer") {
			stakeholders = appendUnique(stakeholders, "Business Owner")
		}
		if strings.Contains(lower, "admin") {
			stakeholders = appendUnique(stakeholders, "System Administrator")
		}
	}
	return stakeholders
}

func detectPreconditions(body string, sections []Section) []Requirement {
	var preconditions []Requirement

	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "precondition", "prerequisite", "assumption", "given") {
			preconditions = append(preconditions, requirementsFromText(section.Content, PatternStateDriven)...)
		}
	}

	for _, sentence := range sentenceEnd.Split(body, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		if strings.Contains(lower, "in ") && strings.Contains(lower, " mode") {
			preconditions = append(preconditions, Requirement{Text: sentence, Pattern: PatternStateDriven, Verifiable: true})
		} else if stateSentencePattern.MatchString(sentence) {
			preconditions = append(preconditions, Requirement{Text: sentence, Pattern: PatternStateDriven, Verifiable: true})
		}
	}

	return preconditions
}

func identifyFunctionalRequirements(sections []Section) []Requirement {
	var requirements []Requirement
	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "requirement", "acceptance", "criteria", "feature") {
			requirements = append(requirements, requirementsFromText(section.Content, PatternUbiquitous)...)
		}
	}
	return requirements
}

// requirementsFromText splits section content into lines, strips bullet
// and number prefixes, and classifies each line. Explicit UNWANTED and
// STATE_DRIVEN defaults are kept; otherwise the line's own wording
// decides.
func requirementsFromText(text string, defaultPattern Pattern) []Requirement {
	var requirements []Requirement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 10 {
			continue
		}
		line = bulletPrefix.ReplaceAllString(line, "")
		line = numberPrefix.ReplaceAllString(line, "")
		if line == "" {
			continue
		}

		pattern := defaultPattern
		if defaultPattern != PatternUnwanted && defaultPattern != PatternStateDriven {
			pattern = determinePattern(line)
		}

		requirements = append(requirements, Requirement{
			Text:       line,
			Pattern:    pattern,
			Verifiable: isVerifiable(line),
		})
	}
	return requirements
}

func determinePattern(text string) Pattern {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "when ") || strings.Contains(lower, "if ") {
		if strings.Contains(lower, "error") || strings.Contains(lower, "fail") {
			return PatternUnwanted
		}
		return PatternEventDriven
	}
	if strings.Contains(lower, "while ") || strings.Contains(lower, "during ") {
		return PatternStateDriven
	}
	return PatternUbiquitous
}

func isVerifiable(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range vagueTerms {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func detectErrorFlows(body string, sections []Section) []Requirement {
	var errorFlows []Requirement

	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "error", "exception", "failure", "alternate") {
			errorFlows = append(errorFlows, requirementsFromText(section.Content, PatternUnwanted)...)
		}
	}

	for _, sentence := range sentenceEnd.Split(body, -1) {
		if containsErrorKeyword(sentence) {
			errorFlows = append(errorFlows, Requirement{
				Text:       strings.TrimSpace(sentence),
				Pattern:    PatternUnwanted,
				Verifiable: true,
			})
		}
	}

	return errorFlows
}

func containsErrorKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range errorKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func extractBusinessRules(sections []Section) []Requirement {
	var rules []Requirement
	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "rule", "constraint", "policy", "validation") {
			rules = append(rules, requirementsFromText(section.Content, PatternUbiquitous)...)
		}
	}
	return rules
}

func identifyDataRequirements(body string, sections []Section) []DataRequirement {
	var dataRequirements []DataRequirement

	for _, section := range sections {
		heading := strings.ToLower(section.Heading)
		if containsAny(heading, "data", "field", "model", "schema") {
			dataRequirements = append(dataRequirements, dataFieldsFromText(section.Content)...)
		}
	}

	for _, m := range dataFieldPattern.FindAllStringSubmatch(body, -1) {
		dataRequirements = append(dataRequirements, DataRequirement{
			Field:       m[1],
			Description: "Field mentioned in requirements",
		})
	}

	return dataRequirements
}

// dataFieldsFromText parses "name: description" lines; the field is
// required when the description says required or mandatory.
func dataFieldsFromText(text string) []DataRequirement {
	var fields []DataRequirement
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		name := bulletPrefix.ReplaceAllString(strings.TrimSpace(parts[0]), "")
		description := strings.TrimSpace(parts[1])
		lower := strings.ToLower(description)
		fields = append(fields, DataRequirement{
			Field:       name,
			Description: description,
			Required:    strings.Contains(lower, "required") || strings.Contains(lower, "mandatory"),
		})
	}
	return fields
}

func flagAmbiguities(body, intent string, actors []string) []OpenQuestion {
	var ambiguities []OpenQuestion
	lowerBody := strings.ToLower(body)

	for _, term := range vagueTerms {
		if strings.Contains(lowerBody, term) {
			ambiguities = append(ambiguities, OpenQuestion{
				Question:     "What specific criteria define '" + term + "'? Consider rephrasing as \"" + suggestReplacement(term) + "\"",
				WhyItMatters: "Vague terms make requirements unverifiable and lead to implementation ambiguity",
				Impact:       "High - affects testability and acceptance criteria",
			})
			break
		}
	}

	ambiguities = append(ambiguities, termConsistencyQuestions(lowerBody)...)

	if intent == intentNotSpecified || len(intent) < 10 {
		ambiguities = append(ambiguities, OpenQuestion{
			Question:     "What is the primary business intent of this feature?",
			WhyItMatters: "Clear intent is essential for understanding the purpose and value of the feature",
			Impact:       "Critical - affects entire implementation direction",
		})
	}

	if len(actors) == 0 || (len(actors) == 1 && actors[0] == "User") {
		ambiguities = append(ambiguities, OpenQuestion{
			Question:     "Who are the specific actors/users for this feature?",
			WhyItMatters: "Identifying actors helps define permissions, workflows, and user experience",
			Impact:       "High - affects security and UX design",
		})
	}

	if !strings.Contains(lowerBody, "data") && !strings.Contains(lowerBody, "field") {
		ambiguities = append(ambiguities, OpenQuestion{
			Question:     "What data fields and structures are required?",
			WhyItMatters: "Data requirements are essential for database design and API contracts",
			Impact:       "High - affects data model and persistence layer",
		})
	}

	if !containsErrorKeyword(body) {
		ambiguities = append(ambiguities, OpenQuestion{
			Question:     "How should errors and edge cases be handled?",
			WhyItMatters: "Error handling is critical for system reliability and user experience",
			Impact:       "Medium - affects robustness and error recovery",
		})
	}

	return ambiguities
}

// termConsistencyQuestions flags bodies that mix a canonical term with
// one of its variations, so the wording can be aligned before the
// requirements are written.
func termConsistencyQuestions(lowerBody string) []OpenQuestion {
	var questions []OpenQuestion
	for _, group := range termGroups {
		if !strings.Contains(lowerBody, group.canonical) {
			continue
		}
		var found []string
		for _, variation := range group.variations {
			if strings.Contains(lowerBody, variation) {
				found = append(found, variation)
			}
		}
		if len(found) > 0 {
			questions = append(questions, OpenQuestion{
				Question:     "Does '" + strings.Join(found, "', '") + "' mean the same as '" + group.canonical + "'? Use one term consistently",
				WhyItMatters: "Mixed terminology for one concept hides whether requirements refer to the same thing",
				Impact:       "Medium - affects shared vocabulary and traceability",
			})
		}
	}
	return questions
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
