package story

import (
	"strings"
)

// GenerateOutput renders the final markdown document. Section ordering
// is fixed: header, intent, actors, preconditions, functional
// requirements, alternate flows, business rules, data requirements,
// acceptance criteria, observability, open questions, then the original
// story body verbatim for traceability.
func GenerateOutput(t TransformedRequirements, originalBody string) string {
	var b strings.Builder

	header := t.Header
	if header == "" {
		header = "Strengthened Requirements"
	}
	b.WriteString("# " + header + "\n\n")

	writeSection(&b, "Intent", []string{t.Intent})
	writeListSection(&b, "Actors", t.Actors)
	writeListSection(&b, "Preconditions", t.Preconditions)
	writeScenarioSection(&b, "Functional Requirements", t.FunctionalRequirements)
	writeListSection(&b, "Alternate Flows", t.AlternateFlows)
	writeListSection(&b, "Business Rules", t.BusinessRules)
	writeListSection(&b, "Data Requirements", t.DataRequirements)
	writeScenarioSection(&b, "Acceptance Criteria", t.AcceptanceCriteria)
	writeListSection(&b, "Observability", t.Observability)
	writeQuestionSection(&b, "Open Questions", t.OpenQuestions)

	b.WriteString("## Original Story\n\n")
	b.WriteString(originalBody)
	if !strings.HasSuffix(originalBody, "\n") {
		b.WriteString("\n")
	}

	return b.String()
}

func writeSection(b *strings.Builder, heading string, lines []string) {
	b.WriteString("## " + heading + "\n\n")
	wrote := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		b.WriteString(line + "\n")
		wrote = true
	}
	if !wrote {
		b.WriteString("None identified.\n")
	}
	b.WriteString("\n")
}

func writeListSection(b *strings.Builder, heading string, items []string) {
	b.WriteString("## " + heading + "\n\n")
	if len(items) == 0 {
		b.WriteString("None identified.\n\n")
		return
	}
	for _, item := range items {
		b.WriteString("- " + item + "\n")
	}
	b.WriteString("\n")
}

func writeScenarioSection(b *strings.Builder, heading string, scenarios []GherkinScenario) {
	b.WriteString("## " + heading + "\n\n")
	if len(scenarios) == 0 {
		b.WriteString("None identified.\n\n")
		return
	}
	for _, s := range scenarios {
		b.WriteString("```gherkin\n")
		b.WriteString(FormatScenario(s))
		b.WriteString("```\n\n")
	}
}

func writeQuestionSection(b *strings.Builder, heading string, questions []OpenQuestion) {
	b.WriteString("## " + heading + "\n\n")
	if len(questions) == 0 {
		b.WriteString("None identified.\n\n")
		return
	}
	for _, q := range questions {
		b.WriteString("- " + q.Question + "\n")
		b.WriteString("  - Why it matters: " + q.WhyItMatters + "\n")
		b.WriteString("  - Impact: " + q.Impact + "\n")
	}
	b.WriteString("\n")
}
