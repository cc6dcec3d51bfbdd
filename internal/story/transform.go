package story

import (
	"log/slog"
	"strings"
)

// Transformer converts an analysis into the output sections: EARS text
// for declarative requirements, Gherkin scenarios for behavior, and
// structured open questions. Counts are not truncated here; the loop
// detector decides whether they exceed the configured thresholds.
type Transformer struct {
	logger *slog.Logger
}

func NewTransformer(logger *slog.Logger) *Transformer {
	return &Transformer{logger: logger}
}

// Transform maps every analyzed element into its final format.
func (t *Transformer) Transform(meta Metadata, analysis Analysis) TransformedRequirements {
	transformed := TransformedRequirements{
		Header:                 strings.TrimSpace(meta.Title),
		Intent:                 analysis.Intent,
		Actors:                 mergeActors(analysis.Actors, analysis.Stakeholders),
		Preconditions:          RenderAllEARS(analysis.Preconditions),
		FunctionalRequirements: GenerateScenarios(analysis.FunctionalRequirements),
		AlternateFlows:         RenderAllEARS(analysis.ErrorFlows),
		BusinessRules:          RenderAllEARS(analysis.BusinessRules),
		DataRequirements:       formatDataRequirements(analysis.DataRequirements),
		AcceptanceCriteria:     GenerateScenarios(analysis.ErrorFlows),
		Observability:          observabilityRequirements(analysis),
		OpenQuestions:          analysis.Ambiguities,
	}

	t.logger.Debug("transformed requirements",
		"scenarios", len(transformed.FunctionalRequirements)+len(transformed.AcceptanceCriteria),
		"open_questions", len(transformed.OpenQuestions))

	return transformed
}

func mergeActors(actors, stakeholders []string) []string {
	merged := append([]string(nil), actors...)
	for _, s := range stakeholders {
		merged = appendUnique(merged, s)
	}
	return merged
}

func formatDataRequirements(fields []DataRequirement) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		line := f.Field + ": " + f.Description
		if f.Required {
			line += " (required)"
		}
		out = append(out, line)
	}
	return out
}

// observabilityRequirements derives the logging and metrics obligations
// the strengthened story carries.
func observabilityRequirements(analysis Analysis) []string {
	obligations := []string{
		"THE system SHALL log every rejected request with the failing rule and issue reference",
		"THE system SHALL emit counters for processed, stopped, and failed stories",
	}
	if len(analysis.ErrorFlows) > 0 {
		obligations = append(obligations,
			"THE system SHALL alert when the error flow rate exceeds the agreed baseline")
	}
	return obligations
}
