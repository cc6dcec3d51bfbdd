// Package story implements the story-strengthening pipeline: a GitHub
// issue flows through validation, markdown parsing, requirements
// analysis, EARS/Gherkin transformation and output generation, with
// loop-detection checkpoints between the stages.
package story

// Issue is the raw input to the pipeline.
type Issue struct {
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Labels     []string `json:"labels,omitempty"`
	Repository string   `json:"repository"`
	Number     int      `json:"number"`
}

// Metadata carries the issue fields the pipeline keeps after parsing.
type Metadata struct {
	Title      string
	Labels     []string
	Repository string
}

// Section is a heading-delimited slice of the issue body.
type Section struct {
	Heading string
	Content string
}

// ParsedIssue is the structured form of an issue body.
type ParsedIssue struct {
	Metadata Metadata
	Body     string
	Sections []Section
}

// Pattern classifies a requirement into one of the EARS shapes.
type Pattern string

const (
	PatternUbiquitous  Pattern = "UBIQUITOUS"
	PatternStateDriven Pattern = "STATE_DRIVEN"
	PatternEventDriven Pattern = "EVENT_DRIVEN"
	PatternUnwanted    Pattern = "UNWANTED"
)

// Requirement is a single analyzed requirement with its EARS pattern.
type Requirement struct {
	Text       string
	Pattern    Pattern
	Verifiable bool
}

// OpenQuestion flags an ambiguity the analysis could not resolve.
type OpenQuestion struct {
	Question     string
	WhyItMatters string
	Impact       string
}

// DataRequirement names a data field the story mentions or demands.
type DataRequirement struct {
	Field       string
	Description string
	Required    bool
}

// Analysis aggregates everything the analyzer extracts from a parsed issue.
type Analysis struct {
	Intent                 string
	Actors                 []string
	Stakeholders           []string
	Preconditions          []Requirement
	FunctionalRequirements []Requirement
	ErrorFlows             []Requirement
	BusinessRules          []Requirement
	DataRequirements       []DataRequirement
	Ambiguities            []OpenQuestion
}

// GherkinScenario is a structured Given/When/Then block.
type GherkinScenario struct {
	Name  string
	Given []string
	When  []string
	Then  []string
}

// TransformedRequirements holds every output section in its final format.
type TransformedRequirements struct {
	Header                 string
	Intent                 string
	Actors                 []string
	Preconditions          []string
	FunctionalRequirements []GherkinScenario
	AlternateFlows         []string
	BusinessRules          []string
	DataRequirements       []string
	AcceptanceCriteria     []GherkinScenario
	Observability          []string
	OpenQuestions          []OpenQuestion
}

// ValidationResult reports whether an issue may enter the pipeline.
// Invalid results carry a stop phrase beginning "STOP:" plus a reason.
type ValidationResult struct {
	Valid      bool
	StopPhrase string
	Reason     string
}

func validResult() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalidResult(stopPhrase, reason string) ValidationResult {
	return ValidationResult{StopPhrase: stopPhrase, Reason: reason}
}

// ProcessingResult is the outcome of a full pipeline run. Either Success
// with Output, or a stop phrase with its reason.
type ProcessingResult struct {
	Success    bool
	Output     string
	StopPhrase string
	Reason     string
}

func successResult(output string) ProcessingResult {
	return ProcessingResult{Success: true, Output: output}
}

func stoppedResult(stopPhrase, reason string) ProcessingResult {
	return ProcessingResult{StopPhrase: stopPhrase, Reason: reason}
}
