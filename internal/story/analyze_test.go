package story

import (
	"strings"
	"testing"
)

func analyze(t *testing.T, body string) Analysis {
	t.Helper()
	p := NewParser(discardLogger())
	issue := validIssue()
	issue.Body = body
	parsed, err := p.Parse(issue)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return NewAnalyzer(discardLogger()).Analyze(parsed)
}

func TestAnalyzeIntentFromDescriptionSection(t *testing.T) {
	a := analyze(t, "## Description\n\nAs a customer, I want to update my profile details.\n")
	if a.Intent != "update my profile details" {
		t.Fatalf("intent = %q", a.Intent)
	}
}

func TestAnalyzeIntentFallsBackToFirstSentence(t *testing.T) {
	a := analyze(t, "The profile page saves customer addresses. More text follows here.")
	if a.Intent != "The profile page saves customer addresses" {
		t.Fatalf("intent = %q", a.Intent)
	}
}

func TestAnalyzeActorsNormalizedAndDeduplicated(t *testing.T) {
	a := analyze(t, "As a store manager, I want reports. As a store manager, I want exports. The admin reviews them.")

	found := map[string]bool{}
	for _, actor := range a.Actors {
		found[actor] = true
	}
	if !found["Store Manager"] {
		t.Fatalf("actors = %v, want Store Manager", a.Actors)
	}
	if !found["Administrator"] {
		t.Fatalf("actors = %v, want Administrator", a.Actors)
	}
	count := 0
	for _, actor := range a.Actors {
		if actor == "Store Manager" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("Store Manager appears %d times", count)
	}
}

func TestAnalyzeDefaultActorIsUser(t *testing.T) {
	a := analyze(t, "Reports are generated nightly without manual steps.")
	if len(a.Actors) != 1 || a.Actors[0] != "User" {
		t.Fatalf("actors = %v", a.Actors)
	}
}

func TestAnalyzeStakeholdersDerivedFromActors(t *testing.T) {
	a := analyze(t, "As a customer, I want invoices. The admin approves them.")

	joined := strings.Join(a.Stakeholders, "|")
	if !strings.Contains(joined, "Business Owner") {
		t.Fatalf("stakeholders = %v, want Business Owner", a.Stakeholders)
	}
	if !strings.Contains(joined, "System Administrator") {
		t.Fatalf("stakeholders = %v, want System Administrator", a.Stakeholders)
	}
}

func TestAnalyzePreconditionsFromModeSentences(t *testing.T) {
	a := analyze(t, "While the account is in maintenance mode, edits are queued.")
	if len(a.Preconditions) == 0 {
		t.Fatal("expected a state-driven precondition")
	}
	if a.Preconditions[0].Pattern != PatternStateDriven {
		t.Fatalf("pattern = %q", a.Preconditions[0].Pattern)
	}
}

func TestAnalyzeRequirementClassification(t *testing.T) {
	body := `## Requirements

- When the user submits the form, validate every entry
- If the lookup fails, present the error summary
- While syncing runs, disable manual edits
- Persist all profile changes immediately
`
	a := analyze(t, body)
	if len(a.FunctionalRequirements) != 4 {
		t.Fatalf("requirements = %d, want 4", len(a.FunctionalRequirements))
	}

	want := []Pattern{PatternEventDriven, PatternUnwanted, PatternStateDriven, PatternUbiquitous}
	for i, req := range a.FunctionalRequirements {
		if req.Pattern != want[i] {
			t.Errorf("requirement %d %q: pattern = %q, want %q", i, req.Text, req.Pattern, want[i])
		}
	}
}

func TestAnalyzeVagueTermsMakeRequirementUnverifiable(t *testing.T) {
	a := analyze(t, "## Requirements\n\n- The export completes quickly for large data sets\n")
	if len(a.FunctionalRequirements) != 1 {
		t.Fatalf("requirements = %d", len(a.FunctionalRequirements))
	}
	if a.FunctionalRequirements[0].Verifiable {
		t.Fatal("requirement with vague term must not be verifiable")
	}

	var vagueQuestion string
	for _, q := range a.Ambiguities {
		if strings.Contains(q.Question, "quickly") {
			vagueQuestion = q.Question
		}
	}
	if vagueQuestion == "" {
		t.Fatalf("ambiguities = %v, want vague-term question", a.Ambiguities)
	}
	if !strings.Contains(vagueQuestion, "within X seconds/milliseconds") {
		t.Errorf("question = %q, want a measurable replacement hint", vagueQuestion)
	}
}

func TestAnalyzeFlagsMixedTerminology(t *testing.T) {
	a := analyze(t, "The user can delete an export. The system must remove stale exports nightly.")

	var termQuestion string
	for _, q := range a.Ambiguities {
		if strings.Contains(q.Question, "'delete'") {
			termQuestion = q.Question
		}
	}
	if termQuestion == "" {
		t.Fatalf("ambiguities = %v, want terminology question for delete/remove", a.Ambiguities)
	}
	if !strings.Contains(termQuestion, "'remove'") {
		t.Errorf("question = %q, want the variation named", termQuestion)
	}

	// A body that sticks to one wording raises no terminology question.
	clean := analyze(t, "The user can delete an export at any time.")
	for _, q := range clean.Ambiguities {
		if strings.Contains(q.Question, "Use one term consistently") {
			t.Errorf("unexpected terminology question: %q", q.Question)
		}
	}
}

func TestAnalyzeDataRequirements(t *testing.T) {
	body := `## Data Model

- email: the customer address, required for login
- nickname: optional display name
`
	a := analyze(t, body)

	byField := map[string]DataRequirement{}
	for _, d := range a.DataRequirements {
		byField[d.Field] = d
	}
	if !byField["email"].Required {
		t.Fatalf("email should be required: %+v", byField["email"])
	}
	if byField["nickname"].Required {
		t.Fatalf("nickname should be optional: %+v", byField["nickname"])
	}
}

func TestAnalyzeErrorFlowsFromKeywordSentences(t *testing.T) {
	a := analyze(t, "The import runs nightly. When the upstream is unavailable, the import is postponed.")
	if len(a.ErrorFlows) == 0 {
		t.Fatal("expected error flow from keyword sentence")
	}
	if a.ErrorFlows[0].Pattern != PatternUnwanted {
		t.Fatalf("pattern = %q", a.ErrorFlows[0].Pattern)
	}
}

func TestAnalyzeFlagsMissingInformation(t *testing.T) {
	a := analyze(t, "Nightly exports are produced for reporting purposes only.")

	questions := map[string]bool{}
	for _, q := range a.Ambiguities {
		questions[q.Question] = true
	}
	if !questions["Who are the specific actors/users for this feature?"] {
		t.Errorf("missing actors question: %v", a.Ambiguities)
	}
	if !questions["What data fields and structures are required?"] {
		t.Errorf("missing data question: %v", a.Ambiguities)
	}
	if !questions["How should errors and edge cases be handled?"] {
		t.Errorf("missing error-handling question: %v", a.Ambiguities)
	}
}
