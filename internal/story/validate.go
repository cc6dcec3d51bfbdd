package story

import (
	"fmt"
	"strings"
)

// Stop phrases returned by the validation gate.
const (
	StopRepositoryNotInScope = "STOP: Repository not in scope"
	StopPrefixNotSupported   = "STOP: Issue prefix not supported"
	StopNotFunctionalStory   = "STOP: Issue is not a functional story"
)

const (
	prefixBackend = "[BACKEND]"
	prefixStory   = "[STORY]"

	minBodyLength = 20
)

// storyMarkers are phrases whose presence marks a body as a functional story.
var storyMarkers = []string{"as a", "i want", "so that", "user story", "acceptance criteria"}

// excludedLabels mark an issue as something other than a functional story.
var excludedLabels = []string{"epic", "task", "bug"}

// Validator is the pipeline's activation gate. Checks run in order and
// short-circuit on the first failure; the result is a pure function of
// the issue.
type Validator struct {
	allowedRepository string
}

// NewValidator builds a validator scoped to the given repository.
func NewValidator(allowedRepository string) *Validator {
	return &Validator{allowedRepository: allowedRepository}
}

// Validate runs the activation checks: repository scope, title prefixes,
// then the functional-story heuristic.
func (v *Validator) Validate(issue Issue) ValidationResult {
	if issue.Repository != v.allowedRepository {
		return invalidResult(
			StopRepositoryNotInScope,
			fmt.Sprintf("Repository '%s' is not in scope. Expected: '%s'", issue.Repository, v.allowedRepository),
		)
	}

	if !strings.Contains(issue.Title, prefixBackend) || !strings.Contains(issue.Title, prefixStory) {
		return invalidResult(
			StopPrefixNotSupported,
			fmt.Sprintf("Issue title '%s' does not contain required prefixes [BACKEND] [STORY]", issue.Title),
		)
	}

	if !isFunctionalStory(issue) {
		return invalidResult(
			StopNotFunctionalStory,
			"Issue does not represent a functional story (may be epic, task, or bug)",
		)
	}

	return validResult()
}

// isFunctionalStory applies the heuristic: no excluded label, a body of
// meaningful length, and at least one story marker phrase.
func isFunctionalStory(issue Issue) bool {
	for _, label := range issue.Labels {
		lower := strings.ToLower(label)
		for _, excluded := range excludedLabels {
			if strings.Contains(lower, excluded) {
				return false
			}
		}
	}

	body := strings.TrimSpace(issue.Body)
	if len(body) < minBodyLength {
		return false
	}

	lower := strings.ToLower(body)
	for _, marker := range storyMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
