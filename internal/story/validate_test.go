package story

import (
	"strings"
	"testing"
)

func validIssue() Issue {
	return Issue{
		Title:      "[BACKEND] [STORY] Customer profile updates",
		Body:       "As a customer, I want to update my profile so that my data stays accurate.",
		Labels:     []string{"story"},
		Repository: "durion-positivity-backend",
		Number:     42,
	}
}

func TestValidateAcceptsFunctionalStory(t *testing.T) {
	v := NewValidator("durion-positivity-backend")

	result := v.Validate(validIssue())
	if !result.Valid {
		t.Fatalf("expected valid, got stop %q reason %q", result.StopPhrase, result.Reason)
	}
	if result.StopPhrase != "" || result.Reason != "" {
		t.Fatalf("valid result must not carry stop phrase or reason: %+v", result)
	}
}

func TestValidateRejectsWrongRepository(t *testing.T) {
	v := NewValidator("durion-positivity-backend")
	issue := validIssue()
	issue.Repository = "some-other-repo"

	result := v.Validate(issue)
	if result.Valid {
		t.Fatal("expected rejection")
	}
	if result.StopPhrase != StopRepositoryNotInScope {
		t.Fatalf("stop phrase = %q", result.StopPhrase)
	}
	want := "Repository 'some-other-repo' is not in scope. Expected: 'durion-positivity-backend'"
	if result.Reason != want {
		t.Fatalf("reason = %q, want %q", result.Reason, want)
	}
}

func TestValidateRejectsMissingPrefix(t *testing.T) {
	v := NewValidator("durion-positivity-backend")

	for _, title := range []string{
		"Customer profile updates",
		"[BACKEND] Customer profile updates",
		"[STORY] Customer profile updates",
	} {
		issue := validIssue()
		issue.Title = title
		result := v.Validate(issue)
		if result.Valid || result.StopPhrase != StopPrefixNotSupported {
			t.Fatalf("title %q: got %+v", title, result)
		}
	}
}

func TestValidateRejectsNonFunctionalStory(t *testing.T) {
	v := NewValidator("durion-positivity-backend")

	cases := map[string]func(*Issue){
		"epic label":      func(i *Issue) { i.Labels = []string{"Epic: onboarding"} },
		"bug label":       func(i *Issue) { i.Labels = []string{"bug"} },
		"task label":      func(i *Issue) { i.Labels = []string{"chore-task"} },
		"short body":      func(i *Issue) { i.Body = "too short" },
		"no story marker": func(i *Issue) { i.Body = "This describes some work without story structure at all." },
	}

	for name, mutate := range cases {
		issue := validIssue()
		mutate(&issue)
		result := v.Validate(issue)
		if result.Valid {
			t.Fatalf("%s: expected rejection", name)
		}
		if result.StopPhrase != StopNotFunctionalStory {
			t.Fatalf("%s: stop phrase = %q", name, result.StopPhrase)
		}
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	v := NewValidator("durion-positivity-backend")
	issue := validIssue()
	issue.Labels = []string{"EPIC"}

	first := v.Validate(issue)
	for i := 0; i < 5; i++ {
		if got := v.Validate(issue); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestStopPhrasesStartWithStop(t *testing.T) {
	for _, phrase := range []string{
		StopRepositoryNotInScope,
		StopPrefixNotSupported,
		StopNotFunctionalStory,
		StopParsingFailed,
		StopMaxRewriteIterations,
		StopScenarioCount,
		StopOpenQuestionCount,
		StopUnsafeInference,
	} {
		if !strings.HasPrefix(phrase, "STOP: ") {
			t.Errorf("phrase %q does not start with STOP:", phrase)
		}
	}
}
