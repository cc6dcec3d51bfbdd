package story

import (
	"strings"
	"testing"
)

func newDetector(opts LoopDetectorOptions) *LoopDetector {
	return NewLoopDetector(opts, discardLogger())
}

func TestLoopDetectorNoLoopOnEmptyContext(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())

	check := d.Check(NewProcessingContext())
	if check.LoopDetected {
		t.Fatalf("unexpected loop: %+v", check)
	}
	if check.StopPhrase != "" || check.Details != "" {
		t.Fatalf("clean check must carry no phrase: %+v", check)
	}
}

func TestLoopDetectorRewriteThreshold(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())
	ctx := NewProcessingContext()

	ctx.IncrementRewrite("requirements")
	ctx.IncrementRewrite("requirements")
	if check := d.Check(ctx); check.LoopDetected {
		t.Fatalf("two rewrites are still allowed: %+v", check)
	}

	ctx.IncrementRewrite("requirements")
	check := d.Check(ctx)
	if !check.LoopDetected || check.StopPhrase != StopMaxRewriteIterations {
		t.Fatalf("third rewrite: %+v", check)
	}
	if !strings.Contains(check.Details, "requirements") {
		t.Fatalf("details = %q", check.Details)
	}
}

func TestLoopDetectorScenarioThreshold(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())
	ctx := NewProcessingContext()

	ctx.AcceptanceCriteriaCount = 25
	if check := d.Check(ctx); check.LoopDetected {
		t.Fatalf("25 scenarios are allowed: %+v", check)
	}

	ctx.AcceptanceCriteriaCount = 26
	check := d.Check(ctx)
	if !check.LoopDetected || check.StopPhrase != StopScenarioCount {
		t.Fatalf("26 scenarios: %+v", check)
	}
}

func TestLoopDetectorOpenQuestionThreshold(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())
	ctx := NewProcessingContext()

	ctx.OpenQuestionsCount = 11
	check := d.Check(ctx)
	if !check.LoopDetected || check.StopPhrase != StopOpenQuestionCount {
		t.Fatalf("11 questions: %+v", check)
	}
}

func TestLoopDetectorUnsafeInference(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())

	flags := []func(*ProcessingContext){
		func(c *ProcessingContext) { c.RequiresLegalInference = true },
		func(c *ProcessingContext) { c.RequiresFinancialInference = true },
		func(c *ProcessingContext) { c.RequiresSecurityInference = true },
		func(c *ProcessingContext) { c.RequiresRegulatoryInference = true },
	}
	for i, set := range flags {
		ctx := NewProcessingContext()
		set(ctx)
		check := d.Check(ctx)
		if !check.LoopDetected || check.StopPhrase != StopUnsafeInference {
			t.Fatalf("flag %d: %+v", i, check)
		}
		if !strings.Contains(check.Details, "requires human expertise") {
			t.Fatalf("flag %d details = %q", i, check.Details)
		}
	}
}

func TestLoopDetectorPriorityOrder(t *testing.T) {
	d := newDetector(DefaultLoopDetectorOptions())
	ctx := NewProcessingContext()
	ctx.AcceptanceCriteriaCount = 30
	ctx.OpenQuestionsCount = 15
	ctx.RequiresSecurityInference = true

	check := d.Check(ctx)
	if check.StopPhrase != StopScenarioCount {
		t.Fatalf("scenario check must win: %+v", check)
	}
}

func TestLoopDetectorDisabled(t *testing.T) {
	opts := DefaultLoopDetectorOptions()
	opts.Enabled = false
	d := newDetector(opts)

	ctx := NewProcessingContext()
	ctx.AcceptanceCriteriaCount = 100
	ctx.RequiresLegalInference = true
	if check := d.Check(ctx); check.LoopDetected {
		t.Fatalf("disabled detector must not stop: %+v", check)
	}
}
