package story

import (
	"fmt"
	"log/slog"
	"strings"
)

// Stop phrases returned by the loop detector, in check priority order.
const (
	StopMaxRewriteIterations = "STOP: Maximum rewrite iterations exceeded"
	StopScenarioCount        = "STOP: Scenario count exceeds threshold"
	StopOpenQuestionCount    = "STOP: Open question count exceeds threshold"
	StopUnsafeInference      = "STOP: Unsafe inference detected"
)

// ProcessingContext tracks the counters the loop detector evaluates:
// per-section rewrite iterations, scenario and open-question totals,
// and the unsafe-inference flags.
type ProcessingContext struct {
	sectionRewrites         map[string]int
	AcceptanceCriteriaCount int
	OpenQuestionsCount      int

	RequiresLegalInference      bool
	RequiresFinancialInference  bool
	RequiresSecurityInference   bool
	RequiresRegulatoryInference bool
}

func NewProcessingContext() *ProcessingContext {
	return &ProcessingContext{sectionRewrites: make(map[string]int)}
}

// IncrementRewrite records another rewrite pass over a section.
func (c *ProcessingContext) IncrementRewrite(section string) {
	c.sectionRewrites[section]++
}

// RewriteCount reports how often a section has been rewritten.
func (c *ProcessingContext) RewriteCount(section string) int {
	return c.sectionRewrites[section]
}

// RequiresUnsafeInference reports whether any flagged area demands
// human expertise instead of automated inference.
func (c *ProcessingContext) RequiresUnsafeInference() bool {
	return c.RequiresLegalInference || c.RequiresFinancialInference ||
		c.RequiresSecurityInference || c.RequiresRegulatoryInference
}

func (c *ProcessingContext) unsafeAreas() []string {
	var areas []string
	if c.RequiresLegalInference {
		areas = append(areas, "legal")
	}
	if c.RequiresFinancialInference {
		areas = append(areas, "financial")
	}
	if c.RequiresSecurityInference {
		areas = append(areas, "security")
	}
	if c.RequiresRegulatoryInference {
		areas = append(areas, "regulatory")
	}
	return areas
}

// LoopCheck is the outcome of a single detector pass. A detected loop
// carries a stop phrase and detail text; otherwise both are empty.
type LoopCheck struct {
	LoopDetected bool
	StopPhrase   string
	Details      string
}

func noLoop() LoopCheck {
	return LoopCheck{}
}

func loopDetected(stopPhrase, details string) LoopCheck {
	return LoopCheck{LoopDetected: true, StopPhrase: stopPhrase, Details: details}
}

// LoopDetectorOptions bound the pipeline's output growth.
type LoopDetectorOptions struct {
	MaxRewriteIterations  int
	MaxAcceptanceCriteria int
	MaxOpenQuestions      int
	Enabled               bool
}

// DefaultLoopDetectorOptions returns the standard thresholds.
func DefaultLoopDetectorOptions() LoopDetectorOptions {
	return LoopDetectorOptions{
		MaxRewriteIterations:  2,
		MaxAcceptanceCriteria: 25,
		MaxOpenQuestions:      10,
		Enabled:               true,
	}
}

// LoopDetector stops the pipeline when a processing context shows signs
// of runaway rewriting or inference outside the pipeline's competence.
type LoopDetector struct {
	opts   LoopDetectorOptions
	logger *slog.Logger
}

func NewLoopDetector(opts LoopDetectorOptions, logger *slog.Logger) *LoopDetector {
	if opts.MaxRewriteIterations <= 0 {
		opts.MaxRewriteIterations = 2
	}
	if opts.MaxAcceptanceCriteria <= 0 {
		opts.MaxAcceptanceCriteria = 25
	}
	if opts.MaxOpenQuestions <= 0 {
		opts.MaxOpenQuestions = 10
	}
	return &LoopDetector{opts: opts, logger: logger}
}

// Check evaluates the context against every threshold, highest priority
// first, and returns on the first violation.
func (d *LoopDetector) Check(ctx *ProcessingContext) LoopCheck {
	if !d.opts.Enabled {
		return noLoop()
	}

	for section, count := range ctx.sectionRewrites {
		if count > d.opts.MaxRewriteIterations {
			d.logger.Warn("rewrite iteration limit exceeded", "section", section, "count", count)
			return loopDetected(StopMaxRewriteIterations,
				fmt.Sprintf("section '%s' rewritten %d times (maximum %d)",
					section, count, d.opts.MaxRewriteIterations))
		}
	}

	if ctx.AcceptanceCriteriaCount > d.opts.MaxAcceptanceCriteria {
		d.logger.Warn("scenario count threshold exceeded", "count", ctx.AcceptanceCriteriaCount)
		return loopDetected(StopScenarioCount,
			fmt.Sprintf("%d scenarios exceed the maximum of %d",
				ctx.AcceptanceCriteriaCount, d.opts.MaxAcceptanceCriteria))
	}

	if ctx.OpenQuestionsCount > d.opts.MaxOpenQuestions {
		d.logger.Warn("open question threshold exceeded", "count", ctx.OpenQuestionsCount)
		return loopDetected(StopOpenQuestionCount,
			fmt.Sprintf("%d open questions exceed the maximum of %d",
				ctx.OpenQuestionsCount, d.opts.MaxOpenQuestions))
	}

	if ctx.RequiresUnsafeInference() {
		areas := strings.Join(ctx.unsafeAreas(), ", ")
		d.logger.Warn("unsafe inference detected", "areas", areas)
		return loopDetected(StopUnsafeInference,
			"requires human expertise: "+areas)
	}

	return noLoop()
}
