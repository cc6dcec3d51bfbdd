package story

import (
	"context"
	"log/slog"
	"strings"

	"agenthub/internal/infra/tracer"
)

// StopParsingFailed is returned when the markdown body cannot be parsed.
const StopParsingFailed = "STOP: Issue parsing failed"

// PipelineOptions configures validation scope and loop thresholds.
type PipelineOptions struct {
	AllowedRepository     string
	MaxRewriteIterations  int
	MaxAcceptanceCriteria int
	MaxOpenQuestions      int
	EnableLoopDetection   bool
}

// DefaultPipelineOptions returns the standard configuration.
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		AllowedRepository:     "durion-positivity-backend",
		MaxRewriteIterations:  2,
		MaxAcceptanceCriteria: 25,
		MaxOpenQuestions:      10,
		EnableLoopDetection:   true,
	}
}

// Pipeline runs an issue through validation, parsing, analysis,
// transformation and output generation, with a loop-detection
// checkpoint after each of the middle stages.
type Pipeline struct {
	validator   *Validator
	parser      *Parser
	analyzer    *Analyzer
	transformer *Transformer
	detector    *LoopDetector
	logger      *slog.Logger
}

// NewPipeline wires all stages from a single options struct.
func NewPipeline(opts PipelineOptions, logger *slog.Logger) *Pipeline {
	if opts.AllowedRepository == "" {
		opts.AllowedRepository = DefaultPipelineOptions().AllowedRepository
	}
	return &Pipeline{
		validator:   NewValidator(opts.AllowedRepository),
		parser:      NewParser(logger),
		analyzer:    NewAnalyzer(logger),
		transformer: NewTransformer(logger),
		detector: NewLoopDetector(LoopDetectorOptions{
			MaxRewriteIterations:  opts.MaxRewriteIterations,
			MaxAcceptanceCriteria: opts.MaxAcceptanceCriteria,
			MaxOpenQuestions:      opts.MaxOpenQuestions,
			Enabled:               opts.EnableLoopDetection,
		}, logger),
		logger: logger,
	}
}

// Process runs the full pipeline over one issue. Every early exit maps
// to a stop phrase with a reason; only a completed run yields output.
func (p *Pipeline) Process(ctx context.Context, issue Issue) ProcessingResult {
	_, span := tracer.StartSpan(ctx, "story.process")
	defer span.End()
	span.SetAttributes(
		tracer.StringAttr("issue.repository", issue.Repository),
		tracer.IntAttr("issue.number", issue.Number),
	)

	validation := p.validator.Validate(issue)
	if !validation.Valid {
		p.logger.Info("issue rejected", "stop_phrase", validation.StopPhrase, "reason", validation.Reason)
		return stoppedResult(validation.StopPhrase, validation.Reason)
	}

	parsed, err := p.parser.Parse(issue)
	if err != nil {
		tracer.RecordError(span, err)
		return stoppedResult(StopParsingFailed, err.Error())
	}

	if check := p.detector.Check(p.buildContext(nil, nil)); check.LoopDetected {
		return stoppedResult(check.StopPhrase, check.Details)
	}

	analysis := p.analyzer.Analyze(parsed)

	if check := p.detector.Check(p.buildContext(&analysis, nil)); check.LoopDetected {
		p.logger.Warn("pipeline stopped after analysis", "stop_phrase", check.StopPhrase)
		return stoppedResult(check.StopPhrase, check.Details)
	}

	transformed := p.transformer.Transform(parsed.Metadata, analysis)

	if check := p.detector.Check(p.buildContext(&analysis, &transformed)); check.LoopDetected {
		p.logger.Warn("pipeline stopped after transformation", "stop_phrase", check.StopPhrase)
		return stoppedResult(check.StopPhrase, check.Details)
	}

	output := GenerateOutput(transformed, issue.Body)
	tracer.SetOK(span)
	p.logger.Info("issue strengthened", "repository", issue.Repository, "number", issue.Number)

	return successResult(output)
}

// buildContext aggregates the loop-detection counters from whatever
// stages have completed so far.
func (p *Pipeline) buildContext(analysis *Analysis, transformed *TransformedRequirements) *ProcessingContext {
	ctx := NewProcessingContext()

	if transformed != nil {
		ctx.AcceptanceCriteriaCount = len(transformed.AcceptanceCriteria) + len(transformed.FunctionalRequirements)
		ctx.OpenQuestionsCount = len(transformed.OpenQuestions)
	} else if analysis != nil {
		ctx.OpenQuestionsCount = len(analysis.Ambiguities)
	}

	if analysis != nil {
		flagUnsafeInference(ctx, *analysis)
	}

	return ctx
}

// flagUnsafeInference marks topics the pipeline must not reason about
// on its own: legal, financial, security, and regulatory matters stay
// with human experts.
func flagUnsafeInference(ctx *ProcessingContext, analysis Analysis) {
	var b strings.Builder
	b.WriteString(analysis.Intent)
	for _, actor := range analysis.Actors {
		b.WriteString(" " + actor)
	}
	for _, req := range analysis.FunctionalRequirements {
		b.WriteString(" " + req.Text)
	}
	for _, rule := range analysis.BusinessRules {
		b.WriteString(" " + rule.Text)
	}
	text := strings.ToLower(b.String())

	if containsAny(text, "legal", "compliance", "regulation", "law") {
		ctx.RequiresLegalInference = true
	}
	if containsAny(text, "financial", "payment", "transaction", "accounting") {
		ctx.RequiresFinancialInference = true
	}
	if containsAny(text, "security", "authentication", "authorization", "encrypt") {
		ctx.RequiresSecurityInference = true
	}
	if containsAny(text, "regulatory", "gdpr", "hipaa", "sox") {
		ctx.RequiresRegulatoryInference = true
	}
}
