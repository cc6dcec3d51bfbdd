package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"agenthub/internal/adapter/agents"
	"agenthub/internal/adapter/archive"
	"agenthub/internal/domain"
	"agenthub/internal/infra/config"
	"agenthub/internal/infra/logger"
	"agenthub/internal/infra/tracer"
	"agenthub/internal/story"
	"agenthub/internal/usecase/consult"
	"agenthub/internal/usecase/guidance"
	"agenthub/internal/usecase/scheduling"
)

func main() {
	// Handle help flag first
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "--help", "-h", "help":
			showUsage()
			return
		}
	}

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
		return
	}

	switch os.Args[1] {
	case "consult":
		if err := runConsult(); err != nil {
			fmt.Fprintf(os.Stderr, "consult: %v\n", err)
			os.Exit(1)
		}
	case "strengthen":
		if err := runStrengthen(); err != nil {
			fmt.Fprintf(os.Stderr, "strengthen: %v\n", err)
			os.Exit(1)
		}
	case "status":
		if err := runStatus(); err != nil {
			fmt.Fprintf(os.Stderr, "status: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'agenthub --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`agenthub - Agent consultation and orchestration hub

USAGE:
    agenthub [COMMAND] [FLAGS]

COMMANDS:
    consult     Ask the registered agents for guidance
                Flags: --domain NAME --query TEXT
                       [--context KEY=VALUE]... [--session ID]
    strengthen  Run an issue through the story-strengthening pipeline
                Usage: agenthub strengthen <issue.json>
    status      Print registry health and failover statistics

    (no command) - Run the hub with background health sweeps

FLAGS:
    -h, --help         Show this help message
    --config PATH      Specify config file path (default: ./config.yaml)

CONFIGURATION:
    Config file: ./config.yaml
    Environment: AGENTHUB_* variables override config

EXAMPLES:
    agenthub                                       # Run with config.yaml
    agenthub consult --domain event-driven \
        --query "how do we version event schemas" \
        --context project_name=billing --context technology_stack=go
    agenthub strengthen issue.json                 # Strengthen a story
    agenthub status                                # Registry health`)
}

func configPath() string {
	// Check --config flag in os.Args.
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("AGENTHUB_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// app bundles the wired components shared by the hub and the subcommands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *consult.Registry
	failover *consult.FailoverManager
	guidance *guidance.Manager
	sched    *scheduling.Scheduler
	store    *archive.Store
}

// buildApp loads configuration and wires every component. The returned
// cleanup closes the logger, tracer and archive store.
func buildApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, nil, fmt.Errorf("tracer: %w", err)
	}

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.New(cfg.Archive.Path, log)
		if err != nil {
			tracerShutdown(ctx)
			logCloser()
			return nil, nil, fmt.Errorf("archive: %w", err)
		}
	}

	registry := consult.NewRegistry(cfg.Registry.MaxBackupAgents, log)
	for _, agent := range agents.AllProtected(agents.BreakerConfig{}, log) {
		if err := registry.Register(agent); err != nil {
			log.Error("agent registration failed", "agent", agent.ID(), "error", err)
		}
	}

	sched := scheduling.NewScheduler(log)

	// The archive store is optional; nil recorder/archiver means transitions
	// and archived sessions are logged but not persisted.
	var recorder consult.TransitionRecorder
	var archiver guidance.Archiver
	if store != nil {
		recorder = store
		archiver = store
	}

	failover := consult.NewFailoverManager(registry, sched, consult.FailoverOptions{
		Enabled:             cfg.Failover.Enabled,
		RecoveryTimeout:     cfg.Failover.RecoveryTimeout,
		HealthCheckInterval: cfg.Failover.HealthCheckInterval,
		FailureThreshold:    cfg.Failover.FailureThreshold,
	}, recorder, log)

	manager := guidance.NewManager(cfg.Guidance.StaleAfter, guidance.KeywordClassifier, archiver, log)

	cleanup := func() {
		if store != nil {
			if err := store.Close(); err != nil {
				log.Error("archive close error", "error", err)
			}
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
		logCloser()
	}

	return &app{
		cfg:      cfg,
		log:      log,
		registry: registry,
		failover: failover,
		guidance: manager,
		sched:    sched,
		store:    store,
	}, cleanup, nil
}

func run() error {
	ctx := context.Background()

	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Background maintenance: stale context sweeps plus the failover
	// health sweep. Start registers the sweep and starts the scheduler.
	if a.cfg.Scheduler.Enabled {
		a.sched.RegisterAction(scheduling.ActionContextCleanup, a.guidance.CleanupStaleContexts)
		if err := a.sched.AddTask(scheduling.ScheduledTask{
			Name:     "guidance-context-cleanup",
			Schedule: a.cfg.Guidance.CleanupInterval.String(),
			Action:   scheduling.ActionContextCleanup,
		}); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if err := a.failover.Start(ctx); err != nil {
			return fmt.Errorf("failover: %w", err)
		}
		defer a.failover.Stop()
	}

	health := a.registry.HealthSnapshot()
	a.log.Info("agenthub starting",
		"agents", health.TotalAgents,
		"failover", a.cfg.Failover.Enabled,
		"archive", a.store != nil,
		"scheduler", a.cfg.Scheduler.Enabled,
	)

	<-ctx.Done()
	a.log.Info("agenthub stopping")
	return nil
}

// consultFlags holds the flags accepted by the consult subcommand.
type consultFlags struct {
	Domain  string
	Query   string
	Session string
	Context map[string]string
}

func parseConsultFlags() (consultFlags, error) {
	flags := consultFlags{Session: "cli", Context: map[string]string{}}
	for i := 2; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--domain" && i+1 < len(os.Args):
			flags.Domain = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--domain="):
			flags.Domain = strings.TrimPrefix(os.Args[i], "--domain=")
		case os.Args[i] == "--query" && i+1 < len(os.Args):
			flags.Query = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--query="):
			flags.Query = strings.TrimPrefix(os.Args[i], "--query=")
		case os.Args[i] == "--session" && i+1 < len(os.Args):
			flags.Session = os.Args[i+1]
			i++
		case strings.HasPrefix(os.Args[i], "--session="):
			flags.Session = strings.TrimPrefix(os.Args[i], "--session=")
		case os.Args[i] == "--context" && i+1 < len(os.Args):
			key, value, ok := strings.Cut(os.Args[i+1], "=")
			if !ok {
				return flags, fmt.Errorf("--context expects KEY=VALUE, got %q", os.Args[i+1])
			}
			flags.Context[key] = value
			i++
		}
	}
	if flags.Domain == "" || flags.Query == "" {
		return flags, fmt.Errorf("--domain and --query must both be specified")
	}
	return flags, nil
}

func runConsult() error {
	flags, err := parseConsultFlags()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	req := domain.NewConsultationRequest(flags.Domain, flags.Query, flags.Context)

	validation := a.guidance.ValidateContext(req)
	if !validation.Sufficient {
		for _, item := range validation.MissingItems {
			fmt.Fprintf(os.Stderr, "warning: missing context: %s\n", item)
		}
	}

	resp := a.failover.Consult(ctx, req)

	if resp.Success {
		a.guidance.GetOrCreateSession(flags.Session)
		a.guidance.UpdateSpecializedContext(resp.AgentID, flags.Session, resp.Guidance)
		resp.Guidance = a.guidance.EnhanceWithContext(resp.AgentID, flags.Session, resp.Guidance)
		if a.store != nil {
			if err := a.guidance.ArchiveSession(ctx, flags.Session); err != nil {
				a.log.Warn("session archive failed", "session", flags.Session, "error", err)
			}
		}
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(out))

	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

func runStrengthen() error {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: agenthub strengthen <issue.json>")
		os.Exit(1)
	}

	ctx := context.Background()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		return fmt.Errorf("read issue: %w", err)
	}

	var issue story.Issue
	if err := json.Unmarshal(data, &issue); err != nil {
		return fmt.Errorf("parse issue: %w", err)
	}

	pipeline := story.NewPipeline(story.PipelineOptions{
		AllowedRepository:     a.cfg.Story.AllowedRepository,
		MaxRewriteIterations:  a.cfg.Story.MaxRewriteIterations,
		MaxAcceptanceCriteria: a.cfg.Story.MaxAcceptanceCriteria,
		MaxOpenQuestions:      a.cfg.Story.MaxOpenQuestions,
		EnableLoopDetection:   a.cfg.Story.LoopDetectionEnabled(),
	}, a.log)

	result := pipeline.Process(ctx, issue)
	if !result.Success {
		fmt.Fprintf(os.Stderr, "%s\n%s\n", result.StopPhrase, result.Reason)
		os.Exit(1)
	}

	fmt.Print(result.Output)
	return nil
}

func runStatus() error {
	ctx := context.Background()
	a, cleanup, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	status := struct {
		Registry consult.RegistryHealth     `json:"registry"`
		Failover consult.FailoverStatistics `json:"failover"`
	}{
		Registry: a.registry.HealthSnapshot(),
		Failover: a.failover.Statistics(),
	}

	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
