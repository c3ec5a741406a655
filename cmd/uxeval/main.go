package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rcron "github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/uxeval/internal/config"
	"github.com/ashita-ai/uxeval/internal/llm"
	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/persona"
	"github.com/ashita-ai/uxeval/internal/pipeline"
	"github.com/ashita-ai/uxeval/internal/report"
	"github.com/ashita-ai/uxeval/internal/scenario"
	"github.com/ashita-ai/uxeval/internal/telemetry"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("fatal error", "error", err)
		cancel()
		os.Exit(1)
	}
}

type runFlags struct {
	skipLLM    bool
	reportOnly bool
	schedule   string
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	root := &cobra.Command{
		Use:           "uxeval",
		Short:         "LLM-assisted UX evaluation of a website through simulated personas",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&flags.skipLLM, "skip-llm", false, "Use rule-based findings only")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run persona sessions against the site, then write the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.evaluate(ctx, flags)
			})
		},
	}
	runCmd.Flags().BoolVar(&flags.reportOnly, "report-only", false, "Skip the sessions and report on saved results")

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Write the report from saved session results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				f := flags
				f.reportOnly = true
				return a.evaluate(ctx, f)
			})
		},
	}

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run full evaluations on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return a.schedule(ctx, flags)
			})
		},
	}
	scheduleCmd.Flags().StringVar(&flags.schedule, "cron", "", "Cron expression with seconds (default UXEVAL_SCHEDULE)")

	root.AddCommand(runCmd, reportCmd, scheduleCmd)
	return root
}

// app holds the wiring shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	personas *persona.Registry
	out      io.Writer
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	// Load .env file if present (non-fatal; CI won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	otelShutdown, err := telemetry.Init(ctx, telemetry.Settings{
		Endpoint:    cfg.OTELEndpoint,
		ServiceName: cfg.ServiceName,
		Version:     version,
		Insecure:    cfg.OTELInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	personas, err := loadPersonas(cfg.PersonasFile)
	if err != nil {
		return err
	}

	logger.Info("uxeval starting", "version", version, "command", cmd.Name(), "site", cfg.SiteBaseURL)
	return fn(ctx, &app{
		cfg:      cfg,
		logger:   logger,
		personas: persona.NewRegistry(personas),
		out:      cmd.OutOrStdout(),
	})
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

func loadPersonas(path string) ([]model.PersonaProfile, error) {
	defaults := persona.Defaults()
	if path == "" {
		return defaults, nil
	}
	overrides, err := persona.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return persona.Merge(defaults, overrides), nil
}

func (a *app) analyzer() *llm.Analyzer {
	cfg := llm.DefaultConfig()
	cfg.Primary = llm.ModelSpec{Name: a.cfg.PrimaryModel, Vision: a.cfg.PrimaryVision}
	cfg.Fallback = llm.ModelSpec{Name: a.cfg.FallbackModel, Vision: a.cfg.FallbackVision}
	cfg.MaxImages = a.cfg.MaxImages
	cfg.Temperature = a.cfg.Temperature
	cfg.MaxTokens = a.cfg.MaxTokens
	cfg.Timeout = a.cfg.ModelTimeout
	cfg.Retry.MaxRetries = a.cfg.MaxRetries
	cfg.Retry.BaseDelay = a.cfg.RetryBaseDelay

	// The per-attempt context deadline governs; the client timeout only
	// catches a hung connection that ignores it.
	client := llm.NewClient(a.cfg.OllamaURL, a.cfg.ModelTimeout+30*time.Second)
	return llm.NewAnalyzer(client, cfg, a.logger)
}

// evaluate runs the sessions (unless reportOnly) and writes the report.
func (a *app) evaluate(ctx context.Context, f runFlags) error {
	if !f.reportOnly {
		scenarios := scenario.Smoke(a.cfg.SiteBaseURL, a.personas.All())
		outcomes := scenario.RunAll(ctx, scenarios, scenario.NewHTTPBrowser(30*time.Second), a.cfg.ResultsDir, a.logger)
		failed := 0
		for _, o := range outcomes {
			if o.Err != nil {
				failed++
			}
		}
		a.logger.Info("sessions complete", "sessions", len(outcomes), "with_errors", failed)
	}

	var analyzer pipeline.Analyzer
	if !f.skipLLM {
		analyzer = a.analyzer()
	}
	runner := pipeline.New(analyzer, a.personas, report.New(), a.logger, pipeline.Options{
		SkipLLM:    f.skipLLM,
		ReportsDir: a.cfg.ReportsDir,
	})
	res, err := runner.RunDir(ctx, a.cfg.ResultsDir)
	if err != nil {
		return err
	}
	if !res.Produced {
		a.logger.Warn("no session results found, nothing to report", "results_dir", a.cfg.ResultsDir)
		return nil
	}
	_, _ = fmt.Fprintf(a.out, "Report: %s\nAction items: %s\n", res.MarkdownPath, res.JSONPath)
	return nil
}

// schedule runs evaluate on every tick of the cron expression. Overlapping
// runs are skipped.
func (a *app) schedule(ctx context.Context, f runFlags) error {
	expr := f.schedule
	if expr == "" {
		expr = a.cfg.Schedule
	}
	f.reportOnly = false

	c := rcron.New(rcron.WithSeconds(), rcron.WithChain(rcron.SkipIfStillRunning(rcron.DiscardLogger)))
	if _, err := c.AddFunc(expr, func() {
		start := time.Now()
		if err := a.evaluate(ctx, f); err != nil {
			a.logger.Error("scheduled evaluation failed", "error", err)
			return
		}
		a.logger.Info("scheduled evaluation complete", "elapsed", time.Since(start).String())
	}); err != nil {
		return fmt.Errorf("schedule %q: %w", expr, err)
	}

	c.Start()
	a.logger.Info("scheduler started", "cron", expr)
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	a.logger.Info("scheduler stopped")
	return nil
}
