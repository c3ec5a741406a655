// Package pipeline turns saved persona sessions into a consolidated report.
//
// Each session is analyzed by the model server when possible and by the
// rule-based extractor otherwise, so a report is produced whenever there is
// at least one session, regardless of backend health.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ashita-ai/uxeval/internal/findings"
	"github.com/ashita-ai/uxeval/internal/llm"
	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/observe"
	"github.com/ashita-ai/uxeval/internal/report"
	"github.com/ashita-ai/uxeval/internal/telemetry"
)

// Analyzer produces an LLM analysis for one session.
type Analyzer interface {
	Analyze(ctx context.Context, profile model.PersonaProfile, s model.SessionSummary) (model.PersonaAnalysis, error)
}

// PersonaLookup resolves the profile a session was recorded for.
type PersonaLookup interface {
	ForSession(s model.SessionSummary) model.PersonaProfile
}

// Options controls a Runner.
type Options struct {
	SkipLLM    bool   // use the rule-based extractor for every session
	ReportsDir string // where action-items.json and summary.md are written
}

// Result describes what a run produced.
type Result struct {
	Produced     bool
	Report       *model.ConsolidatedReport
	JSONPath     string
	MarkdownPath string
}

// Runner analyzes sessions and writes the consolidated report.
type Runner struct {
	analyzer     Analyzer
	personas     PersonaLookup
	consolidator *report.Consolidator
	logger       *slog.Logger
	opts         Options

	analyses metric.Int64Counter
}

// New creates a Runner. analyzer may be nil, which implies SkipLLM.
func New(analyzer Analyzer, personas PersonaLookup, consolidator *report.Consolidator, logger *slog.Logger, opts Options) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if consolidator == nil {
		consolidator = report.New()
	}
	if analyzer == nil {
		opts.SkipLLM = true
	}
	analyses, _ := telemetry.Meter("uxeval/pipeline").Int64Counter("uxeval.analyses",
		metric.WithDescription("Persona analyses by source"),
	)
	return &Runner{
		analyzer:     analyzer,
		personas:     personas,
		consolidator: consolidator,
		logger:       logger,
		opts:         opts,
		analyses:     analyses,
	}
}

// Analyze produces one PersonaAnalysis per session, in order. Any LLM
// failure degrades that session to basic findings. Once the backend is
// found unavailable or without a usable model, the remaining sessions skip
// the LLM instead of waiting on it again.
func (r *Runner) Analyze(ctx context.Context, sessions []model.SessionSummary) ([]model.PersonaAnalysis, error) {
	skip := r.opts.SkipLLM
	var skipCause error // set once the backend is known to be unusable
	out := make([]model.PersonaAnalysis, 0, len(sessions))
	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: analyze: %w", err)
		}
		profile := r.profile(s)

		if !skip {
			pa, err := r.analyzer.Analyze(ctx, profile, s)
			if err == nil {
				r.record(ctx, model.SourceLLM)
				r.logger.Info("pipeline: llm analysis complete",
					"persona", s.Persona, "model", pa.Model, "action_items", len(pa.Analysis.ActionItems))
				out = append(out, pa)
				continue
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("pipeline: analyze %s: %w", s.Persona, err)
			}
			r.logger.Warn("pipeline: llm analysis failed, using basic findings",
				"persona", s.Persona, "error", err)
			if errors.Is(err, llm.ErrBackendUnavailable) || errors.Is(err, llm.ErrNoModel) {
				skip, skipCause = true, err
			}
			out = append(out, basic(s, err))
			r.record(ctx, model.SourceBasic)
			continue
		}

		out = append(out, basic(s, skipCause))
		r.record(ctx, model.SourceBasic)
	}
	return out, nil
}

// Run analyzes sessions, consolidates, and writes both report files. With no
// sessions it returns a Result with Produced false and no error.
func (r *Runner) Run(ctx context.Context, sessions []model.SessionSummary) (Result, error) {
	if len(sessions) == 0 {
		r.logger.Info("pipeline: no sessions to analyze")
		return Result{}, nil
	}
	analyses, err := r.Analyze(ctx, sessions)
	if err != nil {
		return Result{}, err
	}
	consolidated, ok := r.consolidator.Consolidate(analyses)
	if !ok {
		return Result{}, nil
	}

	jsonPath, err := report.WriteJSON(r.opts.ReportsDir, consolidated)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}
	mdPath, err := report.WriteMarkdown(r.opts.ReportsDir, consolidated)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}

	s := consolidated.Summary
	r.logger.Info("pipeline: report written",
		"run_id", consolidated.RunID,
		"personas", s.PersonaCount,
		"action_items", s.TotalActionItems,
		"high", s.HighPriority,
		"aggregate_score", s.AggregateScore,
		"json", jsonPath,
		"markdown", mdPath,
	)
	return Result{Produced: true, Report: consolidated, JSONPath: jsonPath, MarkdownPath: mdPath}, nil
}

// RunDir loads every saved session under resultsRoot and runs them.
func (r *Runner) RunDir(ctx context.Context, resultsRoot string) (Result, error) {
	sessions, err := observe.LoadAll(resultsRoot)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: %w", err)
	}
	return r.Run(ctx, sessions)
}

func (r *Runner) profile(s model.SessionSummary) model.PersonaProfile {
	if r.personas == nil {
		return model.PersonaProfile{ID: s.PersonaID, Name: s.Persona}
	}
	return r.personas.ForSession(s)
}

func (r *Runner) record(ctx context.Context, src model.AnalysisSource) {
	r.analyses.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(src))))
}

func basic(s model.SessionSummary, cause error) model.PersonaAnalysis {
	pa := model.PersonaAnalysis{
		Persona:        s.Persona,
		Source:         model.SourceBasic,
		Analysis:       findings.Extract(s),
		TotalTasks:     len(s.TaskResults),
		TasksSucceeded: s.TasksSucceeded,
	}
	if cause != nil {
		pa.Error = cause.Error()
	}
	return pa
}
