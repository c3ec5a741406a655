package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/prompt"
	"github.com/ashita-ai/uxeval/internal/telemetry"
)

// Config controls model selection and request composition.
type Config struct {
	Primary     ModelSpec
	Fallback    ModelSpec
	MaxImages   int           // screenshots attached per request, vision models only
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration // per attempt
	Retry       RetryPolicy
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Primary:     DefaultPrimary,
		Fallback:    DefaultFallback,
		MaxImages:   5,
		Temperature: 0.3,
		MaxTokens:   2000,
		Timeout:     120 * time.Second,
		Retry:       DefaultRetryPolicy(),
	}
}

var tracer = otel.Tracer("uxeval/llm")

// Analyzer produces a PersonaAnalysis for a session using the model server.
type Analyzer struct {
	client *Client
	cfg    Config
	logger *slog.Logger

	attempts metric.Int64Counter
	duration metric.Float64Histogram
}

// NewAnalyzer creates an Analyzer. Metrics are registered on the global meter
// provider; with telemetry disabled they are no-ops.
func NewAnalyzer(client *Client, cfg Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	meter := telemetry.Meter("uxeval/llm")
	attempts, _ := meter.Int64Counter("uxeval.llm.attempts",
		metric.WithDescription("Generate attempts by outcome"),
	)
	duration, _ := meter.Float64Histogram("uxeval.llm.duration",
		metric.WithDescription("Time per generate attempt (ms)"),
		metric.WithUnit("ms"),
	)
	return &Analyzer{
		client:   client,
		cfg:      cfg,
		logger:   logger,
		attempts: attempts,
		duration: duration,
	}
}

// SelectModel checks backend health and picks the primary model when it is
// loaded, else the fallback. A missing model is not retried.
func (a *Analyzer) SelectModel(ctx context.Context) (ModelSpec, error) {
	loaded, err := a.client.Models(ctx)
	if err != nil {
		return ModelSpec{}, err
	}
	spec, ok := selectModel(loaded, a.cfg.Primary, a.cfg.Fallback)
	if !ok {
		return ModelSpec{}, fmt.Errorf("%w: wanted %q or %q, server has %v",
			ErrNoModel, a.cfg.Primary.Name, a.cfg.Fallback.Name, loaded)
	}
	if spec.Name != a.cfg.Primary.Name {
		a.logger.Warn("llm: primary model not loaded, using fallback",
			"primary", a.cfg.Primary.Name, "fallback", spec.Name, "vision", spec.Vision)
	} else {
		a.logger.Info("llm: model selected", "model", spec.Name, "vision", spec.Vision)
	}
	return spec, nil
}

// Analyze runs the full analysis for one session: health check, model
// selection, prompt composition, and generate-and-validate with retries.
func (a *Analyzer) Analyze(ctx context.Context, profile model.PersonaProfile, s model.SessionSummary) (model.PersonaAnalysis, error) {
	ctx, span := tracer.Start(ctx, "llm.Analyze", trace.WithAttributes(
		attribute.String("uxeval.persona", s.Persona),
	))
	defer span.End()

	result, err := a.analyze(ctx, profile, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return model.PersonaAnalysis{}, err
	}
	span.SetAttributes(attribute.String("uxeval.model", result.Model))
	return result, nil
}

func (a *Analyzer) analyze(ctx context.Context, profile model.PersonaProfile, s model.SessionSummary) (model.PersonaAnalysis, error) {
	spec, err := a.SelectModel(ctx)
	if err != nil {
		return model.PersonaAnalysis{}, err
	}

	req := GenerateRequest{
		Model:       spec.Name,
		Prompt:      prompt.Build(profile, s),
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	}
	if spec.Vision {
		req.Images = screenshotPayloads(s.Screenshots, a.cfg.MaxImages)
	}

	var (
		raw      string
		analysis model.Analysis
	)
	err = a.cfg.Retry.Do(ctx, func(ctx context.Context, attempt int) error {
		var callErr error
		raw, analysis, callErr = a.attempt(ctx, req)
		if callErr != nil {
			a.logger.Warn("llm: attempt failed",
				"persona", s.Persona, "model", spec.Name, "attempt", attempt, "error", callErr)
		}
		return callErr
	})
	if err != nil {
		return model.PersonaAnalysis{}, err
	}

	return model.PersonaAnalysis{
		Persona:        s.Persona,
		Source:         model.SourceLLM,
		Model:          spec.Name,
		Analysis:       analysis,
		RawResponse:    raw,
		TotalTasks:     len(s.TaskResults),
		TasksSucceeded: s.TasksSucceeded,
	}, nil
}

// attempt makes one bounded generate call and validates the response.
func (a *Analyzer) attempt(ctx context.Context, req GenerateRequest) (string, model.Analysis, error) {
	callCtx := ctx
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := a.client.Generate(callCtx, req)
	var analysis model.Analysis
	if err == nil {
		analysis, err = ParseAnalysis(raw)
	}

	outcome := "ok"
	switch {
	case errors.Is(err, ErrMalformedResponse):
		outcome = "malformed"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("model", req.Model),
		attribute.String("outcome", outcome),
	)
	a.attempts.Add(ctx, 1, attrs)
	a.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return raw, analysis, err
}

// screenshotPayloads returns up to limit non-empty payloads in capture order.
func screenshotPayloads(shots []model.Screenshot, limit int) []string {
	var out []string
	for _, sh := range shots {
		if len(out) >= limit {
			break
		}
		if sh.Data == "" {
			continue
		}
		out = append(out, sh.Data)
	}
	return out
}
