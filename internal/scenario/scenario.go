// Package scenario drives personas through the site under evaluation and
// feeds what happens into an observe.Collector.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/observe"
)

// Scenario is a scripted session for one persona.
type Scenario interface {
	Persona() model.PersonaProfile
	Run(ctx context.Context, b Browser, c *observe.Collector) error
}

// Outcome is the result of running one scenario.
type Outcome struct {
	Persona string
	Path    string // saved observations.json; empty when saving failed
	Err     error
}

// RunAll runs every scenario with its own collector under resultsRoot. A
// failing scenario is logged and recorded as a note; its session is still
// ended and saved. Only context cancellation stops the loop early.
func RunAll(ctx context.Context, scenarios []Scenario, b Browser, resultsRoot string, logger *slog.Logger) []Outcome {
	if logger == nil {
		logger = slog.Default()
	}
	outcomes := make([]Outcome, 0, len(scenarios))
	for _, s := range scenarios {
		if ctx.Err() != nil {
			break
		}
		profile := s.Persona()
		c := observe.New(profile, resultsRoot, observe.WithLogger(logger))
		c.Start()

		runErr := s.Run(ctx, b, c)
		if runErr != nil {
			logger.Error("scenario: run failed", "persona", profile.Name, "error", runErr)
			c.AddObservation(model.ObservationNote, fmt.Sprintf("Scenario aborted: %v", runErr), "")
		}
		c.End()

		path, saveErr := c.SaveToFile()
		if saveErr != nil {
			logger.Error("scenario: save session failed", "persona", profile.Name, "error", saveErr)
		} else {
			logger.Info("scenario: session saved", "persona", profile.Name, "path", path)
		}
		outcomes = append(outcomes, Outcome{Persona: profile.Name, Path: path, Err: errors.Join(runErr, saveErr)})
	}
	return outcomes
}

// step runs one navigation and records page load, console errors, and a
// screenshot when the browser supports it. A transport failure is returned;
// HTTP error statuses are not.
func step(ctx context.Context, b Browser, c *observe.Collector, url, shotName, shotLabel string) (Page, error) {
	p, err := b.Navigate(ctx, url)
	if err != nil {
		c.RecordError(err.Error())
		return nil, err
	}
	c.TrackPageLoad()
	for _, msg := range p.ConsoleErrors() {
		c.RecordError(msg)
	}
	if b.CanScreenshot() && shotName != "" {
		// Failures are already noted on the session.
		_, _ = c.CaptureScreenshot(ctx, p, shotName, shotLabel)
	}
	return p, nil
}

// task times fn and records its outcome. fn returns whether the persona
// succeeded and a short note.
func task(c *observe.Collector, name string, fn func() (bool, string)) {
	start := time.Now()
	ok, notes := fn()
	c.RecordTask(name, ok, time.Since(start), notes)
}
