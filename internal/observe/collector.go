// Package observe records the telemetry of a single persona session: counters,
// console errors, free-text observations, task outcomes, and screenshots.
//
// A Collector owns its session state exclusively. It is created per persona,
// started, fed by the scenario driving the site, and finalized with End and
// SaveToFile. Summary may be called at any point and never fails.
package observe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/uxeval/internal/model"
)

// SummaryFile is the name of the serialized session summary in a persona directory.
const SummaryFile = "observations.json"

// DefaultMaxScreenshotBytes bounds the raw image size embedded in a summary.
// Larger captures are kept on disk but sent without payload.
const DefaultMaxScreenshotBytes = 4 * 1024 * 1024

// RenderTarget is the page surface a screenshot is taken from.
type RenderTarget interface {
	Screenshot(ctx context.Context) ([]byte, error)
	URL() string
	Title() string
}

// Option configures a Collector.
type Option func(*Collector)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// WithLogger sets the logger used for capture defects.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithMaxScreenshotBytes overrides DefaultMaxScreenshotBytes.
func WithMaxScreenshotBytes(n int) Option {
	return func(c *Collector) { c.maxScreenshotBytes = n }
}

// sessionState is everything mutable about one session.
type sessionState struct {
	id           uuid.UUID
	metrics      model.SessionMetrics
	observations []model.Observation
	tasks        []model.TaskResult
	screenshots  []model.Screenshot
	last         time.Time // latest timestamp handed out
}

// Collector accumulates the telemetry of one persona session.
type Collector struct {
	profile            model.PersonaProfile
	dir                string
	now                func() time.Time
	logger             *slog.Logger
	maxScreenshotBytes int

	mu    sync.Mutex
	state sessionState
}

// New creates a collector for profile. Session files are written under
// <resultsRoot>/<persona slug>/.
func New(profile model.PersonaProfile, resultsRoot string, opts ...Option) *Collector {
	c := &Collector{
		profile:            profile,
		dir:                filepath.Join(resultsRoot, PersonaDir(profile)),
		now:                time.Now,
		logger:             slog.Default(),
		maxScreenshotBytes: DefaultMaxScreenshotBytes,
		state:              sessionState{id: uuid.New()},
	}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// PersonaDir returns the directory name a persona's session is stored under.
func PersonaDir(profile model.PersonaProfile) string {
	if profile.ID != "" {
		return Slug(profile.ID)
	}
	return Slug(profile.Name)
}

// Dir returns the session directory.
func (c *Collector) Dir() string { return c.dir }

// Profile returns the persona this collector records.
func (c *Collector) Profile() model.PersonaProfile { return c.profile }

// stamp returns the current time, clamped so timestamps never go backwards
// within the session. Caller must hold c.mu.
func (c *Collector) stamp() time.Time {
	t := c.now()
	if t.Before(c.state.last) {
		t = c.state.last
	}
	c.state.last = t
	return t
}

// Start records the session start time.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.stamp()
	c.state.metrics.StartTime = &t
}

// End records the session end time and returns the elapsed milliseconds.
// A second call overwrites the end time. Returns nil if Start was never called.
func (c *Collector) End() *int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.stamp()
	c.state.metrics.EndTime = &t
	return c.durationLocked()
}

func (c *Collector) durationLocked() *int64 {
	m := c.state.metrics
	if m.StartTime == nil || m.EndTime == nil {
		return nil
	}
	d := m.EndTime.Sub(*m.StartTime).Milliseconds()
	return &d
}

// RecordTask appends a task outcome. duration is stored as given.
func (c *Collector) RecordTask(name string, success bool, duration time.Duration, notes string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.tasks = append(c.state.tasks, model.TaskResult{
		Name:       name,
		Success:    success,
		DurationMS: duration.Milliseconds(),
		Notes:      notes,
		Timestamp:  c.stamp(),
	})
}

// AddObservation appends an observation. Unrecognised types are stored as
// model.ObservationUnknown.
func (c *Collector) AddObservation(typ model.ObservationType, description, location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addObservationLocked(model.ParseObservationType(string(typ)), description, location)
}

func (c *Collector) addObservationLocked(typ model.ObservationType, description, location string) {
	c.state.observations = append(c.state.observations, model.Observation{
		Type:        typ,
		Description: description,
		Location:    location,
		Timestamp:   c.stamp(),
	})
}

// TrackPageLoad increments the page-load counter.
func (c *Collector) TrackPageLoad() { c.bump(&c.state.metrics.PageLoads) }

// TrackClick increments the click counter.
func (c *Collector) TrackClick() { c.bump(&c.state.metrics.Clicks) }

// TrackSearch increments the search counter.
func (c *Collector) TrackSearch() { c.bump(&c.state.metrics.Searches) }

// TrackBackNavigation increments the back-navigation counter.
func (c *Collector) TrackBackNavigation() { c.bump(&c.state.metrics.BackNavigations) }

func (c *Collector) bump(counter *int) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// RecordError appends a console error. Safe to call from event callbacks.
func (c *Collector) RecordError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.metrics.Errors = append(c.state.metrics.Errors, model.ConsoleError{
		Message:   message,
		Timestamp: c.stamp(),
	})
}

// CaptureScreenshot takes a viewport capture from target, writes it to the
// session's screenshots directory, and appends the record. A failed capture
// is also recorded as a note so the defect shows up in the analysis; the
// error is returned for the caller to decide whether to continue.
func (c *Collector) CaptureScreenshot(ctx context.Context, target RenderTarget, name, label string) (model.Screenshot, error) {
	img, err := target.Screenshot(ctx)
	if err != nil {
		c.screenshotDefect(name, err)
		return model.Screenshot{}, fmt.Errorf("observe: capture screenshot %q: %w", name, err)
	}

	c.mu.Lock()
	ts := c.stamp()
	c.mu.Unlock()

	dir := filepath.Join(c.dir, "screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.screenshotDefect(name, err)
		return model.Screenshot{}, fmt.Errorf("observe: create screenshot dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%d-%s.png", ts.UnixMilli(), Slug(name)))
	// #nosec G306 -- screenshots are intentionally world-readable
	if err := os.WriteFile(path, img, 0o644); err != nil {
		c.screenshotDefect(name, err)
		return model.Screenshot{}, fmt.Errorf("observe: write screenshot %s: %w", path, err)
	}

	stored, err := os.ReadFile(path) //nolint:gosec // path is built from the session dir
	if err != nil {
		c.screenshotDefect(name, err)
		return model.Screenshot{}, fmt.Errorf("observe: read back screenshot %s: %w", path, err)
	}

	shot := model.Screenshot{
		Timestamp: ts,
		Name:      name,
		Context:   label,
		URL:       target.URL(),
		Title:     target.Title(),
		Path:      path,
	}
	if len(stored) <= c.maxScreenshotBytes {
		shot.Data = base64.StdEncoding.EncodeToString(stored)
	} else {
		c.logger.Warn("observe: screenshot payload over limit, stored without data",
			"persona", c.profile.Name, "name", name, "bytes", len(stored), "limit", c.maxScreenshotBytes)
	}

	c.mu.Lock()
	c.state.screenshots = append(c.state.screenshots, shot)
	c.mu.Unlock()
	return shot, nil
}

func (c *Collector) screenshotDefect(name string, err error) {
	c.logger.Warn("observe: screenshot failed", "persona", c.profile.Name, "name", name, "error", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addObservationLocked(model.ObservationNote, fmt.Sprintf("Screenshot %q could not be captured: %v", name, err), "")
}

// Summary returns a snapshot of the session. It is safe to call mid-session;
// the returned slices are copies.
func (c *Collector) Summary() model.SessionSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	var succeeded, failed int
	for _, t := range c.state.tasks {
		if t.Success {
			succeeded++
		} else {
			failed++
		}
	}

	metrics := c.state.metrics
	metrics.Errors = append([]model.ConsoleError{}, c.state.metrics.Errors...)

	return model.SessionSummary{
		SessionID:      c.state.id,
		Persona:        c.profile.Name,
		PersonaID:      c.profile.ID,
		DurationMS:     c.durationLocked(),
		Metrics:        metrics,
		Observations:   append([]model.Observation{}, c.state.observations...),
		TaskResults:    append([]model.TaskResult{}, c.state.tasks...),
		TasksSucceeded: succeeded,
		TasksFailed:    failed,
		Screenshots:    append([]model.Screenshot{}, c.state.screenshots...),
	}
}

// SaveToFile writes Summary() to <dir>/observations.json, replacing any
// previous file for this persona, and returns the path.
func (c *Collector) SaveToFile() (string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("observe: create session dir %s: %w", c.dir, err)
	}
	data, err := json.MarshalIndent(c.Summary(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("observe: marshal summary: %w", err)
	}
	path := filepath.Join(c.dir, SummaryFile)
	// #nosec G306 -- session files are not sensitive
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("observe: write summary %s: %w", path, err)
	}
	return path, nil
}
