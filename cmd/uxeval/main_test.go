package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/uxeval/internal/observe"
	"github.com/ashita-ai/uxeval/internal/persona"
	"github.com/ashita-ai/uxeval/internal/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) (results, reports string) {
	t.Helper()
	results = filepath.Join(t.TempDir(), "results")
	reports = filepath.Join(t.TempDir(), "reports")
	t.Setenv("UXEVAL_RESULTS_DIR", results)
	t.Setenv("UXEVAL_REPORTS_DIR", reports)
	// Nothing listens here; LLM paths must degrade rather than hang.
	t.Setenv("OLLAMA_URL", "http://127.0.0.1:1")
	return results, reports
}

func TestReportCommand_FromSavedSessions(t *testing.T) {
	results, reports := isolate(t)
	c := observe.New(persona.Defaults()[0], results)
	c.Start()
	c.RecordTask("Find recent meetings", false, 0, "no meetings link")
	c.End()
	_, err := c.SaveToFile()
	require.NoError(t, err)

	out, err := execute(t, "report", "--skip-llm")
	require.NoError(t, err)
	assert.Contains(t, out, report.MarkdownFile)

	r, err := report.ReadJSON(filepath.Join(reports, report.JSONFile))
	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.PersonaCount)
	assert.Equal(t, 1, r.Summary.HighPriority)
}

func TestReportCommand_NothingToReport(t *testing.T) {
	_, reports := isolate(t)

	out, err := execute(t, "report", "--skip-llm")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoFileExists(t, filepath.Join(reports, report.JSONFile))
}

func TestRunCommand_LLMDownDegrades(t *testing.T) {
	_, reports := isolate(t)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html lang="en"><head><title>Archive</title></head><body><h1>Archive</h1></body></html>`))
	}))
	defer site.Close()
	t.Setenv("SITE_BASE_URL", site.URL)
	t.Setenv("UXEVAL_MAX_RETRIES", "0")

	_, err := execute(t, "run")
	require.NoError(t, err)

	r, err := report.ReadJSON(filepath.Join(reports, report.JSONFile))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Summary.PersonaCount)
	for _, pa := range r.PersonaAnalyses {
		assert.Equal(t, "basic", string(pa.Source))
		assert.NotEmpty(t, pa.Error)
	}
}

func TestScheduleCommand_InvalidCron(t *testing.T) {
	isolate(t)
	_, err := execute(t, "schedule", "--cron", "not a cron")
	assert.ErrorContains(t, err, "not a cron")
}

func TestInvalidConfigFails(t *testing.T) {
	isolate(t)
	t.Setenv("UXEVAL_MAX_TOKENS", "many")
	_, err := execute(t, "report")
	assert.ErrorContains(t, err, "UXEVAL_MAX_TOKENS")
}

func TestLoadPersonas(t *testing.T) {
	ps, err := loadPersonas("")
	require.NoError(t, err)
	assert.Len(t, ps, 3)

	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte("personas:\n  - id: student\n    name: Civics Student\n"), 0o644))
	ps, err = loadPersonas(path)
	require.NoError(t, err)
	assert.Len(t, ps, 4)

	_, err = loadPersonas(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "warn")
	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, l.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, newLogger(&buf, "debug").Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, newLogger(&buf, "").Enabled(context.Background(), slog.LevelInfo))
}
