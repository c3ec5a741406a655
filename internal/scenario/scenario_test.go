package scenario

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/uxeval/internal/model"
	"github.com/ashita-ai/uxeval/internal/observe"
	"github.com/ashita-ai/uxeval/internal/persona"
)

const goodHome = `<!doctype html>
<html lang="en"><head><title> Council Archive </title></head>
<body>
<h1>Council Archive</h1>
<form action="/search"><label for="q">Search</label><input id="q" name="q" type="search"></form>
<a href="/meetings">Recent Meetings</a>
<img src="/seal.png" alt="City seal">
</body></html>`

const badHome = `<html><head><title>Archive</title></head>
<body>
<img src="/banner.png">
<input name="email">
<a href="/about">About</a>
</body></html>`

func site(home string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(home))
	})
	mux.HandleFunc("/meetings", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/meetings/2026-09-01">Sep 1</a></body></html>`))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/meetings/2026-09-01#vote">Vote on item 4</a></body></html>`))
	})
	return httptest.NewServer(mux)
}

func TestHTTPBrowserNavigate(t *testing.T) {
	srv := site(goodHome)
	defer srv.Close()

	b := NewHTTPBrowser(5 * time.Second)
	assert.False(t, b.CanScreenshot())

	p, err := b.Navigate(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, p.Status())
	assert.Equal(t, "Council Archive", p.Title())
	assert.Empty(t, p.ConsoleErrors())

	_, err = p.Screenshot(context.Background())
	assert.ErrorIs(t, err, ErrScreenshotUnsupported)
}

func TestHTTPBrowserNon2xxIsConsoleError(t *testing.T) {
	srv := site(goodHome)
	defer srv.Close()

	p, err := NewHTTPBrowser(5*time.Second).Navigate(context.Background(), srv.URL+"/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, p.Status())
	require.Len(t, p.ConsoleErrors(), 1)
	assert.Contains(t, p.ConsoleErrors()[0], "404")
}

func TestHTTPBrowserUnreachable(t *testing.T) {
	srv := site(goodHome)
	url := srv.URL
	srv.Close()

	_, err := NewHTTPBrowser(time.Second).Navigate(context.Background(), url)
	assert.Error(t, err)
}

func loadSessions(t *testing.T, root string) map[string]model.SessionSummary {
	t.Helper()
	sessions, err := observe.LoadAll(root)
	require.NoError(t, err)
	out := map[string]model.SessionSummary{}
	for _, s := range sessions {
		out[s.PersonaID] = s
	}
	return out
}

func TestSmokeScenarios_GoodSite(t *testing.T) {
	srv := site(goodHome)
	defer srv.Close()
	root := t.TempDir()

	outcomes := RunAll(context.Background(), Smoke(srv.URL, persona.Defaults()), NewHTTPBrowser(5*time.Second), root, nil)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.NoError(t, o.Err, o.Persona)
		assert.FileExists(t, o.Path)
	}

	sessions := loadSessions(t, root)
	require.Len(t, sessions, 3)

	citizen := sessions["concerned-citizen"]
	assert.Equal(t, 3, citizen.TasksSucceeded)
	assert.Zero(t, citizen.TasksFailed)
	assert.Equal(t, 1, citizen.Metrics.Clicks)
	assert.Equal(t, 2, citizen.Metrics.PageLoads)
	assert.NotNil(t, citizen.DurationMS)

	journalist := sessions["journalist"]
	assert.Equal(t, 2, journalist.TasksSucceeded)
	assert.Equal(t, 1, journalist.Metrics.Searches)

	auditor := sessions["accessibility-auditor"]
	assert.Equal(t, 4, auditor.TasksSucceeded)
	assert.Empty(t, auditor.Observations)
}

func TestSmokeScenarios_BadSite(t *testing.T) {
	srv := site(badHome)
	defer srv.Close()
	root := t.TempDir()

	RunAll(context.Background(), Smoke(srv.URL, persona.Defaults()), NewHTTPBrowser(5*time.Second), root, nil)
	sessions := loadSessions(t, root)

	citizen := sessions["concerned-citizen"]
	assert.Equal(t, 1, citizen.TasksFailed)
	require.NotEmpty(t, citizen.Observations)
	assert.Equal(t, model.ObservationConfusion, citizen.Observations[0].Type)

	journalist := sessions["journalist"]
	assert.Equal(t, 1, journalist.TasksFailed, "search box missing but search endpoint works")

	auditor := sessions["accessibility-auditor"]
	assert.Equal(t, 4, auditor.TasksFailed)
	var descs []string
	for _, o := range auditor.Observations {
		descs = append(descs, o.Description)
	}
	assert.Contains(t, descs, "The html element is missing a lang attribute")
	assert.Contains(t, descs, "Image /banner.png is missing alt text")
	assert.Contains(t, descs, `Input "email" has no label`)
	assert.Contains(t, descs, "No h1 heading on the page")
}

type failingScenario struct{ profile model.PersonaProfile }

func (f failingScenario) Persona() model.PersonaProfile { return f.profile }
func (f failingScenario) Run(context.Context, Browser, *observe.Collector) error {
	return errors.New("browser crashed")
}

func TestRunAll_FailingScenarioStillSaved(t *testing.T) {
	root := t.TempDir()
	profile := model.PersonaProfile{ID: "crashy", Name: "Crashy"}

	outcomes := RunAll(context.Background(), []Scenario{failingScenario{profile}}, NewHTTPBrowser(time.Second), root, nil)
	require.Len(t, outcomes, 1)
	assert.ErrorContains(t, outcomes[0].Err, "browser crashed")
	assert.Equal(t, filepath.Join(root, "crashy", observe.SummaryFile), outcomes[0].Path)

	s, err := observe.LoadSummary(outcomes[0].Path)
	require.NoError(t, err)
	require.Len(t, s.Observations, 1)
	assert.Contains(t, s.Observations[0].Description, "browser crashed")
	assert.NotNil(t, s.DurationMS)
}

func TestRunAll_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := RunAll(ctx, []Scenario{failingScenario{model.PersonaProfile{ID: "x", Name: "X"}}}, NewHTTPBrowser(time.Second), t.TempDir(), nil)
	assert.Empty(t, outcomes)
}

func TestResolve(t *testing.T) {
	got, err := resolve("http://archive.test/council/", "meetings?page=2")
	require.NoError(t, err)
	assert.Equal(t, "http://archive.test/council/meetings?page=2", got)
}
