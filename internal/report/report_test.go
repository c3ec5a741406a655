package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/uxeval/internal/model"
)

func fixtureReport() *model.ConsolidatedReport {
	return &model.ConsolidatedReport{
		RunID:       uuid.MustParse("6f1c2f7e-3f3a-4c59-9d55-0e6f3a1b2c3d"),
		GeneratedAt: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC),
		Summary: model.ReportSummary{
			PersonaCount: 2, TotalTasks: 8, TasksSucceeded: 6, TaskPassRate: 75,
			AggregateScore: 6.3, TotalActionItems: 3, HighPriority: 1, MediumPriority: 1, LowPriority: 1,
		},
		ActionItems: []model.ActionItem{
			{Category: model.CategoryUI, Priority: model.PriorityHigh, Issue: "Search box hidden on mobile", Location: "header", Recommendation: "Keep it visible", ReportedBy: []string{"Citizen", "Journalist"}},
			{Category: model.CategoryContent, Priority: model.PriorityMedium, Issue: "Agenda titles truncated", Recommendation: "Show full titles", ReportedBy: []string{"Journalist"}},
			{Category: model.CategoryContent, Priority: model.PriorityLow, Issue: "No 2019 minutes", Recommendation: "Upload", ReportedBy: []string{"Citizen"}},
		},
		PersonaAnalyses: []model.PersonaAnalysis{
			{Persona: "Citizen", Source: model.SourceLLM, Model: "qwen2.5vl:72b", Analysis: model.Analysis{OverallScore: 5.5, TopFrustration: "Search | filters"}},
			{Persona: "Journalist", Source: model.SourceBasic, Analysis: model.Analysis{OverallScore: 7, TopFrustration: "None identified"}},
		},
	}
}

func TestRenderMarkdown(t *testing.T) {
	md := RenderMarkdown(fixtureReport())

	assert.True(t, strings.HasPrefix(md, "# UX Evaluation Report\n"))
	assert.Contains(t, md, "| Personas Tested | 2 |")
	assert.Contains(t, md, "| Tasks Passed | 6 / 8 (75.0%) |")
	assert.Contains(t, md, "| Average Score | 6.3 / 10 |")
	assert.Contains(t, md, "| Citizen | llm (qwen2.5vl:72b) | 5.5 | Search \\| filters |")
	assert.Contains(t, md, "| Journalist | basic | 7.0 | None identified |")

	high := strings.Index(md, "## High Priority")
	medium := strings.Index(md, "## Medium Priority")
	require.Greater(t, high, 0)
	require.Greater(t, medium, high)
	assert.Contains(t, md, "### 1. Search box hidden on mobile")
	assert.Contains(t, md, "- Reported by: Citizen, Journalist")
	assert.Contains(t, md, "- Recommendation: Show full titles")
	assert.NotContains(t, md, "No 2019 minutes", "low priority items are only counted")
	assert.Contains(t, md, "1 low priority item(s)")
}

func TestRenderMarkdownNil(t *testing.T) {
	assert.Empty(t, RenderMarkdown(nil))
}

func TestWriteReports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	r := fixtureReport()

	jsonPath, err := WriteJSON(dir, r)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, JSONFile), jsonPath)

	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"run_id\"", "pretty-printed")

	back, err := ReadJSON(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, r.Summary, back.Summary)
	assert.Equal(t, r.ActionItems, back.ActionItems)

	mdPath, err := WriteMarkdown(dir, r)
	require.NoError(t, err)
	assert.FileExists(t, mdPath)
}

func TestWriteRequiresReport(t *testing.T) {
	_, err := WriteJSON(t.TempDir(), nil)
	assert.Error(t, err)
	_, err = WriteMarkdown(t.TempDir(), nil)
	assert.Error(t, err)
}
