package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashita-ai/uxeval/internal/model"
)

// MarkdownFile is the file name of the human-readable digest.
const MarkdownFile = "summary.md"

// WriteMarkdown renders the report to <outDir>/summary.md and returns the path.
func WriteMarkdown(outDir string, report *model.ConsolidatedReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report: report is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("report: create output directory %s: %w", outDir, err)
	}

	path := filepath.Join(outDir, MarkdownFile)
	// #nosec G306 -- reports are meant to be shared
	if err := os.WriteFile(path, []byte(RenderMarkdown(report)), 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// RenderMarkdown renders the report as a Markdown digest: metrics, per-persona
// scores, and the high and medium priority items.
func RenderMarkdown(report *model.ConsolidatedReport) string {
	if report == nil {
		return ""
	}

	var sb strings.Builder
	s := report.Summary

	sb.WriteString("# UX Evaluation Report\n\n")
	fmt.Fprintf(&sb, "Generated %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	fmt.Fprintf(&sb, "| Personas Tested | %d |\n", s.PersonaCount)
	fmt.Fprintf(&sb, "| Tasks Passed | %d / %d (%.1f%%) |\n", s.TasksSucceeded, s.TotalTasks, s.TaskPassRate)
	fmt.Fprintf(&sb, "| Average Score | %.1f / 10 |\n", s.AggregateScore)
	fmt.Fprintf(&sb, "| Action Items | %d |\n", s.TotalActionItems)
	fmt.Fprintf(&sb, "| High Priority | %d |\n", s.HighPriority)
	fmt.Fprintf(&sb, "| Medium Priority | %d |\n", s.MediumPriority)
	fmt.Fprintf(&sb, "| Low Priority | %d |\n", s.LowPriority)
	sb.WriteString("\n")

	if len(report.PersonaAnalyses) > 0 {
		sb.WriteString("## Personas\n\n")
		sb.WriteString("| Persona | Analysis | Score | Top Issue |\n")
		sb.WriteString("|---------|----------|-------|-----------|\n")
		for _, a := range report.PersonaAnalyses {
			source := string(a.Source)
			if a.Model != "" {
				source += " (" + a.Model + ")"
			}
			fmt.Fprintf(&sb, "| %s | %s | %.1f | %s |\n",
				escapeMarkdown(a.Persona),
				escapeMarkdown(source),
				a.Analysis.OverallScore,
				escapeMarkdown(a.Analysis.TopFrustration),
			)
		}
		sb.WriteString("\n")
	}

	writeItems(&sb, "High Priority", report.ActionItems, model.PriorityHigh)
	writeItems(&sb, "Medium Priority", report.ActionItems, model.PriorityMedium)

	if s.LowPriority > 0 {
		fmt.Fprintf(&sb, "%d low priority item(s) are listed in %s.\n", s.LowPriority, JSONFile)
	}

	return sb.String()
}

func writeItems(sb *strings.Builder, title string, items []model.ActionItem, p model.Priority) {
	var n int
	for _, it := range items {
		if it.Priority != p {
			continue
		}
		if n == 0 {
			fmt.Fprintf(sb, "## %s\n\n", title)
		}
		n++
		fmt.Fprintf(sb, "### %d. %s\n\n", n, it.Issue)
		fmt.Fprintf(sb, "- Category: %s\n", it.Category)
		if it.Location != "" {
			fmt.Fprintf(sb, "- Location: %s\n", it.Location)
		}
		fmt.Fprintf(sb, "- Recommendation: %s\n", it.Recommendation)
		fmt.Fprintf(sb, "- Reported by: %s\n\n", strings.Join(it.ReportedBy, ", "))
	}
}

// escapeMarkdown escapes pipe characters which break tables.
func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
