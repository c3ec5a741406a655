// Package prompt builds the analysis prompt sent to the model for one
// persona session.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ashita-ai/uxeval/internal/model"
)

// NoObservations is written in place of the observation list when a session
// recorded none.
const NoObservations = "None recorded"

// instructions is the fixed output contract. The LLM client rejects any
// response that is not a JSON object with an action_items array.
const instructions = `Based on this session, identify usability and content problems on the council meeting archive website.

Use exactly two categories:
- ui: layout, navigation, search, controls, accessibility, or anything about how the site works
- content: missing, wrong, unclear, or hard-to-find information

Use exactly three priority levels:
- high: blocks the persona or causes a task to fail
- medium: slows the persona down or causes confusion
- low: minor friction or polish

Return ONLY a JSON object with this exact structure, no prose before or after it:
{
  "action_items": [
    {
      "category": "ui" or "content",
      "priority": "high" or "medium" or "low",
      "issue": "short description of the problem",
      "location": "page or element where it happens",
      "recommendation": "specific fix"
    }
  ],
  "overall_score": <number from 1 to 10>,
  "top_frustration": "the single biggest problem for this persona"
}`

// Build returns the analysis prompt for profile's session.
func Build(profile model.PersonaProfile, s model.SessionSummary) string {
	var sb strings.Builder

	sb.WriteString("You are a UX analyst reviewing a usability test session.\n\n")

	sb.WriteString("## Persona\n")
	fmt.Fprintf(&sb, "Name: %s\n", profile.Name)
	fmt.Fprintf(&sb, "Background: %s\n", profile.Background)
	fmt.Fprintf(&sb, "Goals: %s\n", joinOrNone(profile.Goals))
	fmt.Fprintf(&sb, "Typical behaviors: %s\n\n", joinOrNone(profile.Behaviors))

	sb.WriteString("## Task Results\n")
	if len(s.TaskResults) == 0 {
		sb.WriteString("No tasks recorded\n")
	}
	for i, t := range s.TaskResults {
		outcome := "FAIL"
		if t.Success {
			outcome = "PASS"
		}
		fmt.Fprintf(&sb, "Task %d: %s - %s (%.1fs)", i+1, t.Name, outcome, float64(t.DurationMS)/1000)
		if t.Notes != "" {
			fmt.Fprintf(&sb, " - %s", t.Notes)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Session Metrics\n")
	fmt.Fprintf(&sb, "Duration: %s\n", formatDuration(s.DurationMS))
	fmt.Fprintf(&sb, "Tasks: %d succeeded, %d failed\n", s.TasksSucceeded, s.TasksFailed)
	fmt.Fprintf(&sb, "Page loads: %d\n", s.Metrics.PageLoads)
	fmt.Fprintf(&sb, "Clicks: %d\n", s.Metrics.Clicks)
	fmt.Fprintf(&sb, "Searches: %d\n", s.Metrics.Searches)
	fmt.Fprintf(&sb, "Back navigations: %d\n", s.Metrics.BackNavigations)
	fmt.Fprintf(&sb, "Console errors: %d\n\n", len(s.Metrics.Errors))

	sb.WriteString("## Observations\n")
	if len(s.Observations) == 0 {
		sb.WriteString(NoObservations + "\n")
	}
	for _, o := range s.Observations {
		fmt.Fprintf(&sb, "- [%s] %s", o.Type, o.Description)
		if o.Location != "" {
			fmt.Fprintf(&sb, " (at %s)", o.Location)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(instructions)
	return sb.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none listed"
	}
	return strings.Join(items, "; ")
}

func formatDuration(ms *int64) string {
	if ms == nil {
		return "unknown"
	}
	return fmt.Sprintf("%.1fs", float64(*ms)/1000)
}
