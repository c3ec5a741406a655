// Package findings derives action items from a session with fixed rules.
// It is the fallback when no model is available and never fails, so a
// report can always be produced.
package findings

import (
	"fmt"
	"math"
	"regexp"

	"github.com/ashita-ai/uxeval/internal/model"
)

// NoneIdentified is the top frustration when no high-priority item exists.
const NoneIdentified = "None identified"

// absencePattern flags notes that describe something missing.
var absencePattern = regexp.MustCompile(`(?i)missing|lack|\bno\b`)

// Extract applies the rules to s:
//   - frustration observation: ui/high
//   - confusion observation: ui/medium
//   - note (or unknown) observation mentioning an absence: content/low
//   - failed task: ui/high, using the task notes as recommendation when set
func Extract(s model.SessionSummary) model.Analysis {
	items := []model.ActionItem{}

	for _, o := range s.Observations {
		switch o.Type {
		case model.ObservationFrustration:
			items = append(items, model.ActionItem{
				Category:       model.CategoryUI,
				Priority:       model.PriorityHigh,
				Issue:          o.Description,
				Location:       o.Location,
				Recommendation: "Investigate and simplify this interaction",
			})
		case model.ObservationConfusion:
			items = append(items, model.ActionItem{
				Category:       model.CategoryUI,
				Priority:       model.PriorityMedium,
				Issue:          o.Description,
				Location:       o.Location,
				Recommendation: "Clarify labels or add guidance at this point",
			})
		case model.ObservationSuccess:
		default:
			if absencePattern.MatchString(o.Description) {
				items = append(items, model.ActionItem{
					Category:       model.CategoryContent,
					Priority:       model.PriorityLow,
					Issue:          o.Description,
					Location:       o.Location,
					Recommendation: "Add or surface the missing content",
				})
			}
		}
	}

	for _, t := range s.TaskResults {
		if t.Success {
			continue
		}
		rec := t.Notes
		if rec == "" {
			rec = "Investigate why this task could not be completed"
		}
		items = append(items, model.ActionItem{
			Category:       model.CategoryUI,
			Priority:       model.PriorityHigh,
			Issue:          fmt.Sprintf("Task failed: %s", t.Name),
			Recommendation: rec,
		})
	}

	top := NoneIdentified
	for _, it := range items {
		if it.Priority == model.PriorityHigh {
			top = it.Issue
			break
		}
	}

	return model.Analysis{
		ActionItems:    items,
		OverallScore:   Score(s.TaskResults),
		TopFrustration: top,
	}
}

// Score is the task pass fraction scaled to 10 and rounded to one decimal.
// Zero tasks score 0.
func Score(tasks []model.TaskResult) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var ok int
	for _, t := range tasks {
		if t.Success {
			ok++
		}
	}
	return Round1(float64(ok) / float64(len(tasks)) * 10)
}

// Round1 rounds x to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}
