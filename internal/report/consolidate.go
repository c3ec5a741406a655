// Package report merges per-persona analyses into one ranked, deduplicated
// report and writes it as action-items.json and summary.md.
package report

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/uxeval/internal/model"
)

// DefaultKeyPrefix is the number of issue-text runes used for deduplication.
const DefaultKeyPrefix = 50

// KeyFunc derives the merge key of an action item. Items with equal keys are
// treated as the same issue.
type KeyFunc func(model.ActionItem) string

// PrefixKey matches items with the same category whose lower-cased issue text
// shares the first n runes. Coarse on purpose: differently worded reports of
// one problem often start the same way.
func PrefixKey(n int) KeyFunc {
	return func(it model.ActionItem) string {
		issue := []rune(strings.ToLower(it.Issue))
		if len(issue) > n {
			issue = issue[:n]
		}
		return string(it.Category) + "|" + string(issue)
	}
}

// Consolidator merges analyses. The zero value is not usable; call New.
type Consolidator struct {
	key KeyFunc
	now func() time.Time
}

// Option configures a Consolidator.
type Option func(*Consolidator)

// WithKeyFunc replaces the default PrefixKey(DefaultKeyPrefix).
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *Consolidator) { c.key = fn }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *Consolidator) { c.now = now }
}

// New creates a Consolidator.
func New(opts ...Option) *Consolidator {
	c := &Consolidator{key: PrefixKey(DefaultKeyPrefix), now: time.Now}
	for _, fn := range opts {
		fn(c)
	}
	return c
}

// Consolidate merges analyses into a report. It returns false when there is
// nothing to report.
func (c *Consolidator) Consolidate(analyses []model.PersonaAnalysis) (*model.ConsolidatedReport, bool) {
	if len(analyses) == 0 {
		return nil, false
	}

	items := c.Merge(analyses)

	var summary model.ReportSummary
	var scoreSum float64
	for _, a := range analyses {
		summary.TotalTasks += a.TotalTasks
		summary.TasksSucceeded += a.TasksSucceeded
		scoreSum += a.Analysis.OverallScore
	}
	summary.PersonaCount = len(analyses)
	if summary.TotalTasks > 0 {
		summary.TaskPassRate = round1(float64(summary.TasksSucceeded) / float64(summary.TotalTasks) * 100)
	}
	summary.AggregateScore = round1(scoreSum / float64(len(analyses)))
	summary.TotalActionItems = len(items)
	for _, it := range items {
		switch it.Priority {
		case model.PriorityHigh:
			summary.HighPriority++
		case model.PriorityMedium:
			summary.MediumPriority++
		default:
			summary.LowPriority++
		}
	}

	return &model.ConsolidatedReport{
		RunID:           uuid.New(),
		GeneratedAt:     c.now().UTC(),
		Summary:         summary,
		ActionItems:     items,
		PersonaAnalyses: slices.Clone(analyses),
	}, true
}

// Merge deduplicates the action items of all analyses and returns them
// sorted: high priority first, then by number of reporting personas.
// The first occurrence of a key seeds the item; later occurrences add their
// persona and can only raise its priority.
func (c *Consolidator) Merge(analyses []model.PersonaAnalysis) []model.ActionItem {
	merged := []model.ActionItem{}
	index := make(map[string]int)

	for _, a := range analyses {
		for _, it := range a.Analysis.ActionItems {
			k := c.key(it)
			i, seen := index[k]
			if !seen {
				index[k] = len(merged)
				merged = append(merged, model.ActionItem{
					Category:       it.Category,
					Priority:       it.Priority,
					Issue:          it.Issue,
					Location:       it.Location,
					Recommendation: it.Recommendation,
					ReportedBy:     []string{a.Persona},
				})
				continue
			}
			existing := &merged[i]
			if !slices.Contains(existing.ReportedBy, a.Persona) {
				existing.ReportedBy = append(existing.ReportedBy, a.Persona)
			}
			if it.Priority.Outranks(existing.Priority) {
				existing.Priority = it.Priority
			}
		}
	}

	SortItems(merged)
	return merged
}

// SortItems orders items by priority rank, then by reporter count descending.
// The sort is stable so equal items keep first-seen order.
func SortItems(items []model.ActionItem) {
	slices.SortStableFunc(items, func(a, b model.ActionItem) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return cmp.Compare(len(b.ReportedBy), len(a.ReportedBy))
	})
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
