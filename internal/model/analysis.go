package model

import (
	"time"

	"github.com/google/uuid"
)

// Category is the area an action item belongs to.
type Category string

const (
	CategoryUI      Category = "ui"
	CategoryContent Category = "content"
)

// Priority is the urgency of an action item.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank of a priority (lower = more urgent).
// Unknown priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Outranks returns true if p is strictly more urgent than other.
func (p Priority) Outranks(other Priority) bool {
	return p.Rank() < other.Rank()
}

// ActionItem is a single actionable finding.
type ActionItem struct {
	Category       Category `json:"category"`
	Priority       Priority `json:"priority"`
	Issue          string   `json:"issue"`
	Location       string   `json:"location"`
	Recommendation string   `json:"recommendation"`
	ReportedBy     []string `json:"reported_by,omitempty"`
}

// Analysis is the structured result for one persona session. The JSON shape
// is the output contract given to the model.
type Analysis struct {
	ActionItems    []ActionItem `json:"action_items"`
	OverallScore   float64      `json:"overall_score"`
	TopFrustration string       `json:"top_frustration"`
}

// AnalysisSource records which analyzer produced an Analysis.
type AnalysisSource string

const (
	SourceLLM   AnalysisSource = "llm"
	SourceBasic AnalysisSource = "basic"
)

// PersonaAnalysis is the per-persona analysis kept in the report for audit.
type PersonaAnalysis struct {
	Persona     string         `json:"persona"`
	Source      AnalysisSource `json:"source"`
	Model       string         `json:"model,omitempty"`
	Analysis    Analysis       `json:"analysis"`
	RawResponse string         `json:"raw_response,omitempty"`
	// Error is the LLM failure that caused a fallback, if any.
	Error string `json:"error,omitempty"`
	// Tasks counters are copied from the session so the report can be built
	// from analyses alone.
	TotalTasks     int `json:"total_tasks"`
	TasksSucceeded int `json:"tasks_succeeded"`
}

// ReportSummary holds the aggregate metrics of a consolidated report.
type ReportSummary struct {
	PersonaCount     int     `json:"persona_count"`
	TotalTasks       int     `json:"total_tasks"`
	TasksSucceeded   int     `json:"tasks_succeeded"`
	TaskPassRate     float64 `json:"task_pass_rate"`
	AggregateScore   float64 `json:"aggregate_score"`
	TotalActionItems int     `json:"total_action_items"`
	HighPriority     int     `json:"high_priority"`
	MediumPriority   int     `json:"medium_priority"`
	LowPriority      int     `json:"low_priority"`
}

// ConsolidatedReport is the terminal artifact of a report run.
type ConsolidatedReport struct {
	RunID           uuid.UUID         `json:"run_id"`
	GeneratedAt     time.Time         `json:"generated_at"`
	Summary         ReportSummary     `json:"summary"`
	ActionItems     []ActionItem      `json:"action_items"`
	PersonaAnalyses []PersonaAnalysis `json:"persona_analyses"`
}
