package model

import (
	"time"

	"github.com/google/uuid"
)

// ObservationType classifies a free-text observation made during a session.
type ObservationType string

const (
	ObservationConfusion   ObservationType = "confusion"
	ObservationFrustration ObservationType = "frustration"
	ObservationSuccess     ObservationType = "success"
	ObservationNote        ObservationType = "note"
	// ObservationUnknown is accepted from producers that emit types this
	// package does not know yet. Consumers treat it like a note.
	ObservationUnknown ObservationType = "unknown"
)

// ParseObservationType maps s onto the closed set of observation types.
// Anything unrecognised becomes ObservationUnknown.
func ParseObservationType(s string) ObservationType {
	switch t := ObservationType(s); t {
	case ObservationConfusion, ObservationFrustration, ObservationSuccess, ObservationNote:
		return t
	default:
		return ObservationUnknown
	}
}

// Known reports whether t is one of the enumerated types (unknown excluded).
func (t ObservationType) Known() bool {
	return ParseObservationType(string(t)) != ObservationUnknown
}

// ConsoleError is a browser-console error seen while driving the site.
type ConsoleError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionMetrics holds the behavioral counters of one session.
type SessionMetrics struct {
	PageLoads       int            `json:"page_loads"`
	Clicks          int            `json:"clicks"`
	Searches        int            `json:"searches"`
	BackNavigations int            `json:"back_navigations"`
	Errors          []ConsoleError `json:"errors"`
	StartTime       *time.Time     `json:"start_time,omitempty"`
	EndTime         *time.Time     `json:"end_time,omitempty"`
}

// Observation is a timestamped note about what the persona experienced.
type Observation struct {
	Type        ObservationType `json:"type"`
	Description string          `json:"description"`
	Location    string          `json:"location,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// TaskResult is the outcome of one discrete task attempted by a persona.
// DurationMS is stored as given; negative values are not rejected.
type TaskResult struct {
	Name       string    `json:"name"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	Notes      string    `json:"notes,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Screenshot is one captured viewport. Data holds the base64-encoded image
// and may be empty when the capture exceeded the payload bound.
type Screenshot struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Context   string    `json:"context"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Data      string    `json:"data,omitempty"`
}

// SessionSummary is the serialized projection of one persona session.
// It is the unit exchanged with the analyzers and written as observations.json.
type SessionSummary struct {
	SessionID      uuid.UUID      `json:"session_id"`
	Persona        string         `json:"persona"`
	PersonaID      string         `json:"persona_id"`
	DurationMS     *int64         `json:"duration_ms"`
	Metrics        SessionMetrics `json:"metrics"`
	Observations   []Observation  `json:"observations"`
	TaskResults    []TaskResult   `json:"task_results"`
	TasksSucceeded int            `json:"tasks_succeeded"`
	TasksFailed    int            `json:"tasks_failed"`
	Screenshots    []Screenshot   `json:"screenshots"`
}
