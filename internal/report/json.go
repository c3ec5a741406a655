package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ashita-ai/uxeval/internal/model"
)

// JSONFile is the file name of the machine-readable report.
const JSONFile = "action-items.json"

// WriteJSON writes the report, pretty-printed, to <outDir>/action-items.json
// and returns the path.
func WriteJSON(outDir string, report *model.ConsolidatedReport) (string, error) {
	if report == nil {
		return "", fmt.Errorf("report: report is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("report: create output directory %s: %w", outDir, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("report: marshal: %w", err)
	}

	path := filepath.Join(outDir, JSONFile)
	// #nosec G306 -- reports are meant to be shared
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("report: write %s: %w", path, err)
	}
	return path, nil
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*model.ConsolidatedReport, error) {
	data, err := os.ReadFile(path) //nolint:gosec // caller-chosen report path
	if err != nil {
		return nil, fmt.Errorf("report: read %s: %w", path, err)
	}
	var r model.ConsolidatedReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: decode %s: %w", path, err)
	}
	return &r, nil
}
