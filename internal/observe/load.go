package observe

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ashita-ai/uxeval/internal/model"
)

// LoadSummary reads a session summary written by SaveToFile.
func LoadSummary(path string) (model.SessionSummary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the results root
	if err != nil {
		return model.SessionSummary{}, fmt.Errorf("observe: read summary: %w", err)
	}
	var s model.SessionSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return model.SessionSummary{}, fmt.Errorf("observe: decode summary %s: %w", path, err)
	}
	return s, nil
}

// LoadAll reads every <resultsRoot>/*/observations.json, ordered by persona
// directory name. A missing root yields no sessions and no error.
func LoadAll(resultsRoot string) ([]model.SessionSummary, error) {
	entries, err := os.ReadDir(resultsRoot)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("observe: list results: %w", err)
	}

	var sessions []model.SessionSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(resultsRoot, e.Name(), SummaryFile)
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		s, err := LoadSummary(path)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Slug normalizes s into a lowercase, filesystem-safe name.
func Slug(s string) string {
	s = strings.ToLower(s)
	result := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			result = append(result, c)
		} else {
			result = append(result, '-')
		}
	}
	s = string(result)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	if s == "" {
		s = "unnamed"
	}
	return s
}
