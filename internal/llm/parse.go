package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ashita-ai/uxeval/internal/model"
)

// ErrMalformedResponse marks a response that does not meet the output contract.
var ErrMalformedResponse = errors.New("llm: malformed response")

// ParseAnalysis validates and decodes a model response. It must be a JSON
// object carrying an action_items array; a JSON object wrapped in stray prose
// is extracted first. Anything else is ErrMalformedResponse.
func ParseAnalysis(raw string) (model.Analysis, error) {
	data, obj, err := extractObject(raw)
	if err != nil {
		return model.Analysis{}, err
	}

	items, ok := obj["action_items"]
	if !ok {
		return model.Analysis{}, fmt.Errorf("%w: missing action_items", ErrMalformedResponse)
	}
	if t := bytes.TrimSpace(items); len(t) == 0 || t[0] != '[' {
		return model.Analysis{}, fmt.Errorf("%w: action_items is not an array", ErrMalformedResponse)
	}

	var a model.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		return model.Analysis{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	for i := range a.ActionItems {
		a.ActionItems[i] = normalizeItem(a.ActionItems[i])
	}
	if a.ActionItems == nil {
		a.ActionItems = []model.ActionItem{}
	}
	return a, nil
}

// extractObject returns the JSON object in raw, trying the whole text first
// and then the span from the first '{' to the last '}'.
func extractObject(raw string) ([]byte, map[string]json.RawMessage, error) {
	data := []byte(strings.TrimSpace(raw))
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		return data, obj, nil
	}

	start := bytes.IndexByte(data, '{')
	end := bytes.LastIndexByte(data, '}')
	if start < 0 || end <= start {
		return nil, nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	data = data[start : end+1]
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, nil, fmt.Errorf("%w: invalid JSON: %w", ErrMalformedResponse, err)
	}
	if obj == nil {
		return nil, nil, fmt.Errorf("%w: null object", ErrMalformedResponse)
	}
	return data, obj, nil
}

// normalizeItem lower-cases category and priority and maps values outside the
// contract onto ui and low. ReportedBy is owned by consolidation.
func normalizeItem(it model.ActionItem) model.ActionItem {
	it.Category = model.Category(strings.ToLower(strings.TrimSpace(string(it.Category))))
	if it.Category != model.CategoryUI && it.Category != model.CategoryContent {
		it.Category = model.CategoryUI
	}
	it.Priority = model.Priority(strings.ToLower(strings.TrimSpace(string(it.Priority))))
	if it.Priority.Rank() > model.PriorityLow.Rank() {
		it.Priority = model.PriorityLow
	}
	it.ReportedBy = nil
	return it
}
