package llm

import "strings"

// ModelSpec names a model and what it can take as input.
type ModelSpec struct {
	Name   string
	Vision bool // accepts image payloads
}

// Default models. The fallback is text-only and keeps the name earlier
// deployments were configured with.
var (
	DefaultPrimary  = ModelSpec{Name: "qwen2.5vl:72b", Vision: true}
	DefaultFallback = ModelSpec{Name: "mistral:7b-instruct", Vision: false}
)

// matches reports whether a loaded model name satisfies want. A want without
// a tag matches any tag of the same model.
func (m ModelSpec) matches(loaded string) bool {
	if loaded == m.Name {
		return true
	}
	if strings.Contains(m.Name, ":") {
		return false
	}
	base, _, _ := strings.Cut(loaded, ":")
	return base == m.Name
}

// selectModel picks primary if loaded, then fallback.
func selectModel(loaded []string, primary, fallback ModelSpec) (ModelSpec, bool) {
	for _, candidate := range []ModelSpec{primary, fallback} {
		if candidate.Name == "" {
			continue
		}
		for _, name := range loaded {
			if candidate.matches(name) {
				return candidate, true
			}
		}
	}
	return ModelSpec{}, false
}
