// Package persona defines the simulated users that drive a UX session.
package persona

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/ashita-ai/uxeval/internal/model"
)

var builtins = []model.PersonaProfile{
	{
		ID:         "concerned-citizen",
		Name:       "Concerned Citizen",
		Background: "Resident with no technical background who heard the council discussed a development near their home.",
		Goals: []string{
			"Find the most recent meeting where the topic came up",
			"Understand what was decided without watching the whole video",
			"Find out how to comment at the next meeting",
		},
		Behaviors: []string{
			"Browses from the home page rather than searching",
			"Gives up after two or three dead ends",
			"Skims headings and ignores long paragraphs",
		},
	},
	{
		ID:         "journalist",
		Name:       "Local Journalist",
		Background: "Reporter covering city hall on deadline, familiar with council procedure.",
		Goals: []string{
			"Find how each council member voted on a specific item",
			"Pull exact quotes with timestamps",
			"Compare positions across several meetings",
		},
		Behaviors: []string{
			"Uses search first and refines queries quickly",
			"Opens many results in parallel",
			"Expects direct links to agenda items and minutes",
		},
	},
	{
		ID:         "accessibility-auditor",
		Name:       "Accessibility Auditor",
		Background: "Specialist checking the archive against WCAG 2.1 AA on behalf of residents using assistive technology.",
		Goals: []string{
			"Complete core tasks with keyboard only",
			"Verify captions and transcripts exist for meeting videos",
			"Check headings, labels, and contrast on key pages",
		},
		Behaviors: []string{
			"Navigates with Tab and screen reader shortcuts",
			"Zooms to 200% and checks reflow",
			"Reports every missing label or alt text",
		},
	},
}

// Defaults returns the built-in personas.
func Defaults() []model.PersonaProfile {
	out := make([]model.PersonaProfile, len(builtins))
	for i, p := range builtins {
		p.Goals = slices.Clone(p.Goals)
		p.Behaviors = slices.Clone(p.Behaviors)
		out[i] = p
	}
	return out
}

type file struct {
	Personas []model.PersonaProfile `yaml:"personas"`
}

// LoadFile reads persona definitions from a YAML file of the form
//
//	personas:
//	  - id: journalist
//	    name: Local Journalist
//	    background: ...
//	    goals: [...]
//	    behaviors: [...]
func LoadFile(path string) ([]model.PersonaProfile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("persona: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("persona: parse %s: %w", path, err)
	}
	for i, p := range f.Personas {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("persona: %s: entry %d needs both id and name", path, i)
		}
	}
	return f.Personas, nil
}

// Merge returns base with entries replaced by overrides of the same ID.
// Overrides with new IDs are appended in their given order.
func Merge(base, overrides []model.PersonaProfile) []model.PersonaProfile {
	out := slices.Clone(base)
	for _, o := range overrides {
		i := slices.IndexFunc(out, func(p model.PersonaProfile) bool { return p.ID == o.ID })
		if i >= 0 {
			out[i] = o
		} else {
			out = append(out, o)
		}
	}
	return out
}

// Registry looks personas up by ID or display name.
type Registry struct {
	profiles []model.PersonaProfile
}

// NewRegistry creates a registry over profiles.
func NewRegistry(profiles []model.PersonaProfile) *Registry {
	return &Registry{profiles: slices.Clone(profiles)}
}

// All returns the registered profiles in order.
func (r *Registry) All() []model.PersonaProfile {
	return slices.Clone(r.profiles)
}

// Lookup finds a persona by ID, then by name.
func (r *Registry) Lookup(id, name string) (model.PersonaProfile, bool) {
	for _, p := range r.profiles {
		if id != "" && p.ID == id {
			return p, true
		}
	}
	for _, p := range r.profiles {
		if p.Name == name {
			return p, true
		}
	}
	return model.PersonaProfile{}, false
}

// ForSession returns the persona that produced s. Sessions from personas no
// longer defined get a minimal profile built from the recorded name.
func (r *Registry) ForSession(s model.SessionSummary) model.PersonaProfile {
	if p, ok := r.Lookup(s.PersonaID, s.Persona); ok {
		return p
	}
	return model.PersonaProfile{ID: s.PersonaID, Name: s.Persona}
}
