package model

// PersonaProfile is the fixed identity of a simulated user. Profiles are
// defined statically and only ever used as prompt context.
type PersonaProfile struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Background string   `json:"background" yaml:"background"`
	Goals      []string `json:"goals" yaml:"goals"`
	Behaviors  []string `json:"behaviors" yaml:"behaviors"`
}
