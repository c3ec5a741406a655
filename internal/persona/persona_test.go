package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/uxeval/internal/model"
)

func TestDefaults(t *testing.T) {
	ps := Defaults()
	require.Len(t, ps, 3)
	for _, p := range ps {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
		assert.NotEmpty(t, p.Goals)
	}

	ps[0].Goals[0] = "mutated"
	assert.NotEqual(t, "mutated", Defaults()[0].Goals[0], "defaults are immutable")
}

func TestLoadFileAndMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`personas:
  - id: journalist
    name: Investigative Reporter
    background: Long-form reporter
    goals: [Trace a project across years]
    behaviors: [Reads every attachment]
  - id: student
    name: Civics Student
    background: High-school class assignment
    goals:
      - Find one meeting to summarize
`), 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []string{"Trace a project across years"}, loaded[0].Goals)

	merged := Merge(Defaults(), loaded)
	require.Len(t, merged, 4)
	assert.Equal(t, "Investigative Reporter", merged[1].Name)
	assert.Equal(t, "student", merged[3].ID)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("personas: [ {id: x"), 0o644))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	noName := filepath.Join(dir, "noname.yaml")
	require.NoError(t, os.WriteFile(noName, []byte("personas:\n  - id: x\n"), 0o644))
	_, err = LoadFile(noName)
	assert.ErrorContains(t, err, "needs both id and name")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(Defaults())

	p, ok := r.Lookup("journalist", "")
	require.True(t, ok)
	assert.Equal(t, "Local Journalist", p.Name)

	p, ok = r.Lookup("", "Accessibility Auditor")
	require.True(t, ok)
	assert.Equal(t, "accessibility-auditor", p.ID)

	_, ok = r.Lookup("nobody", "Nobody")
	assert.False(t, ok)

	unknown := r.ForSession(model.SessionSummary{PersonaID: "retired", Persona: "Retired Persona"})
	assert.Equal(t, model.PersonaProfile{ID: "retired", Name: "Retired Persona"}, unknown)
}
