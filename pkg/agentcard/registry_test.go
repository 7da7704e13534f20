package agentcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegisterReplacesExistingByName(t *testing.T) {
	r := NewRegistry()
	r.Register(Capability{Name: "echo", Description: "v1"})
	r.Register(Capability{Name: "echo", Description: "v2"})

	caps := r.Capabilities()
	assert.Len(t, caps, 1)
	assert.Equal(t, "v2", caps[0].Description)
}

func TestCapabilitiesSnapshotIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Register(Capability{Name: "echo"})

	caps := r.Capabilities()
	caps[0].Name = "mutated"

	assert.Equal(t, "echo", r.Capabilities()[0].Name)
}

func TestDeriveModesDefaultsToText(t *testing.T) {
	assert.Equal(t, []string{"text"}, deriveModes(nil))
	assert.Equal(t, []string{"text"}, deriveModes(map[string]any{"type": "string"}))
}

func TestDeriveModesDetectsFileProperty(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"attachment": map[string]any{"type": "string", "format": "binary"},
		},
	}
	modes := deriveModes(schema)
	assert.Contains(t, modes, "file")
	assert.Contains(t, modes, "data")
}

func TestDeriveModesDetectsArrayAsData(t *testing.T) {
	modes := deriveModes(map[string]any{"type": "array"})
	assert.Equal(t, []string{"data"}, modes)
}
