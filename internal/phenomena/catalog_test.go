// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phenomena

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Len(t, c.Phenomena, 9)
	assert.Equal(t, []string{
		"information_integration",
		"state_transitions",
		"temporal_coordination",
		"selective_routing",
		"representational_structure",
		"causal_control",
		"emergent_dynamics",
		"valence_welfare",
		"self_model_report",
	}, c.IDs())

	p, ok := c.ByID("causal_control")
	require.True(t, ok)
	assert.Equal(t, "Causal Control", p.Name)
	assert.NotEmpty(t, p.BiologicalMarkers)
	assert.NotEmpty(t, p.AIMarkers)
}

func TestByIDUnknown(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	_, ok := c.ByID("telepathy")
	assert.False(t, ok)
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	content := `phenomena:
  - id: custom_phenomenon
    name: Custom
    description: A custom entry.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, c.Phenomena, 1)
	assert.Equal(t, "custom_phenomenon", c.Phenomena[0].ID)
}

func TestLoadRejectsEmptyAndMalformed(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("phenomena: []\n"), 0o644))
	_, err := Load(empty)
	assert.Error(t, err)

	noID := filepath.Join(dir, "noid.yaml")
	require.NoError(t, os.WriteFile(noID, []byte("phenomena:\n  - name: Nameless\n"), 0o644))
	_, err = Load(noID)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}
