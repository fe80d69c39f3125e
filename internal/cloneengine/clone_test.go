package cloneengine

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/kitypes"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func seedCollection(t *testing.T) string {
	t.Helper()
	colPath := filepath.Join(t.TempDir(), "collection.anki2")
	c, err := collection.Open(colPath)
	require.NoError(t, err)
	defer c.Close(true)

	nt := kitypes.Notetype{
		Name:   "Basic",
		Fields: []string{"Front", "Back"},
		Templates: []kitypes.Template{
			{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{Back}}"},
		},
	}
	id, _, err := c.Models().Add(nt)
	require.NoError(t, err)
	nt.ID = id

	did, err := c.Decks().ID("Spanish::Verbs", true)
	require.NoError(t, err)

	fields := kitypes.NewFields()
	fields.Set("Front", "hablar")
	fields.Set("Back", "to speak")
	nid, err := c.AddNote("guid-1", nt, []string{"verb"}, fields)
	require.NoError(t, err)
	require.NoError(t, c.SetDeck(nid, did))

	return colPath
}

func TestCloneWritesWorkingTree(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	target := filepath.Join(t.TempDir(), "repo")

	c, err := collection.Open(colPath)
	require.NoError(t, err)
	defer c.Close(false)

	warnings, err := Clone(c, colPath, target)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.DirExists(t, filepath.Join(target, "Spanish", "Verbs"))
	assert.FileExists(t, filepath.Join(target, "models.json"))
	assert.FileExists(t, filepath.Join(target, ".ki", "config"))
	assert.FileExists(t, filepath.Join(target, ".ki", "hashes"))

	entries, err := os.ReadDir(filepath.Join(target, "Spanish", "Verbs"))
	require.NoError(t, err)
	var foundNote bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".md" {
			foundNote = true
		}
	}
	assert.True(t, foundNote)
}

func TestCloneRefusesNonEmptyTarget(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	target := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(target, "existing.txt"), []byte("x"), 0o644))

	c, err := collection.Open(colPath)
	require.NoError(t, err)
	defer c.Close(false)

	_, err = Clone(c, colPath, target)
	require.Error(t, err)
	var targetErr *kitypes.TargetExistsError
	assert.ErrorAs(t, err, &targetErr)
}
