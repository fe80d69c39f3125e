package pullengine

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/cloneengine"
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

func TestPullIsNoOpWhenCollectionUnchanged(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	repoDir := filepath.Join(t.TempDir(), "repo")

	col, err := collection.Open(colPath)
	require.NoError(t, err)
	_, err = cloneengine.Clone(col, colPath, repoDir)
	require.NoError(t, err)
	col.Close(false)

	result, conflict, err := Pull(repoDir)
	require.NoError(t, err)
	assert.Empty(t, conflict)
	assert.Equal(t, kitypes.UpToDate, result)
}

func TestPullBringsInExternalFieldEdit(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	repoDir := filepath.Join(t.TempDir(), "repo")

	col, err := collection.Open(colPath)
	require.NoError(t, err)
	_, err = cloneengine.Clone(col, colPath, repoDir)
	require.NoError(t, err)
	col.Close(false)

	col2, err := collection.Open(colPath)
	require.NoError(t, err)
	note, ok, err := col2.NoteByGUID("guid-1")
	require.NoError(t, err)
	require.True(t, ok)
	fields := note.Fields
	fields.Set("Back", "to converse")
	require.NoError(t, col2.UpdateNote(note.NID, note.Notetype.Name, note.Notetype, note.Tags, fields))
	require.NoError(t, col2.Close(true))

	result, conflict, err := Pull(repoDir)
	require.NoError(t, err)
	assert.Empty(t, conflict)
	assert.Equal(t, kitypes.Nontrivial, result)

	deckDir := filepath.Join(repoDir, "Spanish", "Verbs")
	entries, err := os.ReadDir(deckDir)
	require.NoError(t, err)
	var noteFile string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".md" {
			noteFile = filepath.Join(deckDir, e.Name())
		}
	}
	require.NotEmpty(t, noteFile)

	data, err := os.ReadFile(noteFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to converse")
}
