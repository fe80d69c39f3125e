package pushengine

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

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

func findNoteFile(t *testing.T, deckDir string) string {
	t.Helper()
	entries, err := os.ReadDir(deckDir)
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".md" {
			return filepath.Join(deckDir, e.Name())
		}
	}
	t.Fatalf("no note file found in %s", deckDir)
	return ""
}

func TestPushAppliesFieldEdit(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	repoDir := filepath.Join(t.TempDir(), "repo")

	col, err := collection.Open(colPath)
	require.NoError(t, err)
	_, err = cloneengine.Clone(col, colPath, repoDir)
	require.NoError(t, err)
	col.Close(false)

	deckDir := filepath.Join(repoDir, "Spanish", "Verbs")
	notePath := findNoteFile(t, deckDir)

	data, err := os.ReadFile(notePath)
	require.NoError(t, err)
	edited := []byte(replaceOnce(string(data), "to speak", "to talk"))
	require.NoError(t, os.WriteFile(notePath, edited, 0o644))

	runGit(t, repoDir, "add", "-A")
	runGit(t, repoDir, "commit", "-m", "edit translation")

	result, warnings, _, err := Push(repoDir, time.Now())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, kitypes.Nontrivial, result)

	col2, err := collection.Open(colPath)
	require.NoError(t, err)
	defer col2.Close(false)

	note, ok, err := col2.NoteByGUID("guid-1")
	require.NoError(t, err)
	require.True(t, ok)
	back, _ := note.Fields.Get("Back")
	assert.Equal(t, "to talk", back)
}

func TestPushAppliesNoteDeletion(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	repoDir := filepath.Join(t.TempDir(), "repo")

	col, err := collection.Open(colPath)
	require.NoError(t, err)
	_, err = cloneengine.Clone(col, colPath, repoDir)
	require.NoError(t, err)
	col.Close(false)

	deckDir := filepath.Join(repoDir, "Spanish", "Verbs")
	notePath := findNoteFile(t, deckDir)
	require.NoError(t, os.Remove(notePath))

	runGit(t, repoDir, "add", "-A")
	runGit(t, repoDir, "commit", "-m", "remove note")

	result, _, _, err := Push(repoDir, time.Now())
	require.NoError(t, err)
	assert.Equal(t, kitypes.Nontrivial, result)

	col2, err := collection.Open(colPath)
	require.NoError(t, err)
	defer col2.Close(false)

	_, ok, err := col2.NoteByGUID("guid-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPushIsNoOpWhenNothingChanged(t *testing.T) {
	requireGit(t)

	colPath := seedCollection(t)
	repoDir := filepath.Join(t.TempDir(), "repo")

	col, err := collection.Open(colPath)
	require.NoError(t, err)
	_, err = cloneengine.Clone(col, colPath, repoDir)
	require.NoError(t, err)
	col.Close(false)

	result, warnings, _, err := Push(repoDir, time.Now())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, kitypes.UpToDate, result)
}

func replaceOnce(s, old, new string) string {
	i := indexOf(s, old)
	if i < 0 {
		return s
	}
	return s[:i] + new + s[i+len(old):]
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=ki", "GIT_AUTHOR_EMAIL=ki@localhost",
		"GIT_COMMITTER_NAME=ki", "GIT_COMMITTER_EMAIL=ki@localhost",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}
