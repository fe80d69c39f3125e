package syncdelta

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kitypes"
)

func writeNote(t *testing.T, root, rel, guid string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(noteSprintf(guid)), 0o644))
}

func noteSprintf(guid string) string {
	return "# Note\n```\nguid: " + guid + "\nnotetype: Basic\n```\n\n### Tags\n```\n```\n\n## Front\nq\n\n## Back\na\n"
}

func TestIsIgnorableReservedNames(t *testing.T) {
	assert.True(t, IsIgnorable("/root", ".ki/config", false))
	assert.True(t, IsIgnorable("/root", "Deck/_media/pic.png", false))
	assert.False(t, IsIgnorable("/root", "Deck/note.md", false))
}

func TestExtractSplitsRenameOnGUIDChange(t *testing.T) {
	aRoot := t.TempDir()
	bRoot := t.TempDir()
	writeNote(t, aRoot, "Deck/old.md", "guid-old")
	writeNote(t, bRoot, "Deck/new.md", "guid-new")

	entries := []gitutil.DiffEntry{{Status: 'R', PathA: "Deck/old.md", PathB: "Deck/new.md"}}
	deltas, warnings := Extract(entries, aRoot, bRoot)

	assert.Empty(t, warnings)
	require.Len(t, deltas, 2)
	assert.Equal(t, kitypes.Deleted, deltas[0].Status)
	assert.Equal(t, kitypes.Added, deltas[1].Status)
}

func TestExtractKeepsRenameWhenGUIDUnchanged(t *testing.T) {
	aRoot := t.TempDir()
	bRoot := t.TempDir()
	writeNote(t, aRoot, "Deck/old.md", "guid-same")
	writeNote(t, bRoot, "Deck/new.md", "guid-same")

	entries := []gitutil.DiffEntry{{Status: 'R', PathA: "Deck/old.md", PathB: "Deck/new.md"}}
	deltas, warnings := Extract(entries, aRoot, bRoot)

	assert.Empty(t, warnings)
	require.Len(t, deltas, 1)
	assert.Equal(t, kitypes.Renamed, deltas[0].Status)
}

func TestExtractWarnsOnMissingDeletedFile(t *testing.T) {
	aRoot := t.TempDir()
	bRoot := t.TempDir()

	entries := []gitutil.DiffEntry{{Status: 'D', PathA: "Deck/gone.md", PathB: "Deck/gone.md"}}
	deltas, warnings := Extract(entries, aRoot, bRoot)

	assert.Empty(t, deltas)
	require.Len(t, warnings, 1)
	assert.IsType(t, kitypes.DeletedFileNotFoundWarning{}, warnings[0])
}

func TestExtractAddedAndModified(t *testing.T) {
	aRoot := t.TempDir()
	bRoot := t.TempDir()
	writeNote(t, bRoot, "Deck/added.md", "guid-a")
	writeNote(t, aRoot, "Deck/mod.md", "guid-m")
	writeNote(t, bRoot, "Deck/mod.md", "guid-m")

	entries := []gitutil.DiffEntry{
		{Status: 'A', PathA: "Deck/added.md", PathB: "Deck/added.md"},
		{Status: 'M', PathA: "Deck/mod.md", PathB: "Deck/mod.md"},
	}
	deltas, warnings := Extract(entries, aRoot, bRoot)
	assert.Empty(t, warnings)
	require.Len(t, deltas, 2)
	assert.Equal(t, kitypes.Added, deltas[0].Status)
	assert.Equal(t, kitypes.Modified, deltas[1].Status)
}
