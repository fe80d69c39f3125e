package kirepo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/kitypes"
)

func TestInitAndDiscover(t *testing.T) {
	root := t.TempDir()
	colPath := filepath.Join(t.TempDir(), "collection.anki2")
	require.NoError(t, os.WriteFile(colPath, []byte("x"), 0o644))

	k, err := Init(root, colPath)
	require.NoError(t, err)
	assert.Equal(t, colPath, k.ColPath)

	sub := filepath.Join(root, "Deck", "Sub")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	found, err := Discover(sub)
	require.NoError(t, err)
	assert.Equal(t, root, found.Root)
	assert.Equal(t, colPath, found.ColPath)
}

func TestDiscoverFailsOutsideRepo(t *testing.T) {
	_, err := Discover(t.TempDir())
	require.Error(t, err)
	var notRepo *kitypes.NotKiRepoError
	assert.ErrorAs(t, err, &notRepo)
}

func TestAppendAndReadLastHash(t *testing.T) {
	root := t.TempDir()
	colPath := filepath.Join(t.TempDir(), "collection.anki2")
	require.NoError(t, os.WriteFile(colPath, []byte("x"), 0o644))
	k, err := Init(root, colPath)
	require.NoError(t, err)

	require.NoError(t, k.AppendHash("aaaa", "tag1"))
	require.NoError(t, k.AppendHash("bbbb", "tag2"))

	sum, tag, err := k.LastHashLine()
	require.NoError(t, err)
	assert.Equal(t, "bbbb", sum)
	assert.Equal(t, "tag2", tag)
}

func TestBackupIsIdempotent(t *testing.T) {
	root := t.TempDir()
	colPath := filepath.Join(t.TempDir(), "collection.anki2")
	require.NoError(t, os.WriteFile(colPath, []byte("hello"), 0o644))
	k, err := Init(root, colPath)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, k.Backup(now))
	require.NoError(t, k.Backup(now))

	entries, err := os.ReadDir(k.BackupsDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestPlanMediaChainLinksThroughParents(t *testing.T) {
	root := &kitypes.DeckNode{IsRoot: true, FullName: ""}
	parent := &kitypes.DeckNode{FullName: "Spanish", DirPath: "/repo/Spanish"}
	child := &kitypes.DeckNode{FullName: "Spanish::Verbs", DirPath: "/repo/Spanish/Verbs"}
	parent.Children = []*kitypes.DeckNode{child}
	root.Children = []*kitypes.DeckNode{parent}

	links := PlanMediaChain(root, "/repo/_media")
	require.Len(t, links, 2)
	assert.Equal(t, "/repo/Spanish/_media", links[0].Path)
	assert.Equal(t, "/repo/Spanish/Verbs/_media", links[1].Path)
}
