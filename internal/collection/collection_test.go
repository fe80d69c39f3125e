package collection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/kitypes"
)

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	path := filepath.Join(t.TempDir(), "collection.anki2")
	c, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(false) })
	return c
}

func testNotetype(t *testing.T, c *Collection) kitypes.Notetype {
	t.Helper()
	nt := kitypes.Notetype{
		Name:   "Basic",
		Fields: []string{"Front", "Back"},
		Templates: []kitypes.Template{
			{Name: "Card 1", QFmt: "{{Front}}", AFmt: "{{FrontSide}}<hr>{{Back}}"},
		},
		SortField: 0,
	}
	id, warn, err := c.Models().Add(nt)
	require.NoError(t, err)
	require.Nil(t, warn)
	nt.ID = id
	return nt
}

func TestOpenCreatesSchema(t *testing.T) {
	c := newTestCollection(t)
	row := c.QueryRow(`SELECT COUNT(*) FROM col`)
	var n int
	require.NoError(t, row.Scan(&n))
	assert.Equal(t, 1, n)
}

func TestOpenLocksAgainstSecondOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collection.anki2")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close(false)

	_, err = Open(path)
	require.Error(t, err)
	var lockErr *kitypes.SQLiteLockError
	assert.ErrorAs(t, err, &lockErr)
}

func TestAddAndFetchNote(t *testing.T) {
	c := newTestCollection(t)
	nt := testNotetype(t, c)

	fields := kitypes.NewFields()
	fields.Set("Front", "what is go")
	fields.Set("Back", "a language")

	nid, err := c.AddNote("guid-1", nt, []string{"tag1"}, fields)
	require.NoError(t, err)
	assert.NotZero(t, nid)

	note, ok, err := c.NoteByGUID("guid-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "guid-1", note.GUID)
	front, _ := note.Fields.Get("Front")
	assert.Equal(t, "what is go", front)
	assert.Equal(t, []string{"tag1"}, note.Tags)
}

func TestUpdateNoteRejectsModelMismatch(t *testing.T) {
	c := newTestCollection(t)
	nt := testNotetype(t, c)
	fields := kitypes.NewFields()
	fields.Set("Front", "a")
	fields.Set("Back", "b")
	nid, err := c.AddNote("guid-2", nt, nil, fields)
	require.NoError(t, err)

	err = c.UpdateNote(nid, "NotBasic", nt, nil, fields)
	var mismatch *kitypes.NotetypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestCheckFieldsHealthDetectsEmpty(t *testing.T) {
	c := newTestCollection(t)
	nt := testNotetype(t, c)
	fields := kitypes.NewFields()
	fields.Set("Front", "")
	fields.Set("Back", "")
	nid, err := c.AddNote("guid-3", nt, nil, fields)
	require.NoError(t, err)

	warn, err := c.CheckFieldsHealth(nid)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.IsType(t, kitypes.EmptyNoteWarning{}, warn)
}

func TestCheckFieldsHealthDetectsDuplicate(t *testing.T) {
	c := newTestCollection(t)
	nt := testNotetype(t, c)
	fields := kitypes.NewFields()
	fields.Set("Front", "same")
	fields.Set("Back", "b1")
	_, err := c.AddNote("guid-4", nt, nil, fields)
	require.NoError(t, err)

	fields2 := kitypes.NewFields()
	fields2.Set("Front", "same")
	fields2.Set("Back", "b2")
	nid2, err := c.AddNote("guid-5", nt, nil, fields2)
	require.NoError(t, err)

	warn, err := c.CheckFieldsHealth(nid2)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.IsType(t, kitypes.DuplicateNoteWarning{}, warn)
}

func TestDeckIDCreatesHierarchy(t *testing.T) {
	c := newTestCollection(t)
	did, err := c.Decks().ID("Parent::Child", true)
	require.NoError(t, err)
	assert.NotZero(t, did)

	tree, err := c.Decks().Tree()
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "Parent", tree.Children[0].FullName)
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, "Parent::Child", tree.Children[0].Children[0].FullName)
}

func TestModelsAddDetectsCollision(t *testing.T) {
	c := newTestCollection(t)
	nt := testNotetype(t, c)

	other := nt
	other.Fields = []string{"Front", "Back", "Extra"}
	_, warn, err := c.Models().Add(other)
	require.NoError(t, err)
	assert.IsType(t, kitypes.NotetypeCollisionWarning{}, warn)
}

func TestMediaAddFileRenamesOnCollisionWithDifferentContent(t *testing.T) {
	c := newTestCollection(t)
	dir := t.TempDir()

	p1 := filepath.Join(dir, "pic.png")
	require.NoError(t, os.WriteFile(p1, []byte("aaa"), 0o644))
	name1, warn1, err := c.Media().AddFile(p1)
	require.NoError(t, err)
	assert.Nil(t, warn1)
	assert.Equal(t, "pic.png", name1)

	p2 := filepath.Join(dir, "other", "pic.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(p2), 0o755))
	require.NoError(t, os.WriteFile(p2, []byte("bbb"), 0o644))
	name2, warn2, err := c.Media().AddFile(p2)
	require.NoError(t, err)
	require.NotNil(t, warn2)
	assert.NotEqual(t, "pic.png", name2)
}

func TestMediaRegexpsExtractsReferences(t *testing.T) {
	c := newTestCollection(t)
	refs := c.Media().Regexps(`<img src="foo.png"> text [sound:bar.mp3]`)
	assert.ElementsMatch(t, []string{"foo.png", "bar.mp3"}, refs)
}
