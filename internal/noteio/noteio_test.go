package noteio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwintz/ki/internal/kitypes"
)

const sampleNote = `# Note
` + "```" + `
guid: abc123
notetype: Basic
` + "```" + `

### Tags
` + "```" + `
tag1
tag2
` + "```" + `

## Front
what is go

## Back
a language<br>with goroutines
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIsAnkiNoteTrue(t *testing.T) {
	path := writeTemp(t, sampleNote)
	ok, err := IsAnkiNote(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIsAnkiNoteFalse(t *testing.T) {
	path := writeTemp(t, "# Just a regular markdown file\n\nnothing special here\n")
	ok, err := IsAnkiNote(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseFlatNote(t *testing.T) {
	path := writeTemp(t, sampleNote)
	fn, err := ParseFlatNote(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", fn.GUID)
	assert.Equal(t, "Basic", fn.Model)
	assert.Equal(t, []string{"tag1", "tag2"}, fn.Tags)

	front, ok := fn.Fields.Get("Front")
	require.True(t, ok)
	assert.Equal(t, "what is go", front)

	back, ok := fn.Fields.Get("Back")
	require.True(t, ok)
	assert.Equal(t, "a language<br>with goroutines", back)
}

func TestMarkdownRoundTripsGUIDAndFields(t *testing.T) {
	fields := kitypes.NewFields()
	fields.Set("Front", "what is go")
	fields.Set("Back", "a language")

	note := kitypes.ColNote{
		GUID:     "abc123",
		Notetype: kitypes.Notetype{Name: "Basic", Fields: []string{"Front", "Back"}},
		Tags:     []string{"tag1", "tag2"},
		Fields:   fields,
	}
	md := Markdown(note)

	path := writeTemp(t, md)
	fn, err := ParseFlatNote(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", fn.GUID)
	assert.Equal(t, "Basic", fn.Model)
	assert.Equal(t, []string{"tag1", "tag2"}, fn.Tags)
	front, _ := fn.Fields.Get("Front")
	assert.Equal(t, "what is go", front)
}

func TestHTMLToScreenConvertsBreaks(t *testing.T) {
	out := HTMLToScreen("line one<br>line two<br/>line three")
	assert.Equal(t, "line one\nline two\nline three", out)
}

func TestHTMLToScreenStripsStyleBlock(t *testing.T) {
	out := HTMLToScreen("<style>.foo{color:red}</style>visible text")
	assert.Equal(t, "visible text", out)
}

func TestPlainToHTMLConvertsNewlinesWithoutHTML(t *testing.T) {
	out := PlainToHTML("line one\nline two")
	assert.Equal(t, "line one<br>line two", out)
}

func TestPlainToHTMLLeavesNewlinesWhenHTMLPresent(t *testing.T) {
	out := PlainToHTML("<b>bold</b>\nline two")
	assert.Contains(t, out, "\n")
}
