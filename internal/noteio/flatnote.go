// Package noteio parses and serializes the markdown note file format
// ki reads from and writes to a working tree, replacing the original's
// lark grammar + NoteTransformer with a hand-rolled line scanner — the
// format is fixed and small enough that a full parser generator buys
// nothing a teacher's regex/state-machine style doesn't already give.
package noteio

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pwintz/ki/internal/kitypes"
)

// FlatNote is the raw parse of a note file, before deck/guid resolution
// (deck comes from the file's path, guid may be blank and need
// derivation from field contents — both handled by the caller).
type FlatNote struct {
	GUID     string
	Model    string
	Tags     []string
	Fields   kitypes.Fields
	Title    string
}

const (
	headerTitle   = "# Note"
	headerFence   = "```"
	headerTagHead = "### Tags"
)

// IsAnkiNote reports whether the first lines of path match the fixed
// note header, without fully parsing the file — mirrors the original's
// is_anki_note fast-path check used while walking a working tree.
func IsAnkiNote(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	want := []string{headerTitle, headerFence}
	sc := bufio.NewScanner(f)
	for i := 0; i < len(want); i++ {
		if !sc.Scan() {
			return false, nil
		}
		if strings.TrimRight(sc.Text(), "\r") != want[i] {
			return false, nil
		}
	}
	// line 3 must be "guid: ...", line 5 the closing fence.
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), "guid:") {
		return false, nil
	}
	if !sc.Scan() || !strings.HasPrefix(sc.Text(), "notetype:") {
		return false, nil
	}
	if !sc.Scan() || strings.TrimRight(sc.Text(), "\r") != headerFence {
		return false, nil
	}
	return true, sc.Err()
}

// ParseFlatNote reads and parses the note file at path.
func ParseFlatNote(path string) (FlatNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FlatNote{}, err
	}
	return parseFlatNoteBytes(data)
}

func parseFlatNoteBytes(data []byte) (FlatNote, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	var i int

	next := func() (string, bool) {
		if i >= len(lines) {
			return "", false
		}
		l := lines[i]
		i++
		return l, true
	}
	expect := func(want string) error {
		l, ok := next()
		if !ok || l != want {
			return fmt.Errorf("note file: expected %q, got %q (line %d)", want, l, i)
		}
		return nil
	}

	if err := expect(headerTitle); err != nil {
		return FlatNote{}, err
	}
	if err := expect(headerFence); err != nil {
		return FlatNote{}, err
	}

	guidLine, ok := next()
	if !ok || !strings.HasPrefix(guidLine, "guid:") {
		return FlatNote{}, fmt.Errorf("note file: missing guid line")
	}
	guid := strings.TrimSpace(strings.TrimPrefix(guidLine, "guid:"))

	ntLine, ok := next()
	if !ok || !strings.HasPrefix(ntLine, "notetype:") {
		return FlatNote{}, fmt.Errorf("note file: missing notetype line")
	}
	model := strings.TrimSpace(strings.TrimPrefix(ntLine, "notetype:"))

	if err := expect(headerFence); err != nil {
		return FlatNote{}, err
	}
	if _, ok := next(); !ok { // blank line
		return FlatNote{}, fmt.Errorf("note file: truncated after header")
	}
	if err := expect(headerTagHead); err != nil {
		return FlatNote{}, err
	}
	if err := expect(headerFence); err != nil {
		return FlatNote{}, err
	}

	var tags []string
	for {
		l, ok := next()
		if !ok {
			return FlatNote{}, fmt.Errorf("note file: unterminated tags block")
		}
		if l == headerFence {
			break
		}
		if strings.TrimSpace(l) == "" {
			continue
		}
		tags = append(tags, strings.TrimSpace(l))
	}
	if _, ok := next(); ok {
		// blank separator line before first field, if present; harmless if absent.
		i--
	}

	fields := kitypes.NewFields()
	var curName string
	var curBody []string
	flush := func() {
		if curName == "" {
			return
		}
		body := strings.Join(curBody, "\n")
		body = strings.TrimRight(body, "\n")
		fields.Set(curName, body)
	}

	for i < len(lines) {
		l := lines[i]
		i++
		if strings.HasPrefix(l, "## ") {
			flush()
			curName = strings.TrimSpace(strings.TrimPrefix(l, "## "))
			curBody = nil
			continue
		}
		if curName != "" {
			curBody = append(curBody, l)
		}
	}
	flush()

	return FlatNote{
		GUID:   guid,
		Model:  model,
		Tags:   tags,
		Fields: fields,
	}, nil
}
