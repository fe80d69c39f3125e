// Package kitypes holds the domain types shared across ki's packages:
// notetypes, notes-as-written (DeckNote) and notes-as-stored (ColNote),
// deck tree nodes, and the Delta records the diff/merge core produces.
package kitypes

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fields is an ordered field-name -> HTML-or-plain-text map. Order is
// significant: it is the order fields are written to a note file and the
// order sfld/field-count validation walks them in.
type Fields = *orderedmap.OrderedMap[string, string]

// NewFields returns an empty, ready-to-use Fields map.
func NewFields() Fields {
	return orderedmap.New[string, string]()
}

// FieldNames returns the field names of f in insertion order.
func FieldNames(f Fields) []string {
	names := make([]string, 0, f.Len())
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// FieldValues returns the field values of f in insertion order.
func FieldValues(f Fields) []string {
	values := make([]string, 0, f.Len())
	for pair := f.Oldest(); pair != nil; pair = pair.Next() {
		values = append(values, pair.Value)
	}
	return values
}

// Template is a single card template belonging to a Notetype.
type Template struct {
	Name string
	QFmt string
	AFmt string
}

// Notetype ("model") is the schema shared by every note that references
// it: named fields, templates, and CSS.
type Notetype struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []Template
	CSS       string
	SortField int // index into Fields
}

// SortFieldName returns the name of the notetype's sort field, or "" if
// the notetype has no fields (shouldn't happen for a valid notetype).
func (n Notetype) SortFieldName() string {
	if n.SortField < 0 || n.SortField >= len(n.Fields) {
		return ""
	}
	return n.Fields[n.SortField]
}

// DeckNote is a note as written in the working tree: the parsed
// counterpart of a markdown note file, with its GUID resolved (filled in
// from the field hash if the author left it blank).
type DeckNote struct {
	Title  string
	GUID   string
	Deck   string
	Model  string
	Tags   []string
	Fields Fields
}

// ColNote is a note as stored in the collection, joined with the
// notetype and sort-field text needed to write it back out as markdown.
type ColNote struct {
	NID      int64
	GUID     string
	Notetype Notetype
	Tags     []string
	Fields   Fields
	SFLD     string
}

// GitChangeType mirrors the change types a git diff entry can carry.
type GitChangeType int

const (
	Added GitChangeType = iota
	Deleted
	Modified
	Renamed
	TypeChanged
)

func (t GitChangeType) String() string {
	switch t {
	case Added:
		return "ADD"
	case Deleted:
		return "DELETE"
	case Modified:
		return "MODIFY"
	case Renamed:
		return "RENAME"
	case TypeChanged:
		return "TYPE CHANGE"
	default:
		return "UNKNOWN"
	}
}

// Delta is one note-level change extracted from a git diff between two
// commits: the change type, the absolute path to read the note from (for
// a delete, the file in the pre-change snapshot), and the path relative
// to the repo root.
type Delta struct {
	Status  GitChangeType
	AbsPath string
	RelPath string
}

// NoteMetadata is what get_note_metadata (spec.md §4.7 step 7) maps a
// GUID to: the collection's existing note id, its modification time, and
// its notetype id.
type NoteMetadata struct {
	NID int64
	Mod int64
	MID int64
}

// PushResult is the outcome of a push, reported to the caller and used
// by the CLI to decide its exit message.
type PushResult int

const (
	UpToDate PushResult = iota
	Nontrivial
)
