package kitypes

import "fmt"

// Warning is any of the non-fatal conditions spec.md §7 lists: they are
// printed (via internal/uiout) and the operation proceeds.
type Warning interface {
	error
	warning()
}

type warningBase struct{}

func (warningBase) warning() {}

// NoteFieldValidationWarning: a field key named in a DeckNote has no
// match on the target Note (after a notetype change).
type NoteFieldValidationWarning struct {
	warningBase
	NID   int64
	Key   string
	Model string
}

func (w NoteFieldValidationWarning) Error() string {
	return fmt.Sprintf("note %d: field '%s' not present on notetype '%s'", w.NID, w.Key, w.Model)
}

// DeletedFileNotFoundWarning: a DELETED diff entry's A-side path doesn't
// exist in the A-snapshot repo.
type DeletedFileNotFoundWarning struct {
	warningBase
	Path string
}

func (w DeletedFileNotFoundWarning) Error() string {
	return fmt.Sprintf("deleted file not found in prior snapshot: %s", w.Path)
}

// DiffTargetFileNotFoundWarning: a non-DELETED diff entry's B-side path
// doesn't exist.
type DiffTargetFileNotFoundWarning struct {
	warningBase
	Path string
}

func (w DiffTargetFileNotFoundWarning) Error() string {
	return fmt.Sprintf("diff target file not found: %s", w.Path)
}

// NotetypeCollisionWarning: a notetype with the same name but different
// content already exists; the existing one is kept, per the "add_model
// is unfinished" open question.
type NotetypeCollisionWarning struct {
	warningBase
	Name string
}

func (w NotetypeCollisionWarning) Error() string {
	return fmt.Sprintf("notetype '%s' already exists with different content; keeping the existing one", w.Name)
}

// WrongFieldCountWarning: a DeckNote's field count doesn't match its
// notetype's.
type WrongFieldCountWarning struct {
	warningBase
	GUID  string
	Have  int
	Want  int
	Model string
}

func (w WrongFieldCountWarning) Error() string {
	return fmt.Sprintf("note %s: has %d fields, notetype '%s' expects %d", w.GUID, w.Have, w.Model, w.Want)
}

// InconsistentFieldNamesWarning: a DeckNote field name doesn't match the
// notetype's field name at the same position.
type InconsistentFieldNamesWarning struct {
	warningBase
	NotetypeField string
	DeckNoteField string
	GUID          string
}

func (w InconsistentFieldNamesWarning) Error() string {
	return fmt.Sprintf("note %s: field '%s' does not match notetype field '%s' at same position", w.GUID, w.DeckNoteField, w.NotetypeField)
}

// RenamedMediaFileWarning: media.AddFile returned a different name than
// the file we tried to add (the collection already has a file with that
// name but different bytes).
type RenamedMediaFileWarning struct {
	warningBase
	OldName string
	NewName string
}

func (w RenamedMediaFileWarning) Error() string {
	return fmt.Sprintf("media file '%s' was renamed to '%s' on add (name collision with different content)", w.OldName, w.NewName)
}

// EmptyNoteWarning: fields_check found an empty note; it was removed.
type EmptyNoteWarning struct {
	warningBase
	NID int64
}

func (w EmptyNoteWarning) Error() string {
	return fmt.Sprintf("note %d is empty; removed", w.NID)
}

// DuplicateNoteWarning: fields_check found a duplicate sort field; the
// note was removed.
type DuplicateNoteWarning struct {
	warningBase
	NID  int64
	SFLD string
}

func (w DuplicateNoteWarning) Error() string {
	return fmt.Sprintf("note %d is a duplicate of sort field %q; removed", w.NID, w.SFLD)
}

// UnhealthyNoteWarning: fields_check failed for another reason; the note
// was removed.
type UnhealthyNoteWarning struct {
	warningBase
	NID    int64
	Health int
}

func (w UnhealthyNoteWarning) Error() string {
	return fmt.Sprintf("note %d failed field health check (code %d); removed", w.NID, w.Health)
}

// MediaDirectoryDeckNameCollisionWarning: a deck anywhere in the tree is
// (or contains a component) named "_media", which is reserved.
type MediaDirectoryDeckNameCollisionWarning struct {
	warningBase
	DeckName string
}

func (w MediaDirectoryDeckNameCollisionWarning) Error() string {
	return fmt.Sprintf("deck '%s' collides with the reserved '_media' directory name; skipped", w.DeckName)
}
