package kitypes

import "fmt"

// SQLiteLockError is returned when the collection's exclusive lock
// cannot be acquired within the ~100ms budget: another process (usually
// the Anki desktop client) has it open.
type SQLiteLockError struct {
	Path string
	Err  error
}

func (e *SQLiteLockError) Error() string {
	return fmt.Sprintf("cannot acquire lock on %s (is it open elsewhere?): %v", e.Path, e.Err)
}
func (e *SQLiteLockError) Unwrap() error { return e.Err }

// UpdatesRejectedError fires when push finds the collection's MD5 no
// longer matches the hashes log's last line: the collection changed out
// of band and the user must pull before pushing.
type UpdatesRejectedError struct {
	ColPath string
}

func (e *UpdatesRejectedError) Error() string {
	return fmt.Sprintf("%s was modified since the last pull/push; run 'ki pull' first", e.ColPath)
}

// CollectionChecksumError fires when the collection's MD5 changes out
// from under an in-progress pull.
type CollectionChecksumError struct {
	ColPath string
}

func (e *CollectionChecksumError) Error() string {
	return fmt.Sprintf("%s changed concurrently during pull", e.ColPath)
}

// TargetExistsError fires when clone's target directory exists and is
// non-empty.
type TargetExistsError struct {
	Path string
}

func (e *TargetExistsError) Error() string {
	return fmt.Sprintf("target '%s' already exists and is not empty", e.Path)
}

// MissingNotetypeError fires when a DeckNote names a notetype that
// doesn't exist in the collection being pushed to.
type MissingNotetypeError struct {
	Model string
}

func (e *MissingNotetypeError) Error() string {
	return fmt.Sprintf("no notetype named '%s' in collection", e.Model)
}

// NotetypeMismatchError is a caller bug: update_note was handed a
// new-notetype whose name doesn't match the DeckNote's model.
type NotetypeMismatchError struct {
	DeckNoteModel string
	NotetypeName  string
}

func (e *NotetypeMismatchError) Error() string {
	return fmt.Sprintf("decknote model '%s' does not match notetype '%s'", e.DeckNoteModel, e.NotetypeName)
}

// MissingMediaDirectoryError fires when a collection's media directory
// doesn't exist where MediaManager says it should.
type MissingMediaDirectoryError struct {
	ColPath   string
	MediaPath string
}

func (e *MissingMediaDirectoryError) Error() string {
	return fmt.Sprintf("media directory %s for collection %s does not exist", e.MediaPath, e.ColPath)
}

// AnkiDBNoteMissingFieldsError fires when a field key named in a
// DeckNote cannot be set on the underlying Note, because the notetype
// changed and the note hasn't been reloaded.
type AnkiDBNoteMissingFieldsError struct {
	GUID string
	NID  int64
	Key  string
}

func (e *AnkiDBNoteMissingFieldsError) Error() string {
	return fmt.Sprintf("note %d (guid %s) is missing field '%s'", e.NID, e.GUID, e.Key)
}

// NonEmptyWorkingTreeError fires when the initial commit of a fresh
// clone leaves the working tree dirty (a write-out bug, not user error).
type NonEmptyWorkingTreeError struct {
	Root string
}

func (e *NonEmptyWorkingTreeError) Error() string {
	return fmt.Sprintf("working tree at %s is dirty after initial commit", e.Root)
}

// NotKiRepoError fires when an ancestor search for .ki/ from the cwd
// reaches the filesystem root without finding one.
type NotKiRepoError struct {
	Start string
}

func (e *NotKiRepoError) Error() string {
	return fmt.Sprintf("%s is not inside a ki repository (no .ki/ found)", e.Start)
}
