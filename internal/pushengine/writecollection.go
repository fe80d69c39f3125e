package pushengine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kirepo"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pathutil"
)

// writeCollection applies deltas to a private copy of the live
// collection, registers any new notetypes named in models, copies new
// media files out of the working tree's root "_media" directory, then
// swaps the updated copy in for the live collection file and records
// the new sync point. Mirrors the original's write_collection.
//
// aRoot and bRoot are the pre- and post-overlay roots the deltas'
// AbsPath fields were built against (a Deleted delta's file lives under
// aRoot, every other delta's under bRoot); mediaRoot is the current
// working tree whose "_media" directory holds any newly added files.
func writeCollection(kr *kirepo.KiRepo, deltas []kitypes.Delta, models map[string]kitypes.Notetype, aRoot, bRoot, mediaRoot string, now time.Time) ([]kitypes.Warning, error) {
	var warnings []kitypes.Warning

	tempColPath := filepath.Join(os.TempDir(), fmt.Sprintf("ki-push-col-%d.anki2", now.UnixNano()))
	if err := copyColFile(kr.ColPath, tempColPath); err != nil {
		return nil, fmt.Errorf("copy collection for staging: %w", err)
	}
	defer os.Remove(tempColPath)

	tempCol, err := collection.Open(tempColPath)
	if err != nil {
		return nil, fmt.Errorf("open staged collection: %w", err)
	}

	for _, nt := range models {
		// Add keeps an existing same-name notetype and warns if its
		// content differs.
		_, warn, err := tempCol.Models().Add(nt)
		if err != nil {
			tempCol.Close(false)
			return nil, err
		}
		if warn != nil {
			warnings = append(warnings, warn)
		}
	}

	noteMeta, err := NoteMetadataMap(tempCol)
	if err != nil {
		tempCol.Close(false)
		return nil, err
	}

	var deletes []kitypes.DeckNote
	var upserts []kitypes.DeckNote
	for _, d := range deltas {
		root := bRoot
		if d.Status == kitypes.Deleted {
			root = aRoot
		}
		dn, err := DeckNoteFromDelta(root, d)
		if err != nil {
			tempCol.Close(false)
			return nil, err
		}
		if d.Status == kitypes.Deleted {
			deletes = append(deletes, dn)
		} else {
			upserts = append(upserts, dn)
		}
	}

	if err := ApplyDeletes(tempCol, deletes, noteMeta); err != nil {
		tempCol.Close(false)
		return nil, err
	}
	for _, dn := range upserts {
		warns, err := ApplyUpsert(tempCol, dn, noteMeta)
		if err != nil {
			tempCol.Close(false)
			return nil, err
		}
		warnings = append(warnings, warns...)
	}

	mediaWarnings, err := addNewMedia(tempCol, mediaRoot)
	if err != nil {
		tempCol.Close(false)
		return nil, err
	}
	warnings = append(warnings, mediaWarnings...)

	if err := tempCol.Close(true); err != nil {
		return nil, fmt.Errorf("save staged collection: %w", err)
	}

	if err := kr.Backup(now); err != nil {
		return nil, err
	}
	if err := copyColFile(tempColPath, kr.ColPath); err != nil {
		return nil, fmt.Errorf("install updated collection: %w", err)
	}

	sum, err := pathutil.MD5File(kr.ColPath)
	if err != nil {
		return nil, err
	}
	repo := gitutil.Open(kr.Root)
	sha, err := repo.CurrentCommit()
	if err != nil {
		return nil, err
	}
	if err := kr.AppendHash(sum, sha); err != nil {
		return nil, err
	}
	if _, err := repo.CommitPaths([]string{filepath.Join(".ki", "hashes")}, "Update hashes file"); err != nil {
		return nil, fmt.Errorf("commit hashes: %w", err)
	}
	if err := repo.DeleteTag(lcaTag); err != nil {
		return nil, err
	}
	if err := repo.Tag(lcaTag, ""); err != nil {
		return nil, err
	}

	return warnings, nil
}

// addNewMedia copies every file under workTreeRoot/_media into the
// staged collection's media directory, surfacing a warning whenever a
// name collides with different content.
func addNewMedia(tempCol *collection.Collection, workTreeRoot string) ([]kitypes.Warning, error) {
	mediaRoot := filepath.Join(workTreeRoot, "_media")
	entries, err := os.ReadDir(mediaRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var warnings []kitypes.Warning
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		_, warn, err := tempCol.Media().AddFile(filepath.Join(mediaRoot, e.Name()))
		if err != nil {
			return nil, err
		}
		if warn != nil {
			warnings = append(warnings, warn)
		}
	}
	return warnings, nil
}

func copyColFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
