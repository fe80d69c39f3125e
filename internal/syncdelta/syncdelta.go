// Package syncdelta turns a git diff between two revisions into the
// Delta stream ki's push/pull engines consume: filtered to note files,
// with renamed notes split into a delete+add pair whenever the note's
// GUID changed underneath the rename.
//
// Grounded on the original's mungediff/diff2/is_ignorable.
package syncdelta

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/noteio"
)

var reservedNames = map[string]bool{
	".git":           true,
	".ki":            true,
	"_media":         true,
	".gitignore":     true,
	".gitmodules":    true,
	".gitattributes": true,
	"models.json":    true,
}

// IsIgnorable reports whether relPath should never participate in a
// sync delta: a reserved name anywhere in the path, or (when checkNote
// is true) a file that isn't a ki note.
func IsIgnorable(absRoot, relPath string, checkNote bool) bool {
	for _, part := range strings.Split(filepath.ToSlash(relPath), "/") {
		if reservedNames[part] {
			return true
		}
	}
	if !checkNote {
		return false
	}
	if filepath.Ext(relPath) != ".md" {
		return true
	}
	ok, err := noteio.IsAnkiNote(filepath.Join(absRoot, relPath))
	return err != nil || !ok
}

// Extract converts a gitutil diff between snapshots rooted at aRoot and
// bRoot into Deltas, applying ignorable-path filtering and the
// rename-split-on-GUID-change rule.
func Extract(entries []gitutil.DiffEntry, aRoot, bRoot string) ([]kitypes.Delta, []kitypes.Warning) {
	var deltas []kitypes.Delta
	var warnings []kitypes.Warning

	for _, e := range entries {
		switch e.Status {
		case 'A':
			if IsIgnorable(bRoot, e.PathB, true) {
				continue
			}
			if !fileExists(bRoot, e.PathB) {
				warnings = append(warnings, kitypes.DiffTargetFileNotFoundWarning{Path: e.PathB})
				continue
			}
			deltas = append(deltas, kitypes.Delta{Status: kitypes.Added, AbsPath: filepath.Join(bRoot, e.PathB), RelPath: e.PathB})

		case 'D':
			if IsIgnorable(aRoot, e.PathA, false) {
				continue
			}
			if !fileExists(aRoot, e.PathA) {
				warnings = append(warnings, kitypes.DeletedFileNotFoundWarning{Path: e.PathA})
				continue
			}
			deltas = append(deltas, kitypes.Delta{Status: kitypes.Deleted, AbsPath: filepath.Join(aRoot, e.PathA), RelPath: e.PathA})

		case 'M', 'T':
			if IsIgnorable(bRoot, e.PathB, true) {
				continue
			}
			if !fileExists(bRoot, e.PathB) {
				warnings = append(warnings, kitypes.DiffTargetFileNotFoundWarning{Path: e.PathB})
				continue
			}
			status := kitypes.Modified
			if e.Status == 'T' {
				status = kitypes.TypeChanged
			}
			deltas = append(deltas, kitypes.Delta{Status: status, AbsPath: filepath.Join(bRoot, e.PathB), RelPath: e.PathB})

		case 'R':
			if IsIgnorable(bRoot, e.PathB, true) {
				continue
			}
			if !fileExists(bRoot, e.PathB) {
				warnings = append(warnings, kitypes.DiffTargetFileNotFoundWarning{Path: e.PathB})
				continue
			}
			split, warn := renameIsGUIDChange(aRoot, bRoot, e.PathA, e.PathB)
			if warn != nil {
				warnings = append(warnings, warn)
			}
			if split {
				if fileExists(aRoot, e.PathA) {
					deltas = append(deltas, kitypes.Delta{Status: kitypes.Deleted, AbsPath: filepath.Join(aRoot, e.PathA), RelPath: e.PathA})
				}
				deltas = append(deltas, kitypes.Delta{Status: kitypes.Added, AbsPath: filepath.Join(bRoot, e.PathB), RelPath: e.PathB})
			} else {
				deltas = append(deltas, kitypes.Delta{Status: kitypes.Renamed, AbsPath: filepath.Join(bRoot, e.PathB), RelPath: e.PathB})
			}
		}
	}

	return deltas, warnings
}

// renameIsGUIDChange parses the note at both ends of a rename and
// reports whether the GUID changed (in which case the rename must be
// split into a delete + add so GUID-based identity is preserved).
func renameIsGUIDChange(aRoot, bRoot, pathA, pathB string) (bool, kitypes.Warning) {
	if !fileExists(aRoot, pathA) {
		return true, kitypes.DeletedFileNotFoundWarning{Path: pathA}
	}
	fa, err := noteio.ParseFlatNote(filepath.Join(aRoot, pathA))
	if err != nil {
		return true, nil
	}
	fb, err := noteio.ParseFlatNote(filepath.Join(bRoot, pathB))
	if err != nil {
		return true, nil
	}
	return fa.GUID != fb.GUID, nil
}

func fileExists(root, rel string) bool {
	_, err := os.Stat(filepath.Join(root, rel))
	return err == nil
}
