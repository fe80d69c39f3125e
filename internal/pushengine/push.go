// Package pushengine implements ki's push operation: diff the working
// tree against an ephemeral echo of the live collection, apply the
// resulting deltas to a private copy of the collection, then swap the
// copy in and record the new sync point.
//
// Grounded on the original's _push/write_collection.
package pushengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pwintz/ki/internal/cloneengine"
	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kirepo"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pathutil"
	"github.com/pwintz/ki/internal/syncdelta"
)

const lcaTag = "last-successful-ki-push"

// Push executes the full push algorithm against the repo at repoRoot,
// returning whether any changes were actually pushed, along with a
// count of notes changed per change type (mirroring the original's
// echo_note_change_types progress table) for the caller to report.
func Push(repoRoot string, now time.Time) (kitypes.PushResult, []kitypes.Warning, map[string]int, error) {
	kr, err := kirepo.Discover(repoRoot)
	if err != nil {
		return 0, nil, nil, err
	}

	sum, err := pathutil.MD5File(kr.ColPath)
	if err != nil {
		return 0, nil, nil, err
	}
	lastSum, _, err := kr.LastHashLine()
	if err != nil {
		return 0, nil, nil, err
	}
	if sum != lastSum {
		return 0, nil, nil, &kitypes.UpdatesRejectedError{ColPath: kr.ColPath}
	}

	tmpBase, err := os.MkdirTemp("", "ki-push-")
	if err != nil {
		return 0, nil, nil, err
	}
	defer os.RemoveAll(tmpBase)

	headRepo := gitutil.Open(kr.Root)
	headSHA, err := headRepo.CurrentCommit()
	if err != nil {
		return 0, nil, nil, err
	}
	headSnapshot, err := headRepo.CopyAtRev(tmpBase, headSHA)
	if err != nil {
		return 0, nil, nil, err
	}

	col, err := collection.Open(kr.ColPath)
	if err != nil {
		return 0, nil, nil, err
	}

	remoteDir := filepath.Join(tmpBase, "remote")
	if _, err := cloneengine.Clone(col, kr.ColPath, remoteDir); err != nil {
		col.Close(false)
		return 0, nil, nil, fmt.Errorf("clone remote echo: %w", err)
	}
	remoteRepo := gitutil.Open(remoteDir)
	sha0, err := remoteRepo.CurrentCommit()
	if err != nil {
		col.Close(false)
		return 0, nil, nil, err
	}
	remoteAtSha0, err := remoteRepo.CopyAtRev(tmpBase, sha0)
	if err != nil {
		col.Close(false)
		return 0, nil, nil, err
	}

	if err := overlayWorkingTree(headSnapshot.WorkDir(), remoteDir); err != nil {
		col.Close(false)
		return 0, nil, nil, err
	}
	sha1, err := remoteRepo.CommitAll(fmt.Sprintf("Pull changes from repository at '%s'", kr.Root))
	if err != nil && !strings.Contains(err.Error(), "no changes to commit") {
		col.Close(false)
		return 0, nil, nil, err
	}
	if sha1 == "" {
		sha1 = sha0
	}

	diffEntries, err := remoteRepo.Diff(sha0, sha1)
	if err != nil {
		col.Close(false)
		return 0, nil, nil, err
	}
	deltas, warnings := syncdelta.Extract(diffEntries, remoteAtSha0.WorkDir(), remoteDir)

	if len(deltas) == 0 {
		col.Close(false)
		return kitypes.UpToDate, warnings, nil, nil
	}

	counts := changeCounts(deltas)

	models, err := cloneengine.LoadModelsRecursively(headSnapshot.WorkDir())
	if err != nil {
		col.Close(false)
		return 0, nil, nil, err
	}

	col.Close(false)

	writeWarnings, err := writeCollection(kr, deltas, models, remoteAtSha0.WorkDir(), remoteDir, headSnapshot.WorkDir(), now)
	if err != nil {
		return 0, nil, nil, err
	}
	warnings = append(warnings, writeWarnings...)

	return kitypes.Nontrivial, warnings, counts, nil
}

// changeCounts tallies deltas by change type for the push progress
// table, e.g. {"ADD": 3, "MODIFY": 1, "DELETE": 2}.
func changeCounts(deltas []kitypes.Delta) map[string]int {
	counts := map[string]int{}
	for _, d := range deltas {
		counts[d.Status.String()]++
	}
	return counts
}

// overlayWorkingTree makes dest's working tree (minus its ".git"
// directory) an exact mirror of src's: every file src has is copied or
// relinked into dest, and every file dest has that src lacks is
// removed, so a note deleted from the user's tree shows up as a
// deletion in the resulting diff rather than lingering in dest.
func overlayWorkingTree(src, dest string) error {
	if err := mirrorInto(src, dest); err != nil {
		return err
	}
	return pruneExtra(src, dest)
}

func isGitTop(rel string) bool {
	return rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator))
}

func mirrorInto(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if isGitTop(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dest, rel)
		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			os.Remove(target)
			return os.Symlink(linkTarget, target)
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

// pruneExtra removes anything under dest that has no counterpart under
// src, leaving ".git" untouched.
func pruneExtra(src, dest string) error {
	return filepath.Walk(dest, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		rel, err := filepath.Rel(dest, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if isGitTop(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if _, err := os.Lstat(filepath.Join(src, rel)); os.IsNotExist(err) {
			if removeErr := os.RemoveAll(path); removeErr != nil {
				return removeErr
			}
			if info.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, data, perm)
}
