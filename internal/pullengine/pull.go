// Package pullengine implements ki's pull operation: merge the
// collection's current state into the user's working repo via a
// synthetic last-common-ancestor snapshot, since the collection itself
// carries no git history of its own.
//
// Grounded on the original's _pull/get_latest_collection and the
// teacher's internal/git.Manager for the git-plumbing half.
package pullengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pwintz/ki/internal/cloneengine"
	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kirepo"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pathutil"
)

const lcaTag = "last-successful-ki-push"

// Pull executes the 3-step pull algorithm against the repo at
// repoRoot, returning whether the merge changed anything and any
// conflict output git produced. Non-empty conflictOutput means the
// merge was left for the user to resolve by hand and the hashes file
// was not updated.
func Pull(repoRoot string) (result kitypes.PushResult, conflictOutput string, err error) {
	kr, err := kirepo.Discover(repoRoot)
	if err != nil {
		return 0, "", err
	}

	beforeSum, err := pathutil.MD5File(kr.ColPath)
	if err != nil {
		return 0, "", err
	}
	lastSum, _, err := kr.LastHashLine()
	if err != nil {
		return 0, "", err
	}
	if beforeSum == lastSum {
		return kitypes.UpToDate, "", nil
	}

	tmpBase, err := os.MkdirTemp("", "ki-pull-")
	if err != nil {
		return 0, "", err
	}
	defer os.RemoveAll(tmpBase)

	workRepo := gitutil.Open(kr.Root)
	preMergeHead, err := workRepo.CurrentCommit()
	if err != nil {
		return 0, "", err
	}

	localSnap, err := workRepo.CopyAtRev(tmpBase, lcaTag)
	if err != nil {
		return 0, "", fmt.Errorf("snapshot LCA: %w", err)
	}
	localRepo := gitutil.Open(localSnap.WorkDir())
	snapBranch, err := localRepo.CurrentBranch()
	if err != nil {
		return 0, "", err
	}

	col, err := collection.Open(kr.ColPath)
	if err != nil {
		return 0, "", err
	}

	remoteDir := filepath.Join(tmpBase, "remote")
	if _, err := cloneengine.Clone(col, kr.ColPath, remoteDir); err != nil {
		col.Close(false)
		return 0, "", fmt.Errorf("clone fresh collection: %w", err)
	}
	col.Close(false)

	if err := localRepo.AddRemote("ki-remote", remoteDir); err != nil {
		return 0, "", err
	}
	if err := localRepo.FetchRemote("ki-remote"); err != nil {
		return 0, "", err
	}

	if err := removeDeletedFromLocal(localSnap.WorkDir(), remoteDir); err != nil {
		return 0, "", err
	}
	if err := overlayInto(remoteDir, localSnap.WorkDir()); err != nil {
		return 0, "", err
	}
	if _, err := localRepo.CommitAll("Merge in remote collection state"); err != nil && !strings.Contains(err.Error(), "no changes to commit") {
		return 0, "", err
	}

	out, pullErr := workRepo.Pull(localSnap.WorkDir(), snapBranch)
	if pullErr != nil {
		if strings.Contains(pullErr.Error(), "Aborting") {
			return kitypes.Nontrivial, pullErr.Error(), nil
		}
		return 0, "", pullErr
	}
	if strings.Contains(out, "Aborting") {
		return kitypes.Nontrivial, out, nil
	}

	if err := workRepo.CheckoutPathFromRev(preMergeHead, filepath.Join(".ki", "hashes")); err != nil {
		return 0, "", err
	}

	afterSum, err := pathutil.MD5File(kr.ColPath)
	if err != nil {
		return 0, "", err
	}
	if afterSum != beforeSum {
		return 0, "", &kitypes.CollectionChecksumError{ColPath: kr.ColPath}
	}

	preHashSHA, err := workRepo.CurrentCommit()
	if err != nil {
		return 0, "", err
	}
	if err := kr.AppendHash(afterSum, preHashSHA); err != nil {
		return 0, "", err
	}
	if _, err := workRepo.CommitPaths([]string{filepath.Join(".ki", "hashes")}, "Update hashes file"); err != nil {
		return 0, "", fmt.Errorf("commit hashes: %w", err)
	}

	if err := workRepo.DeleteTag(lcaTag); err != nil {
		return 0, "", err
	}
	if err := workRepo.Tag(lcaTag, ""); err != nil {
		return 0, "", err
	}

	return kitypes.Nontrivial, "", nil
}

func isGitTop(rel string) bool {
	return rel == ".git" || strings.HasPrefix(rel, ".git"+string(filepath.Separator))
}

// removeDeletedFromLocal removes, from the LCA snapshot, any tracked
// file the fresh remote clone no longer has, mirroring the remote
// side's deletions via `git rm` before the overlay copy.
func removeDeletedFromLocal(localDir, remoteDir string) error {
	repo := gitutil.Open(localDir)
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(localDir, path)
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
		if info.IsDir() {
			return nil
		}
		if _, statErr := os.Stat(filepath.Join(remoteDir, rel)); os.IsNotExist(statErr) {
			if _, err := repo.RM(rel); err != nil {
				return err
			}
		}
		return nil
	})
}

// overlayInto copies every file from src over dest, except ".git",
// adding or updating files but never removing any (deletions were
// already applied via removeDeletedFromLocal).
func overlayInto(src, dest string) error {
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
