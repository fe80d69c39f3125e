package gitutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// CopyAtRev copies the repo's working directory into a fresh temp
// directory under baseDir (named with a random uuid suffix so repeated
// ephemeral clones within one process never collide) and hard-resets
// the copy to rev. Mirrors the original's cp_repo: a full filesystem
// copy plus `git reset --hard`, used both for head_kirepo snapshots and
// for the LCA/remote scratch clones the merge protocol builds on.
func (r *Repo) CopyAtRev(baseDir, rev string) (*Repo, error) {
	dest := filepath.Join(baseDir, "ki-"+uuid.NewString())
	if err := copyTree(r.workDir, dest); err != nil {
		return nil, fmt.Errorf("copy repo to %s: %w", dest, err)
	}
	ephem := Open(dest)
	if err := ephem.ResetHard(rev); err != nil {
		return nil, fmt.Errorf("reset %s to %s: %w", dest, rev, err)
	}
	return ephem, nil
}

func copyTree(src, dest string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)

		if info.Mode()&os.ModeSymlink != 0 {
			linkTarget, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(linkTarget, target)
		}
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dest string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
