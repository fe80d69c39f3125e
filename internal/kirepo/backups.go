package kirepo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pwintz/ki/internal/pathutil"
)

// Backup copies the collection file into .ki/backups/, named with a
// per-second timestamp and the file's md5sum. A backup whose name
// already exists (same second, same content) is skipped, as in the
// original's backup(); the same content at a different time gets a new
// file.
func (k *KiRepo) Backup(now time.Time) error {
	sum, err := pathutil.MD5File(k.ColPath)
	if err != nil {
		return fmt.Errorf("md5 collection: %w", err)
	}
	name := fmt.Sprintf("%s--%s.anki2", now.Format("2006-01-02--15h-04m-05s"), sum)
	dest := filepath.Join(k.BackupsDir, name)

	if _, err := os.Stat(dest); err == nil {
		return nil
	}

	src, err := os.Open(k.ColPath)
	if err != nil {
		return fmt.Errorf("open collection for backup: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create backup %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write backup %s: %w", dest, err)
	}
	return nil
}
