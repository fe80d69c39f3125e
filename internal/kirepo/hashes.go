package kirepo

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AppendHash appends a "<md5>  <tag>" line to .ki/hashes, matching the
// original's append_md5sum. Called after every successful clone/pull/
// push with the collection's freshly-recomputed MD5; clone passes the
// collection's file name as the second field, push and pull the commit
// SHA the sync is anchored to.
func (k *KiRepo) AppendHash(md5sum, tag string) error {
	f, err := os.OpenFile(filepath.Join(k.DotKi, hashesFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open hashes file: %w", err)
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s  %s\n", md5sum, tag)
	return err
}

// LastHashLine returns the last non-empty line of .ki/hashes, which is
// authoritative over any earlier line per spec's hashes file grammar.
func (k *KiRepo) LastHashLine() (md5sum, tag string, err error) {
	f, err := os.Open(filepath.Join(k.DotKi, hashesFile))
	if err != nil {
		return "", "", fmt.Errorf("open hashes file: %w", err)
	}
	defer f.Close()

	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	if err := sc.Err(); err != nil {
		return "", "", err
	}
	if last == "" {
		return "", "", nil
	}

	md5sum, tag, ok := strings.Cut(last, "  ")
	if !ok {
		return "", "", fmt.Errorf("malformed hashes line: %q", last)
	}
	return strings.TrimSpace(md5sum), strings.TrimSpace(tag), nil
}
