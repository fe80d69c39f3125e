package kirepo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pwintz/ki/internal/kitypes"
)

// MediaLink is one planned symlink in the per-deck media chain: a
// "_media" directory inside a deck's own directory pointing at its
// parent's "_media" (or, for top-level decks, at the repo root's
// "_media/"). Because each link's target may itself be a symlink, the
// chain resolves transitively all the way to the root, so any deck can
// reach any media file added anywhere above it in the tree.
type MediaLink struct {
	Path   string // "<deck dir>/_media"
	Target string // resolved directory the link points at, relative to Path's parent
}

// PlanMediaChain walks the deck tree in preorder (so a parent's link
// path is decided before its children need it) and returns the full set
// of per-deck media symlinks clone/push must create.
func PlanMediaChain(root *kitypes.DeckNode, rootMediaDir string) []MediaLink {
	parents := kitypes.ParentMap(root)
	var links []MediaLink
	for _, node := range kitypes.Preorder(root) {
		linkPath := filepath.Join(node.DirPath, mediaDir)
		parent := parents[node.FullName]

		var targetDir string
		if parent == nil || parent.IsRoot {
			targetDir = rootMediaDir
		} else {
			targetDir = filepath.Join(parent.DirPath, mediaDir)
		}

		rel, err := filepath.Rel(filepath.Dir(linkPath), targetDir)
		if err != nil {
			rel = targetDir
		}
		links = append(links, MediaLink{Path: linkPath, Target: rel})
	}
	return links
}

// CreateMediaChain materializes the planned links, skipping any path
// that already exists (re-running clone/push is idempotent here).
func CreateMediaChain(links []MediaLink) error {
	for _, link := range links {
		if _, err := os.Lstat(link.Path); err == nil {
			continue
		}
		if err := os.Symlink(link.Target, link.Path); err != nil {
			return fmt.Errorf("symlink %s -> %s: %w", link.Path, link.Target, err)
		}
	}
	return nil
}
