// Package cloneengine materializes a fresh working tree from a
// collection: one directory per deck, one markdown file per note, a
// root and per-deck models.json, a copied-and-chained _media tree, and
// an initial git commit tagged as the sync anchor.
//
// Grounded on the original's _clone1/_clone2/write_repository and the
// teacher's internal/git.Manager for the git-plumbing half.
package cloneengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/gitutil"
	"github.com/pwintz/ki/internal/kirepo"
	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pathutil"
)

// lcaTag is the name of the tag marking the last point at which the
// working tree and collection were known to be in sync.
const lcaTag = "last-successful-ki-push"

const gitignoreContents = ".ki/backups/\n"
const gitattributesContents = "*.md text\n"

// Clone builds a fresh working tree at targetDir from the collection
// already open at col, which must live at colPath. targetDir must be an
// empty directory (or not yet exist); on any failure, Clone removes it
// if it created it, or empties it if it pre-existed, so partial clones
// never linger on disk.
func Clone(col *collection.Collection, colPath, targetDir string) ([]kitypes.Warning, error) {
	createdDir, err := ensureEmptyTarget(targetDir)
	if err != nil {
		return nil, err
	}

	warnings, err := clone(col, colPath, targetDir)
	if err != nil {
		if createdDir {
			os.RemoveAll(targetDir)
		} else {
			clearDir(targetDir)
		}
		return nil, err
	}
	return warnings, nil
}

func ensureEmptyTarget(targetDir string) (created bool, err error) {
	info, statErr := os.Stat(targetDir)
	if statErr == nil {
		if !info.IsDir() {
			return false, &kitypes.TargetExistsError{Path: targetDir}
		}
		entries, err := os.ReadDir(targetDir)
		if err != nil {
			return false, err
		}
		if len(entries) > 0 {
			return false, &kitypes.TargetExistsError{Path: targetDir}
		}
		return false, nil
	}
	if !os.IsNotExist(statErr) {
		return false, statErr
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return false, err
	}
	return true, nil
}

func clearDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		os.RemoveAll(filepath.Join(dir, e.Name()))
	}
}

func clone(col *collection.Collection, colPath, targetDir string) ([]kitypes.Warning, error) {
	if err := os.WriteFile(filepath.Join(targetDir, ".gitignore"), []byte(gitignoreContents), 0o644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(targetDir, ".gitattributes"), []byte(gitattributesContents), 0o644); err != nil {
		return nil, err
	}
	if _, err := kirepo.Init(targetDir, colPath); err != nil {
		return nil, err
	}

	nids, err := col.AllNoteIDs()
	if err != nil {
		return nil, err
	}
	var notes []kitypes.ColNote
	for _, nid := range nids {
		note, ok, err := col.NoteByID(nid)
		if err != nil {
			return nil, err
		}
		if ok {
			notes = append(notes, *note)
		}
	}

	nameToID, err := col.Models().AllNamesAndIDs()
	if err != nil {
		return nil, err
	}
	var notetypes []kitypes.Notetype
	for _, mid := range nameToID {
		nt, ok, err := col.Models().Get(mid)
		if err != nil {
			return nil, err
		}
		if ok {
			notetypes = append(notetypes, nt)
		}
	}

	if _, err := CopyMedia(col, notes, notetypes, targetDir); err != nil {
		return nil, err
	}

	tree, warnings, err := buildDeckTree(col, targetDir)
	if err != nil {
		return nil, err
	}

	if err := WriteRootModels(col, targetDir); err != nil {
		return nil, err
	}
	for _, node := range kitypes.Preorder(tree) {
		if err := WriteDeckModels(col, node); err != nil {
			return nil, err
		}
	}

	links := kirepo.PlanMediaChain(tree, filepath.Join(targetDir, "_media"))
	if err := kirepo.CreateMediaChain(links); err != nil {
		return nil, err
	}

	noteWarnings, err := writeNotes(col, notes, tree)
	if err != nil {
		return nil, err
	}
	warnings = append(warnings, noteWarnings...)

	repo := gitutil.Open(targetDir)
	if err := repo.Init(); err != nil {
		return nil, err
	}
	if _, err := repo.CommitAll("Initial commit"); err != nil {
		return nil, err
	}
	if dirty, err := repo.IsDirty(); err != nil {
		return nil, err
	} else if dirty {
		return nil, &kitypes.NonEmptyWorkingTreeError{Root: targetDir}
	}
	if err := repo.Tag(lcaTag, ""); err != nil {
		return nil, err
	}

	sum, err := pathutil.MD5File(colPath)
	if err != nil {
		return nil, err
	}
	kr, err := kirepo.Discover(targetDir)
	if err != nil {
		return nil, err
	}
	if err := kr.AppendHash(sum, filepath.Base(colPath)); err != nil {
		return nil, err
	}

	return warnings, nil
}

// buildDeckTree materializes a directory per deck (skipping any deck
// whose name collides with the reserved "_media" name) and sets each
// node's DirPath.
func buildDeckTree(col *collection.Collection, targetDir string) (*kitypes.DeckNode, []kitypes.Warning, error) {
	tree, err := col.Decks().Tree()
	if err != nil {
		return nil, nil, err
	}
	tree.DirPath = targetDir

	var warnings []kitypes.Warning
	var walk func(node *kitypes.DeckNode, parentDir string) []*kitypes.DeckNode
	walk = func(node *kitypes.DeckNode, parentDir string) []*kitypes.DeckNode {
		var kept []*kitypes.DeckNode
		for _, child := range node.Children {
			parts := strings.Split(child.FullName, "::")
			leaf := parts[len(parts)-1]
			if leaf == "_media" {
				warnings = append(warnings, kitypes.MediaDirectoryDeckNameCollisionWarning{DeckName: child.FullName})
				continue
			}
			child.DirPath = filepath.Join(parentDir, leaf)
			if err := os.MkdirAll(child.DirPath, 0o755); err != nil {
				continue
			}
			child.Children = walk(child, child.DirPath)
			kept = append(kept, child)
		}
		return kept
	}
	tree.Children = walk(tree, targetDir)
	return tree, warnings, nil
}

// writeNotes writes one markdown file per note into the directory of
// the single deck owning its first card; any additional decks the
// note's other cards belong to get a symlink to that primary file.
func writeNotes(col *collection.Collection, notes []kitypes.ColNote, tree *kitypes.DeckNode) ([]kitypes.Warning, error) {
	byID := map[int64]*kitypes.DeckNode{}
	for _, node := range kitypes.Preorder(tree) {
		byID[node.DID] = node
	}

	var warnings []kitypes.Warning
	for _, note := range notes {
		dids, err := col.List(`SELECT DISTINCT did FROM cards WHERE nid = ?`, note.NID)
		if err != nil {
			return nil, err
		}
		var decks []*kitypes.DeckNode
		for _, did := range dids {
			if node, ok := byID[did]; ok {
				decks = append(decks, node)
			}
		}
		if len(decks) == 0 {
			continue
		}

		primary := decks[0]
		path, err := WriteNote(note, primary.DirPath, "")
		if err != nil {
			return nil, err
		}

		for _, other := range decks[1:] {
			link := filepath.Join(other.DirPath, filepath.Base(path))
			rel, err := filepath.Rel(other.DirPath, path)
			if err != nil {
				rel = path
			}
			if _, err := os.Lstat(link); err == nil {
				continue
			}
			if err := os.Symlink(rel, link); err != nil {
				return nil, fmt.Errorf("symlink %s: %w", link, err)
			}
		}
	}
	return warnings, nil
}
