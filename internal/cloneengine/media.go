package cloneengine

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/kitypes"
)

// NotetypeMediaNID is the synthetic note id under which notetype-level
// (CSS/template) media references are tracked, matching the original's
// NOTETYPE_NID sentinel.
const NotetypeMediaNID int64 = -57

// underscoreFileRegex matches bare filenames beginning with "_" inside
// notetype CSS/templates, the convention Anki uses for notetype-owned
// media (fonts, shared images) as opposed to per-note media.
var underscoreFileRegex = regexp.MustCompile(`\b_[\w.-]+\.\w+\b`)

// CopyMedia copies, for every note, its referenced local media files
// that exist directly in the collection's media directory (root-level
// only — nested paths are never valid media references) into
// <targetRoot>/_media/, plus any "_"-prefixed files referenced from
// notetype CSS/templates. Returns nid -> copied filenames, with
// NotetypeMediaNID holding the notetype-level set.
func CopyMedia(c *collection.Collection, notes []kitypes.ColNote, notetypes []kitypes.Notetype, targetRoot string) (map[int64][]string, error) {
	mediaDir := filepath.Join(targetRoot, "_media")
	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		return nil, err
	}

	result := map[int64][]string{}
	srcDir := c.Media().Dir()

	for _, note := range notes {
		var names []string
		for pair := note.Fields.Oldest(); pair != nil; pair = pair.Next() {
			names = append(names, c.Media().Regexps(pair.Value)...)
		}
		copied, err := copyExisting(srcDir, mediaDir, names)
		if err != nil {
			return nil, err
		}
		if len(copied) > 0 {
			result[note.NID] = copied
		}
	}

	var ntNames []string
	for _, nt := range notetypes {
		ntNames = append(ntNames, underscoreFileRegex.FindAllString(nt.CSS, -1)...)
		for _, tmpl := range nt.Templates {
			ntNames = append(ntNames, underscoreFileRegex.FindAllString(tmpl.QFmt, -1)...)
			ntNames = append(ntNames, underscoreFileRegex.FindAllString(tmpl.AFmt, -1)...)
		}
	}
	copied, err := copyExisting(srcDir, mediaDir, ntNames)
	if err != nil {
		return nil, err
	}
	if len(copied) > 0 {
		result[NotetypeMediaNID] = copied
	}

	return result, nil
}

func copyExisting(srcDir, destDir string, names []string) ([]string, error) {
	var copied []string
	seen := map[string]bool{}
	for _, name := range names {
		if name == "" || strings.ContainsAny(name, "/\\") || seen[name] {
			continue
		}
		seen[name] = true

		src := filepath.Join(srcDir, name)
		info, err := os.Stat(src)
		if err != nil || info.IsDir() {
			continue
		}
		if err := copyFile(src, filepath.Join(destDir, name)); err != nil {
			return nil, err
		}
		copied = append(copied, name)
	}
	return copied, nil
}

func copyFile(src, dest string) error {
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
