package collection

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pwintz/ki/internal/kitypes"
)

// MediaAccessor scopes media-directory operations, mirroring
// col.media / MediaManager.
type MediaAccessor struct{ c *Collection }

// Media returns the media accessor for this collection.
func (c *Collection) Media() MediaAccessor { return MediaAccessor{c} }

// Dir returns the collection's media directory path, e.g.
// "collection.anki2" -> "collection.media".
func (m MediaAccessor) Dir() string { return m.c.mediaDir }

// Have reports whether name already exists in the media directory.
func (m MediaAccessor) Have(name string) bool {
	_, err := os.Stat(filepath.Join(m.Dir(), name))
	return err == nil
}

// AddFile copies the file at srcPath into the media directory under its
// base name, unless a file with that name already exists with different
// content — in which case it is renamed "<stem>-<sha256 prefix><ext>",
// matching Anki's collision-rename convention. Returns the name the file
// was stored under (which may differ from the source's base name) and,
// when a rename occurred, a RenamedMediaFileWarning.
func (m MediaAccessor) AddFile(srcPath string) (string, kitypes.Warning, error) {
	if err := os.MkdirAll(m.Dir(), 0o755); err != nil {
		return "", nil, fmt.Errorf("create media dir: %w", err)
	}

	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", srcPath, err)
	}

	base := filepath.Base(srcPath)
	dest := filepath.Join(m.Dir(), base)
	if existing, err := os.ReadFile(dest); err == nil {
		if sameBytes(existing, data) {
			return base, nil, nil
		}
		sum := sha256.Sum256(data)
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		renamed := fmt.Sprintf("%s-%s%s", stem, hex.EncodeToString(sum[:])[:8], ext)
		if err := os.WriteFile(filepath.Join(m.Dir(), renamed), data, 0o644); err != nil {
			return "", nil, fmt.Errorf("write %s: %w", renamed, err)
		}
		return renamed, kitypes.RenamedMediaFileWarning{OldName: base, NewName: renamed}, nil
	}

	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", nil, fmt.Errorf("write %s: %w", base, err)
	}
	return base, nil, nil
}

func sameBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// mediaRefRegex matches <img src="..."> and [sound:...] references, the
// two forms Anki field HTML embeds media with.
var mediaRefRegex = regexp.MustCompile(`(?:<img[^>]+src=["']([^"']+)["'])|(?:\[sound:([^\]]+)\])`)

// Regexps extracts every media filename referenced in an HTML field
// value.
func (m MediaAccessor) Regexps(field string) []string {
	matches := mediaRefRegex.FindAllStringSubmatch(field, -1)
	var out []string
	for _, match := range matches {
		if match[1] != "" {
			out = append(out, match[1])
		} else if match[2] != "" {
			out = append(out, match[2])
		}
	}
	return out
}

// EscapeMediaFilenames is the inverse of the HTML unescape ki's note
// writer performs on field text before embedding a media filename in a
// markdown body: certain characters in on-disk filenames are not valid
// unescaped in HTML attributes.
func (m MediaAccessor) EscapeMediaFilenames(name string) string {
	r := strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
	return r.Replace(name)
}
