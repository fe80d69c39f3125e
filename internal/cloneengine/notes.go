package cloneengine

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/noteio"
	"github.com/pwintz/ki/internal/pathutil"
)

const mdExt = ".md"

// NotePath picks the on-disk filename for a note inside deckDir,
// slugifying its sort field text and disambiguating collisions with a
// numeric suffix, mirroring the original's get_note_path.
func NotePath(note kitypes.ColNote, deckDir, cardName string) string {
	text := stripTags(note.SFLD)
	slug := pathutil.Slug(text)

	if slug == "" {
		all := ""
		for pair := note.Fields.Oldest(); pair != nil; pair = pair.Next() {
			if all != "" {
				all += " "
			}
			all += pair.Value
		}
		slug = pathutil.Slug(all)
	}

	if slug == "" {
		guidHex := hex.EncodeToString([]byte(note.GUID))
		created := time.UnixMilli(note.NID)
		slug = fmt.Sprintf("%s--%s--%s", note.Notetype.Name, guidHex, created.Format("2006-01-02--15h-04m-05s"))
	}

	if cardName != "" {
		slug = slug + "_" + cardName
	}

	filename := slug + mdExt
	path := filepath.Join(deckDir, filename)
	for i := 1; fileExists(path); i++ {
		filename = fmt.Sprintf("%s_%d%s", slug, i, mdExt)
		path = filepath.Join(deckDir, filename)
	}
	return path
}

func stripTags(s string) string {
	var b []byte
	inTag := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '<':
			inTag = true
		case s[i] == '>':
			inTag = false
		case !inTag:
			b = append(b, s[i])
		}
	}
	return string(b)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteNote renders and writes a single note's markdown file.
func WriteNote(note kitypes.ColNote, deckDir, cardName string) (string, error) {
	path := NotePath(note, deckDir, cardName)
	if err := os.MkdirAll(deckDir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(noteio.Markdown(note)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
