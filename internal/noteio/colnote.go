package noteio

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pwintz/ki/internal/kitypes"
)

// Markdown renders a collection note as the markdown file body ki
// writes into the working tree: a fenced header of guid/notetype, a
// fenced tags block, then one `## <field>` section per field.
func Markdown(note kitypes.ColNote) string {
	var b strings.Builder
	b.WriteString(headerTitle + "\n")
	b.WriteString(headerFence + "\n")
	fmt.Fprintf(&b, "guid: %s\n", note.GUID)
	fmt.Fprintf(&b, "notetype: %s\n", note.Notetype.Name)
	b.WriteString(headerFence + "\n\n")
	b.WriteString(headerTagHead + "\n")
	b.WriteString(headerFence + "\n")
	for _, tag := range note.Tags {
		b.WriteString(tag + "\n")
	}
	b.WriteString(headerFence + "\n")

	for pair := note.Fields.Oldest(); pair != nil; pair = pair.Next() {
		b.WriteString("\n## " + pair.Key + "\n")
		b.WriteString(HTMLToScreen(pair.Value) + "\n")
	}
	return b.String()
}

var (
	styleBlockRegex = regexp.MustCompile(`(?s)<style>.*?</style>`)
	brRegex         = regexp.MustCompile(`(?i)<br\s*/?>`)
	divOpenRegex    = regexp.MustCompile(`(?i)<div>`)
	divCloseRegex   = regexp.MustCompile(`(?i)</div>`)
	htmlTagPresent  = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	emptyBRegex     = regexp.MustCompile(`<b>\s*</b>`)
	emptyIRegex     = regexp.MustCompile(`<i>\s*</i>`)
	emptyDivRegex   = regexp.MustCompile(`<div>\s*</div>`)
)

// HTMLToScreen converts a single field's HTML into the plaintext shown
// inside a markdown file: strips <style> blocks, turns <br>/<div> tags
// into newlines, and unescapes the handful of HTML entities Anki fields
// commonly carry. It intentionally does very little else, mirroring the
// original's html_to_screen.
func HTMLToScreen(html string) string {
	html = styleBlockRegex.ReplaceAllString(html, "")

	plain := html
	plain = strings.ReplaceAll(plain, `\\\\`, `\\`)
	plain = strings.ReplaceAll(plain, `\\{`, `\{`)
	plain = strings.ReplaceAll(plain, `\\}`, `\}`)
	plain = strings.ReplaceAll(plain, `\*}`, `*}`)

	plain = strings.ReplaceAll(plain, "&lt;", "<")
	plain = strings.ReplaceAll(plain, "&gt;", ">")
	plain = strings.ReplaceAll(plain, "&amp;", "&")
	plain = strings.ReplaceAll(plain, "&nbsp;", " ")

	plain = brRegex.ReplaceAllString(plain, "\n")
	plain = divOpenRegex.ReplaceAllString(plain, "")
	plain = divCloseRegex.ReplaceAllString(plain, "\n")

	return strings.TrimSpace(plain)
}

// PlainToHTML is HTMLToScreen's partial inverse, used when a field's
// markdown text is written back into the collection: newlines become
// <br> only when the text contains no HTML already, and a few harmless
// empty-tag artifacts are cleaned up, mirroring the original's
// plain_to_html.
func PlainToHTML(plain string) string {
	plain = strings.ReplaceAll(plain, "&lt;", "<")
	plain = strings.ReplaceAll(plain, "&gt;", ">")
	plain = strings.ReplaceAll(plain, "&amp;", "&")
	plain = strings.ReplaceAll(plain, "&nbsp;", " ")

	plain = emptyBRegex.ReplaceAllString(plain, "")
	plain = emptyIRegex.ReplaceAllString(plain, "")
	plain = emptyDivRegex.ReplaceAllString(plain, "")

	if !htmlTagPresent.MatchString(plain) {
		plain = strings.ReplaceAll(plain, "\n", "<br>")
	}

	return strings.TrimSpace(plain)
}
