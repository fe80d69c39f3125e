package gitutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNameStatusHandlesRenameAndPlainStatuses(t *testing.T) {
	out := "A\tnew.md\nD\told.md\nM\tedited.md\nR100\tfrom.md\tto.md\n"
	entries := parseNameStatus(out)

	assert.Len(t, entries, 4)
	assert.Equal(t, DiffEntry{Status: 'A', PathA: "new.md", PathB: "new.md"}, entries[0])
	assert.Equal(t, DiffEntry{Status: 'D', PathA: "old.md", PathB: "old.md"}, entries[1])
	assert.Equal(t, DiffEntry{Status: 'M', PathA: "edited.md", PathB: "edited.md"}, entries[2])
	assert.Equal(t, DiffEntry{Status: 'R', PathA: "from.md", PathB: "to.md"}, entries[3])
}

func TestParseNameStatusSkipsBlankLines(t *testing.T) {
	entries := parseNameStatus("\nA\tfile.md\n\n")
	assert.Len(t, entries, 1)
}
