package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pwintz/ki/internal/cloneengine"
	"github.com/pwintz/ki/internal/collection"
	"github.com/pwintz/ki/internal/uiout"
)

var cloneCmd = &cobra.Command{
	Use:   "clone <collection> [<directory>] [<profile>]",
	Short: "Materialize a working repo from a flashcard collection",
	Args:  cobra.RangeArgs(1, 3),
	RunE:  runClone,
}

func init() {
	rootCmd.AddCommand(cloneCmd)
}

func runClone(cmd *cobra.Command, args []string) error {
	// A profile name, when given, resolves the collection path itself;
	// the leading <collection> argument is still required for the
	// no-profile form and is ignored when a profile is present.
	colPath := args[0]
	if len(args) >= 3 {
		resolved, err := resolveProfilePath(args[2])
		if err != nil {
			return err
		}
		colPath = resolved
	}

	targetDir := args[0]
	if len(args) >= 2 {
		targetDir = args[1]
	} else {
		base := filepath.Base(colPath)
		targetDir = base[:len(base)-len(filepath.Ext(base))]
	}

	col, err := collection.Open(colPath)
	if err != nil {
		return err
	}

	warnings, err := cloneengine.Clone(col, colPath, targetDir)
	closeErr := col.Close(false)
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	uiout.WarnAll(uiout.Stderr, warnings)
	noteCount, mediaCount, mediaBytes := cloneStats(targetDir)
	uiout.Echo(uiout.Stdout, quiet, "ki clone: wrote %s notes and %s media files (%s) to '%s'",
		humanize.Comma(int64(noteCount)), humanize.Comma(int64(mediaCount)), humanize.Bytes(mediaBytes), targetDir)
	return nil
}

// cloneStats walks the freshly written working tree to report note
// and media counts/sizes, the way the original's write_repository
// progress output does.
func cloneStats(targetDir string) (noteCount, mediaCount int, mediaBytes uint64) {
	filepath.Walk(targetDir, func(path string, info os.FileInfo, err error) error { //nolint:errcheck
		if err != nil || info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(targetDir, path)
		if relErr != nil {
			return nil
		}
		switch {
		case filepath.Ext(rel) == ".md":
			noteCount++
		case filepath.Dir(rel) == "_media" || strings.HasPrefix(rel, "_media"+string(filepath.Separator)):
			mediaCount++
			mediaBytes += uint64(info.Size())
		}
		return nil
	})
	return noteCount, mediaCount, mediaBytes
}
