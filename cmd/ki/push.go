package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pushengine"
	"github.com/pwintz/ki/internal/uiout"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Write working-tree edits back to the flashcard collection",
	Args:  cobra.NoArgs,
	RunE:  runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	result, warnings, counts, err := pushengine.Push(cwd(), time.Now())
	if err != nil {
		return err
	}

	uiout.WarnAll(uiout.Stderr, warnings)
	if result == kitypes.UpToDate {
		uiout.Echo(uiout.Stdout, quiet, "ki push: up to date.")
		return nil
	}

	printChangeCounts(counts)
	uiout.Echo(uiout.Stdout, quiet, "ki push: collection updated.")
	return nil
}

// printChangeCounts reports how many notes were added, modified, deleted
// or renamed, mirroring the original's echo_note_change_types table.
func printChangeCounts(counts map[string]int) {
	if quiet || len(counts) == 0 {
		return
	}
	kinds := make([]string, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	total := 0
	for _, kind := range kinds {
		n := counts[kind]
		total += n
		fmt.Fprintf(uiout.Stdout, "  %-10s %s\n", kind, humanize.Comma(int64(n)))
	}
	fmt.Fprintf(uiout.Stdout, "  %-10s %s\n", "total", humanize.Comma(int64(total)))
}
