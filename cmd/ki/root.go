// Command ki synchronizes a markdown note tree with an Anki-style
// SQLite flashcard collection: clone materializes the tree, push writes
// working-tree edits back to the collection, pull brings collection
// edits into the tree.
//
// Grounded on the teacher's cmd/goclode/main.go for the overall binary
// shape and on jra3-linear-fuse's cmd/linear-fuse/commands/ (root.go +
// one file per subcommand) for the cobra command-tree layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pwintz/ki/internal/uiout"
)

var quiet bool

var rootCmd = &cobra.Command{
	Use:   "ki",
	Short: "Synchronize a flashcard collection with a markdown note tree",
	Long: `ki is a bidirectional synchronizer between a SQLite-backed flashcard
collection and a git-tracked tree of markdown note files: clone, pull, push.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress status output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		uiout.Fatal(uiout.Stderr, err)
		os.Exit(1)
	}
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(uiout.Stderr, err)
		os.Exit(1)
	}
	return dir
}
