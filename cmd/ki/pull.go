package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pwintz/ki/internal/kitypes"
	"github.com/pwintz/ki/internal/pullengine"
	"github.com/pwintz/ki/internal/uiout"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Bring collection edits into the working note tree",
	Args:  cobra.NoArgs,
	RunE:  runPull,
}

func init() {
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, args []string) error {
	result, conflictOutput, err := pullengine.Pull(cwd())
	if err != nil {
		return err
	}

	if conflictOutput != "" {
		fmt.Fprintln(uiout.Stderr, conflictOutput)
		uiout.Echo(uiout.Stdout, quiet, "ki pull: merge conflicts, resolve by hand.")
		return nil
	}

	if result == kitypes.UpToDate {
		uiout.Echo(uiout.Stdout, quiet, "ki pull: up to date.")
		return nil
	}
	uiout.Echo(uiout.Stdout, quiet, "ki pull: working tree updated.")
	return nil
}
