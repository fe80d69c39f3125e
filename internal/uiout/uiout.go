// Package uiout formats ki's operator-facing output: plain status lines,
// yellow warnings, and red errors. It plays the role the original tool's
// click.secho() calls did, using github.com/fatih/color instead of click.
package uiout

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/pwintz/ki/internal/kitypes"
)

var (
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	bold   = color.New(color.Bold)
)

// Echo prints a bold status line to stdout, matching the original's
// echo(string, silent). Silent is typically wired to a --quiet flag.
func Echo(w io.Writer, silent bool, format string, args ...any) {
	if silent {
		return
	}
	bold.Fprintln(w, fmt.Sprintf(format, args...))
}

// Warn prints a yellow "WARNING: ..." line to stderr for a single
// warning, matching the original's warn(Warning).
func Warn(w io.Writer, warning kitypes.Warning) {
	yellow.Fprintf(w, "WARNING: %s\n", warning.Error())
}

// WarnAll prints every warning in order.
func WarnAll(w io.Writer, warnings []kitypes.Warning) {
	for _, warning := range warnings {
		Warn(w, warning)
	}
}

// Fatal prints a red "ki: ..." line to stderr. Callers still return the
// error up the stack for the CLI's exit-code handling; this only formats
// it for the operator.
func Fatal(w io.Writer, err error) {
	red.Fprintf(w, "ki: %s\n", err.Error())
}

// Stderr and Stdout are the default writers used by callers that don't
// need to redirect output for testing.
var (
	Stderr io.Writer = os.Stderr
	Stdout io.Writer = os.Stdout
)
