package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"thymus/internal/errors"
)

func main() {
	os.Exit(run())
}

// run executes the root command and maps its error to an exit code.
// Errors print as "Error: ..." and exit 1; an exitError carries its own
// code and prints nothing.
func run() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	printError(os.Stderr, err)
	return 1
}

// printError writes err and, for coded errors, the suggested fixes.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var te *errors.ThymusError
	if !stderrors.As(err, &te) {
		return
	}
	fixes := te.SuggestedFixes
	if len(fixes) == 0 {
		fixes = errors.GetSuggestedFixes(te.Code)
	}
	for _, f := range fixes {
		switch {
		case f.Command != "":
			fmt.Fprintf(w, "  hint: %s (%s)\n", f.Description, f.Command)
		case f.Path != "":
			fmt.Fprintf(w, "  hint: %s (%s)\n", f.Description, f.Path)
		default:
			fmt.Fprintf(w, "  hint: %s\n", f.Description)
		}
	}
}

// exitError ends a command with a non-zero exit code after its output
// has already been written.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
