package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

// ExitInterrupted is the exit status after SIGINT or SIGTERM.
const ExitInterrupted = 130

// PrintError prints an error to stderr with appropriate formatting.
// AaErrors use the user-friendly format; errors joined from several projects
// are printed one after another.
func PrintError(err error) {
	printError(os.Stderr, err)
}

func printError(w io.Writer, err error) {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for i, e := range joined.Unwrap() {
			if i > 0 {
				fmt.Fprintln(w)
			}
			printError(w, e)
		}
		return
	}
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(w, "Interrupted, nothing saved for unfinished projects")
		return
	}
	if aaErr := aaerrors.AsAaError(err); aaErr != nil {
		fmt.Fprintln(w, aaErr.UserMessage())
		if verbosity > 0 {
			// In verbose mode, also print the error code and cause
			fmt.Fprintf(w, "\nCode: %s\n", aaErr.Code)
			if aaErr.Cause != nil {
				fmt.Fprintf(w, "Cause: %v\n", aaErr.Cause)
			}
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	default:
		return 1
	}
}
