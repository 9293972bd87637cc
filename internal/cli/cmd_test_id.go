package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/ident"
)

// newTestIDCmd creates the test-id command
func newTestIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test-id <task-name> <project-code>",
		Short: "Show the ID aa would read from a task name",
		Long: `Extract the ID from a task name the way scan and update do. Only IDs
with the given project code count.

Examples:
  aa test-id "PRJ-12-3 Write docs" PRJ    # Found ID: PRJ-12-3
  aa test-id "OPS-4 Deploy" PRJ           # No ID found`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, code := args[0], args[1]
			if !ident.ValidCode(code) {
				return fmt.Errorf("invalid project code %q: must be 2-5 uppercase letters", code)
			}

			out := newPrinter(cmd.OutOrStdout())
			if id, ok := ident.Extract(name, code); ok {
				out.line("Found ID: %s", id)
			} else {
				out.line("No ID found in task name")
			}
			return nil
		},
	}
}
