package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/processor"
	"github.com/randalmurphal/aa/internal/remote"
)

// newListTasksCmd creates the list-tasks command
func newListTasksCmd() *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "list-tasks <project-id>",
		Short: "List the tasks of a remote project",
		Long: `List the root tasks of a project in creation order, the order update
numbers them in. With --tree every subtask is listed under its parent.

Examples:
  aa list-tasks 1203948571
  aa list-tasks PRJ --tree     # Jira project key`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := SetupSignalHandler()
			defer cancel()

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			if err := rt.checkAuth(ctx); err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			projectID := args[0]
			if tree {
				t, err := processor.Snapshot(ctx, rt.source, projectID, processor.DefaultMaxDepth, processor.DefaultFanout)
				if err != nil {
					return err
				}
				out.heading("Project %s: %d tasks", projectID, t.Size())
				out.blank()
				t.Walk(func(n *processor.Node) {
					out.line("%s%s", strings.Repeat("  ", n.Depth-1), n.Task.Name)
					out.note("%s  GID: %s  Created: %s", strings.Repeat("  ", n.Depth-1), n.Task.ID, n.Task.CreatedAt.Format("2006-01-02 15:04:05"))
				})
				return nil
			}

			tasks, err := rt.source.ListRootTasks(ctx, projectID)
			if err != nil {
				return err
			}
			remote.SortByCreation(tasks)
			out.heading("Project %s: %d root tasks", projectID, len(tasks))
			out.blank()
			for i, t := range tasks {
				out.line("%d. %s", i+1, t.Name)
				out.note("   GID: %s", t.ID)
				out.note("   Created: %s", t.CreatedAt.Format("2006-01-02 15:04:05"))
				out.note("   Subtasks: %s", subtaskCount(t))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "include every subtask")

	return cmd
}

func subtaskCount(t remote.Task) string {
	if t.NumSubtasks == remote.UnknownSubtasks {
		return "unknown"
	}
	return fmt.Sprint(t.NumSubtasks)
}
