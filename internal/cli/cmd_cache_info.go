package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/cache"
	"github.com/randalmurphal/aa/internal/ident"
)

// newCacheInfoCmd creates the cache-info command
func newCacheInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-info",
		Short: "Show the counters stored in the cache",
		Long: `Print the last assigned root ID and every subtask counter per project.

Examples:
  aa cache-info
  aa cache-info --cache counters.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cacheFile()
			if path == "" {
				path = cache.DefaultPath
			}
			store := cache.Open(path)
			defer func() { _ = store.Close() }()

			out := newPrinter(cmd.OutOrStdout())
			if !store.Exists() {
				out.failure("Cache file not found: %s", path)
				out.line("Run 'aa scan' to create the cache.")
				return nil
			}

			data, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			out.heading("Cache file: %s", path)
			out.blank()
			if len(data.Projects) == 0 {
				out.line("Cache is empty (no projects scanned yet)")
				return nil
			}
			for _, code := range data.Codes() {
				c := data.Projects[code]
				out.line("Project: %s", code)
				out.line("  Last root ID: %s", lastRoot(code, c.LastRoot))
				if len(c.Subtasks) == 0 {
					out.line("  Subtasks: (none)")
				} else {
					out.line("  Subtasks:")
					for _, parent := range sortedParents(code, c) {
						out.line("    %s → %s", parent, parent.Child(c.Subtasks[parent.Key()]))
					}
				}
				out.blank()
			}
			return nil
		},
	}
}

// lastRoot renders a root counter as the identifier it last handed out.
func lastRoot(code string, n int) string {
	if n == 0 {
		return "(none)"
	}
	return ident.New(code, n).String()
}

// sortedParents returns the parents of a project's subtask counters in
// numeric order.
func sortedParents(code string, c *ident.Counters) []ident.Identifier {
	parents := make([]ident.Identifier, 0, len(c.Subtasks))
	for key := range c.Subtasks {
		parts, err := ident.ParseKey(key)
		if err != nil {
			continue
		}
		parents = append(parents, ident.New(code, parts...))
	}
	sort.Slice(parents, func(i, j int) bool { return ident.Less(parents[i], parents[j]) })
	return parents
}
