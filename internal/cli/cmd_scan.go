package cli

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/processor"
)

// newScanCmd creates the scan command
func newScanCmd() *cobra.Command {
	var (
		project         string
		ignoreConflicts bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Record existing IDs in the counter cache",
		Long: `Fetch every task of the configured projects, find the IDs already in
their names and update the counter cache to match.

Conflicts stop the scan for that project:
  - stale cache: a task carries an ID above the cached counter
  - duplicate:   two tasks carry the same ID

--ignore-conflicts raises stale counters to the highest ID found. Duplicates
are never resolved automatically. Tasks are not renamed. A project that
already has IDs but no cache entry needs --ignore-conflicts on its first scan.

Examples:
  aa scan                      # Scan all projects
  aa scan --project PRJ        # Scan one project
  aa scan --ignore-conflicts   # Accept IDs created outside aa`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := SetupSignalHandler()
			defer cancel()

			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			projects, err := selectProjects(rt.cfg, project)
			if err != nil {
				return err
			}
			if err := rt.checkAuth(ctx); err != nil {
				return err
			}

			store, release, err := openCache()
			if err != nil {
				return err
			}
			defer release()

			coord := processor.NewCoordinator(rt.processor(), store, rt.logger)
			report, err := coord.Scan(ctx, projects, ignoreConflicts)
			if report != nil && !quiet {
				printScanReport(newPrinter(cmd.OutOrStdout()), report, store.Path())
			}
			rt.logger.Debug("scan finished", "requests", rt.limiter.Requests())
			return err
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project code to scan (default: all)")
	cmd.Flags().BoolVar(&ignoreConflicts, "ignore-conflicts", false, "raise stale counters instead of failing")

	return cmd
}

func printScanReport(p *printer, report *processor.Report, cachePath string) {
	p.heading("Scan summary")
	for _, sr := range report.Scans {
		p.blank()
		p.line("Project: %s", sr.Project.Code)
		p.line("  Total tasks: %d", sr.Tree.Size())
		p.line("  Tasks with IDs: %d", len(sr.Observations))
		p.line("  Last root ID: %s", lastRoot(sr.Project.Code, sr.Counters.LastRoot))
		if len(sr.Conflicts) > 0 {
			p.warning("  Conflicts: %d (counters raised)", len(sr.Conflicts))
			for _, c := range sr.Conflicts {
				p.note("    - %s", c.String())
			}
		}
	}
	if report.Saved {
		p.blank()
		p.success("Cache saved to %s", cachePath)
	}
}
