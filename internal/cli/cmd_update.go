package cli

import (
	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/processor"
)

// dryRunPreview is how many assignments per project a dry run lists without -v.
const dryRunPreview = 10

// newUpdateCmd creates the update command
func newUpdateCmd() *cobra.Command {
	var (
		project         string
		dryRun          bool
		ignoreConflicts bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Assign IDs to tasks that do not have one",
		Long: `Give every task without an ID the next free one and rename it.

Root tasks get PRJ-N, subtasks get their parent's ID plus a number
(PRJ-N-1, PRJ-N-1-1, ...). Siblings are numbered oldest first, so re-running
after a partial failure hands out the same numbers.

All projects are scanned for conflicts before anything is renamed. Counters
are saved once at the end of the run; --dry-run saves nothing and renames
nothing.

Examples:
  aa update --dry-run          # Preview
  aa update                    # Assign IDs in all projects
  aa update --project PRJ      # One project only`,
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

			out := newPrinter(cmd.OutOrStdout())
			if dryRun && !quiet {
				out.heading("Dry run: no tasks are renamed and the cache is not written")
				out.blank()
			}

			coord := processor.NewCoordinator(rt.processor(), store, rt.logger)
			report, err := coord.Update(ctx, projects, processor.Options{
				DryRun:          dryRun,
				IgnoreConflicts: ignoreConflicts,
			})
			if report != nil && !quiet {
				printUpdateReport(out, report, store.Path())
			}
			rt.logger.Debug("update finished", "requests", rt.limiter.Requests())
			return err
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project code to update (default: all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the IDs that would be assigned")
	cmd.Flags().BoolVar(&ignoreConflicts, "ignore-conflicts", false, "raise stale counters instead of failing")

	return cmd
}

func printUpdateReport(p *printer, report *processor.Report, cachePath string) {
	if len(report.Results) == 0 {
		return
	}
	p.heading("Update summary")
	for _, res := range report.Results {
		p.blank()
		p.line("Project: %s", res.Project.Code)
		if res.DryRun {
			p.line("  Tasks to update: %d", len(res.Assigned))
		} else {
			p.line("  Tasks updated: %d", len(res.Assigned))
		}
		p.line("  Tasks skipped (already have an ID): %d", res.Skipped)
		if n := res.Conflicted(); n > 0 {
			p.warning("  Conflicts resolved: %d", n)
		}
		if len(res.Failures) > 0 {
			p.failure("  Failed: %d", len(res.Failures))
			for _, f := range res.Failures {
				p.note("    - %s", f.Error())
			}
		}

		if len(res.Assigned) == 0 || (!res.DryRun && verbosity == 0) {
			continue
		}
		if res.DryRun {
			p.line("  IDs that would be assigned:")
		} else {
			p.line("  IDs assigned:")
		}
		for i, a := range res.Assigned {
			if res.DryRun && verbosity == 0 && i == dryRunPreview {
				p.note("    ... and %d more (use -v to list all)", len(res.Assigned)-dryRunPreview)
				break
			}
			p.line("    %s: %s", a.Identifier, a.OldName)
		}
	}

	p.blank()
	switch {
	case report.Saved:
		p.success("Cache saved to %s", cachePath)
	case len(report.Results) > 0 && report.Results[0].DryRun:
		p.success("Dry run complete. Run without --dry-run to apply these changes.")
	}
}
