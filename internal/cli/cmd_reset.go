package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/randalmurphal/aa/internal/config"
	aaerrors "github.com/randalmurphal/aa/internal/errors"
)

// resetPreview is how many renames reset lists before asking for confirmation.
const resetPreview = 10

// newResetCmd creates the reset command
func newResetCmd() *cobra.Command {
	var (
		project   string
		projectID string
		force     bool
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Remove IDs from every task in a project",
		Long: `Strip the leading ID from the name of every task and subtask in a project.
IDs of any project code are removed. The counter cache is left alone; run
'aa scan' afterwards if the project will be numbered again.

The project is chosen with --project (a code from .aa.yml) or --project-id
(a remote project ID, usable without a config file). Without a token in the
config or AA_TOKEN, reset asks for one when run in a terminal.

Examples:
  aa reset --project PRJ --dry-run
  aa reset --project-id 1203948571 --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (project == "") == (projectID == "") {
				return fmt.Errorf("exactly one of --project or --project-id is required")
			}

			ctx, cancel := SetupSignalHandler()
			defer cancel()

			cfg, err := resetConfig(cmd)
			if err != nil {
				return err
			}
			if project != "" {
				selected, err := cfg.Select(project)
				if err != nil {
					return err
				}
				projectID = selected[0].ID
			}

			rt, err := newRuntime(cmd, cfg)
			if err != nil {
				return err
			}
			if err := rt.checkAuth(ctx); err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			p := rt.processor()
			plan, err := p.PlanReset(ctx, projectID)
			if err != nil {
				return fmt.Errorf("read project %s: %w", projectID, err)
			}
			if len(plan) == 0 {
				out.success("No tasks with IDs found in project %s", projectID)
				return nil
			}

			out.heading("%d tasks in project %s have IDs", len(plan), projectID)
			for i, s := range plan {
				if verbosity == 0 && i == resetPreview {
					out.note("  ... and %d more (use -v to list all)", len(plan)-resetPreview)
					break
				}
				out.line("  %s -> %s", s.OldName, s.NewName)
			}
			out.blank()

			if dryRun {
				out.success("Dry run complete. Run without --dry-run to remove these IDs.")
				return nil
			}
			if !force && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Remove IDs from %d tasks?", len(plan))) {
				out.line("Reset cancelled")
				return nil
			}

			done, failures, err := p.ApplyReset(ctx, plan)
			for _, f := range failures {
				out.failure("%s", f.Error())
			}
			if err != nil {
				return err
			}
			if len(failures) > 0 {
				out.warning("Reset %d/%d tasks", done, len(plan))
				return aaerrors.ErrBranchFailures(len(failures))
			}
			out.success("Successfully reset %d/%d tasks", done, len(plan))
			return nil
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "project code from the config")
	cmd.Flags().StringVar(&projectID, "project-id", "", "remote project ID")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list the renames without applying them")

	return cmd
}

// resetConfig reads the config file when there is one. Reset only needs a
// provider and a token, so a missing file falls back to the environment and
// an interactive prompt.
func resetConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(configPath())
	if err != nil {
		if ae := aaerrors.AsAaError(err); ae == nil || ae.Code != aaerrors.CodeConfigMissing {
			return nil, err
		}
		cfg = &config.Config{}
		cfg.Overridden = config.ApplyEnvVars(cfg)
	}

	if cfg.Token == "" {
		token, err := promptToken(cmd.ErrOrStderr())
		if err != nil {
			return nil, err
		}
		cfg.Token = token
	}
	return cfg, nil
}

// promptToken asks for the API token without echoing it. It only prompts
// when stdin is a terminal.
func promptToken(w io.Writer) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no token configured: set token in the config file or AA_TOKEN")
	}
	_, _ = fmt.Fprint(w, "API token: ")
	raw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", fmt.Errorf("no token given")
	}
	return token, nil
}

// confirm asks a yes/no question, defaulting to no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	_, _ = fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
