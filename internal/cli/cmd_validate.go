package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/aa/internal/config"
)

// newValidateCmd creates the validate command
func newValidateCmd() *cobra.Command {
	var checkAuth bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file",
		Long: `Validate .aa.yml and list the configured projects. Every problem in the
file is reported at once.

With --check-auth the token is also tried against the remote service.

Examples:
  aa validate
  aa validate --config other.yml --check-auth`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Read(configPath())
			if err != nil {
				return err
			}

			out := newPrinter(cmd.OutOrStdout())
			if problems := cfg.Problems(); len(problems) > 0 {
				out.failure("Configuration validation failed")
				out.blank()
				for _, problem := range problems {
					out.line("  - %s", problem)
				}
				out.blank()
				return fmt.Errorf("%d problems in %s", len(problems), cfg.Path)
			}

			if checkAuth {
				rt, err := newRuntime(cmd, cfg)
				if err != nil {
					return err
				}
				if err := rt.checkAuth(cmd.Context()); err != nil {
					return err
				}
			}

			out.success("Configuration is valid")
			out.blank()
			out.line("Configuration file: %s", cfg.Path)
			out.line("Provider: %s", cfg.ProviderType())
			if checkAuth {
				out.line("Token: accepted")
			}
			out.line("Projects configured: %d", len(cfg.Projects))
			for _, p := range cfg.Projects {
				out.line("  - %s: %s", p.Code, p.ID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkAuth, "check-auth", false, "verify the token with the remote service")

	return cmd
}
