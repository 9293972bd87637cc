// Package cli implements the aa command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	// Register the task source backends.
	_ "github.com/randalmurphal/aa/internal/asana"
	_ "github.com/randalmurphal/aa/internal/jira"
)

var (
	cfgFile   string
	cachePath string
	verbosity int
	quiet     bool
	noColor   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aa",
	Short: "Hierarchical task IDs for Asana and Jira projects",
	Long: `aa gives every task in your Asana or Jira projects a short, stable ID
(PRJ-5, PRJ-5-2, PRJ-5-2-1) by prefixing the task name.

Counters are kept in .aa.cache.yaml so numbers are never reused, and every
run first checks the cache against what is already in the project.

Quick start:
  aa validate              Check .aa.yml
  aa scan                  Record IDs that already exist
  aa update --dry-run      Preview the IDs that would be assigned
  aa update                Assign them`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .aa.yml)")
	rootCmd.PersistentFlags().StringVar(&cachePath, "cache", "", "counter cache (default is .aa.cache.yaml; .db or .sqlite selects SQLite)")
	rootCmd.PersistentFlags().Int("concurrency", 0, "max requests in flight (default 5)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "verbose output (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable color output")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("cache", rootCmd.PersistentFlags().Lookup("cache"))
	_ = viper.BindPFlag("concurrency", rootCmd.PersistentFlags().Lookup("concurrency"))

	// Add subcommands
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newCacheInfoCmd())
	rootCmd.AddCommand(newListTasksCmd())
	rootCmd.AddCommand(newTestIDCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// initConfig binds AA_* environment variables (AA_CONFIG, AA_CACHE,
// AA_CONCURRENCY) to the global flags.
func initConfig() {
	viper.SetEnvPrefix("AA")
	viper.AutomaticEnv()

	if verbosity > 1 {
		if path := configPath(); path != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", path)
		}
	}
}

// configPath returns the config file from --config or AA_CONFIG.
func configPath() string {
	return viper.GetString("config")
}

// cacheFile returns the counter cache path from --cache or AA_CACHE.
func cacheFile() string {
	return viper.GetString("cache")
}
