package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stackvity/sales-report/internal/cli"
	"github.com/stackvity/sales-report/internal/cli/config"
	"github.com/stackvity/sales-report/pkg/report"
	"golang.org/x/term"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Flags persistent across commands
	cfgFile     string
	profileName string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sales-report --catalog <Products.txt> [order files...]",
	Short: "Summarizes order-detail files against a product catalog.",
	Long: `sales-report loads a product catalog and aggregates every order-detail file
concurrently, printing one report per file in the order the files were given.

It features:
  - One aggregation worker per order file, with optional line workers.
  - Order file discovery in a directory by glob pattern.
  - Customizable report blocks via Go templates.
  - Prometheus textfile export of run metrics.
  - An optional Terminal UI (TUI) for monitoring progress.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:         cobra.ArbitraryArgs, // Positional args are order files
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, verbose, args, cmd.Flags())
		if err != nil {
			return err
		}

		// Give the terminal a moment before the TUI takes it over.
		if opts.TuiEnabled && term.IsTerminal(int(os.Stderr.Fd())) {
			time.Sleep(100 * time.Millisecond)
		}

		return cli.Run(ctx, opts, logger)
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	rootCmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search ., $HOME/.config/sales-report/, $HOME/.sales-report/)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	// Input flags. Flag names map to config keys in internal/cli/config.
	rootCmd.Flags().StringP("catalog", "c", "", "Product catalog file (id,name,price per line)")
	rootCmd.Flags().String("orders-dir", "", "Directory to discover order files in (non-recursive)")
	rootCmd.Flags().String("pattern", report.DefaultOrdersPattern, "Glob pattern for discovered order file names")
	rootCmd.Flags().StringArray("ignore", []string{}, "Glob patterns for discovered files to ignore (can be specified multiple times)")

	// Processing flags
	rootCmd.Flags().Int("max-parallel-files", report.DefaultMaxParallelFiles, "Maximum order files aggregated at once (0 for one worker per file)")
	rootCmd.Flags().Int("line-workers", report.DefaultLineWorkers, "Line workers per order file (1 for a sequential scan)")
	rootCmd.Flags().Int("max-products", report.DefaultMaxProducts, "Maximum catalog entries to read (0 for unlimited)")
	rootCmd.Flags().String("default-encoding", "", "Encoding to assume when detection is uncertain (e.g. windows-1252)")

	// Output flags
	rootCmd.Flags().String("template", "", "Path to a custom Go template file for report blocks")
	rootCmd.Flags().Bool("tui", report.DefaultTuiEnabled, "Show the interactive Terminal UI while aggregating (TTY only)")
	rootCmd.Flags().String("metrics-file", "", "Write run metrics in Prometheus textfile format to this path")
}
