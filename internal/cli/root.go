// Package cli implements grantmatch, the offline companion to the workers:
// it runs discovery and search over local JSON files, replays the ranking
// regression suite and sweeps the match cache.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"grant-workers/internal/common/logger"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// globals are the persistent flags shared by every subcommand.
type globals struct {
	output  string
	config  string
	verbose bool
}

func (g *globals) logger() logger.Logger {
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	return logger.NewStructured(level, "console", "stderr")
}

func (g *globals) validate() error {
	switch g.output {
	case "table", "json":
		return nil
	}
	return fmt.Errorf("unknown output format: %s", g.output)
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "grantmatch",
		Short: "Grant discovery and matching toolkit",
		Long:  `grantmatch runs the grant matching engines outside of the workflow engine.

It provides:
  - Discovery runs for a profile against a local grant pool
  - Search-time relevance filtering
  - The ranking regression suite
  - A match cache sweep against the configured Redis and Postgres`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.validate()
		},
	}

	root.PersistentFlags().StringVarP(&g.output, "output", "o", "table", "output format (table, json)")
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "service config file (default: ./configs/config.yaml)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log engine decisions to stderr")

	root.AddCommand(
		newDiscoverCmd(g),
		newSearchCmd(g),
		newRegressCmd(g),
		newSweepCmd(g),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "grantmatch %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", buildTime)
		},
	}
}
