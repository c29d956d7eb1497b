// Package cli implements the nuggeteval command line.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ahrav/go-nuggeteval/internal/observability"
)

// Version is set at build time with -ldflags "-X ...cli.Version=...".
var Version = "dev"

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configFile string
	verbose    bool
	jsonLogs   bool
}

// logger builds the process logger. verbose forces debug level.
func (g *globalOptions) logger(level string) zerolog.Logger {
	if g.verbose {
		level = "debug"
	}
	return observability.NewLogger(level, !g.jsonLogs)
}

// NewRootCmd returns the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "nuggeteval",
		Short: "Score generated reports against gold nuggets with an LLM judge",
		Long: `nuggeteval scores long-form, citation-bearing reports.

Every sentence is judged by an LLM oracle through a fixed sequence of YES/NO
questions: citation relevance, nugget agreement, negative assertions, the
need for a citation and whether a claim is new. The scores are folded into
per-report precision and nugget recall.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file (values are overridden by env and flags)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "log JSON lines instead of console output")

	root.AddCommand(
		newEvaluateCmd(opts),
		newStdsCmd(opts),
		newSplitCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "nuggeteval %s\n", Version)
		},
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
