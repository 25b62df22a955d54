// Package cmd implements the agentrouter command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "agentrouter",
		Short: "Route tasks to the best available agent",
		Long: `agentrouter selects, for each incoming task, the agent best suited to run it.

Agents are scored either by a capability and idle-time heuristic or by a
trained model that predicts task duration. The serve command exposes the
router over HTTP and gRPC; the remaining commands support operating it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (YAML)")

	root.AddCommand(
		newServeCommand(g),
		newCorpusCommand(),
		newTokenCommand(g),
		newWatchCommand(g),
		newCertsCommand(),
	)
	return root
}

// ExecuteContext runs the command line with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
