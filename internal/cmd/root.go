package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for autopr
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autopr",
		Short: "Asynchronous agent pull-request service",
		Long: `Autopr runs code-change tasks in the background: each submitted task
clones a repository, applies the requested change, optionally runs tests,
and opens a pull request, while clients poll for status and result.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())

	return cmd
}
