// Package cli holds the timeoff-sync command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
}

// NewRootCommand creates the root command for the timeoff-sync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "timeoff-sync",
		Short: "Reconcile HR time-offs with employee calendars",
		Long: `timeoff-sync keeps the time-off records of the HR system and the
out-of-office entries in each employee's Google Calendar in agreement.

Configuration comes from the environment, optionally seeded from env files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "env files to load before reading the environment (default .env)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
