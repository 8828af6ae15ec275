package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reconciliation pass and print its report",
		Long: `Run a single reconciliation pass, print the run report as JSON on
stdout and exit. The exit status is non-zero when any employee failed or
another run held the lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), rootOpts, cmd.OutOrStdout())
		},
	}
	return cmd
}

func runOnce(ctx context.Context, opts *RootOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout stays parseable.
	slog.SetDefault(newLogger(os.Stderr, cfg.App))

	coordinator, closeStore, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, runErr := coordinator.Run(ctx)
	if report.RunID != "" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	return runErr
}
