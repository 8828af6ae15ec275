package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appHTTP "github.com/cmlabs-hris/timeoff-sync/internal/handler/http"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/cron"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/jwt"
)

const shutdownTimeout = 30 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	NoSchedule bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the operator API and the periodic reconciliation",
		Long: `Serve the operator API and reconcile every SYNC_INTERVAL until
interrupted. A tick is skipped while the previous run is still going.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSchedule, "no-schedule", false, "serve the API only; runs happen on demand")

	return cmd
}

func serve(ctx context.Context, opts *ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg.App)
	slog.SetDefault(logger)

	coordinator, closeStore, err := newCoordinator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if !opts.NoSchedule {
		scheduler := cron.NewScheduler(ctx)
		cron.NewSyncJobs(coordinator, cfg.Sync.Interval).RegisterJobs(scheduler)
		scheduler.Start()
		defer scheduler.Stop()
	}

	jwtService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.OperatorExpiration)
	router := appHTTP.NewRouter(logger, cfg.App, jwtService, appHTTP.NewSyncHandler(coordinator))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
