package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-chi/httplog/v3"

	"github.com/cmlabs-hris/timeoff-sync/internal/config"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/database"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/failledger"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/googlecalendar"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/hris"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/kvstore"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/oauth"
	"github.com/cmlabs-hris/timeoff-sync/internal/repository/postgresql"
	"github.com/cmlabs-hris/timeoff-sync/internal/repository/sqlite"
	"github.com/cmlabs-hris/timeoff-sync/internal/service/reconcile"
)

const (
	appName  = "timeoff-sync"
	lockName = "timeoff-sync:reconcile"
)

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.EnvFiles...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger in the ECS layout the request logger
// also uses.
func newLogger(w io.Writer, app config.AppConfig) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(false)
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       app.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("env", app.Env),
	)
}

// openStore returns the ledger storage and run lock for the configured
// driver, plus a cleanup func. Only postgres coordinates across processes.
func openStore(ctx context.Context, cfg *config.Config) (kvstore.Store, lock.Mutex, func(), error) {
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := postgresql.EnsureKVSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return postgresql.NewKVStoreRepository(db), postgresql.NewAdvisoryLockRepository(db, lockName), db.Close, nil

	case "sqlite":
		db, err := database.NewSQLiteDB(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		store, err := sqlite.NewKVStoreRepository(ctx, db, nil)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		slog.Warn("Store: sqlite lock only guards this process", "path", cfg.Store.SQLitePath)
		return store, lock.NewMemoryMutex(), func() { _ = db.Close() }, nil

	case "memory":
		slog.Warn("Store: failure ledger is kept in memory and lost on exit")
		return kvstore.NewMemoryStore(nil), lock.NewMemoryMutex(), func() {}, nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// newCoordinator wires the HR client, calendar clients and storage into a
// run coordinator.
func newCoordinator(ctx context.Context, cfg *config.Config) (*reconcile.Coordinator, func(), error) {
	googleService, err := oauth.NewGoogleServiceFromFile(cfg.Google.ServiceAccountFile, cfg.Google.Scopes)
	if err != nil {
		return nil, nil, err
	}

	store, mutex, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	hrClient := hris.New(ctx, cfg.HR, cfg.Sync.UTCOffset)
	calendars := googlecalendar.NewFactory(googleService, googlecalendar.DefaultBaseURL)
	ledger := failledger.New(store, cfg.Sync.FailTTLMin, cfg.Sync.FailTTLMax)

	slog.Info("Coordinator ready",
		"store", cfg.Store.Driver,
		"service_account", googleService.ServiceAccountEmail(),
		"calendar_id", cfg.Google.CalendarID,
	)
	return reconcile.NewCoordinator(hrClient, calendars, mutex, ledger, cfg.Sync, cfg.Google.CalendarID), closeStore, nil
}
