package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/cmlabs-hris/timeoff-sync/internal/service/reconcile"
)

// Runner is the part of the coordinator the scheduler needs.
type Runner interface {
	Run(ctx context.Context) (reconcile.RunReport, error)
}

type SyncJobs struct {
	runner   Runner
	interval time.Duration
}

func NewSyncJobs(runner Runner, interval time.Duration) *SyncJobs {
	return &SyncJobs{runner: runner, interval: interval}
}

func (j *SyncJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("reconcile_time_offs", j.interval, j.ReconcileTimeOffs)
}

// ReconcileTimeOffs runs one reconciliation pass. Losing the lock to another
// process is expected when several replicas share a schedule and is not an
// error.
func (j *SyncJobs) ReconcileTimeOffs(ctx context.Context) error {
	report, err := j.runner.Run(ctx)
	if errors.Is(err, lock.ErrConcurrentRun) {
		slog.Info("Cron: reconciliation already running elsewhere, skipping")
		return nil
	}

	var applied, failed int
	for _, emp := range report.Employees {
		applied += emp.Applied
		failed += emp.Failed
	}
	slog.Info("Cron: reconciliation finished",
		"run_id", report.RunID,
		"employees", len(report.Employees),
		"applied", applied,
		"failed", failed,
		"aborted", report.Aborted,
	)
	return err
}
