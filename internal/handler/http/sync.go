package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeoff-sync/internal/handler/http/response"
	"github.com/cmlabs-hris/timeoff-sync/internal/pkg/lock"
	"github.com/cmlabs-hris/timeoff-sync/internal/service/reconcile"
)

// SyncCoordinator is the part of the reconcile coordinator the API exposes.
type SyncCoordinator interface {
	Run(ctx context.Context) (reconcile.RunReport, error)
	LastReport() (reconcile.RunReport, bool)
}

type SyncHandler interface {
	TriggerRun(w http.ResponseWriter, r *http.Request)
	LastRun(w http.ResponseWriter, r *http.Request)
}

type SyncHandlerImpl struct {
	coordinator SyncCoordinator
}

func NewSyncHandler(coordinator SyncCoordinator) SyncHandler {
	return &SyncHandlerImpl{coordinator: coordinator}
}

// TriggerRun runs a reconciliation synchronously and returns its report. The
// run outlives a disconnecting client so the lock is never released halfway.
func (h *SyncHandlerImpl) TriggerRun(w http.ResponseWriter, r *http.Request) {
	report, err := h.coordinator.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, lock.ErrConcurrentRun) {
			response.HandleError(w, err)
			return
		}
		slog.Error("Sync: triggered run failed", "run_id", report.RunID, "error", err)
		response.BadGateway(w, err.Error(), report)
		return
	}

	response.SuccessWithMessage(w, "Reconciliation run finished", report)
}

func (h *SyncHandlerImpl) LastRun(w http.ResponseWriter, r *http.Request) {
	report, ok := h.coordinator.LastReport()
	if !ok {
		response.NotFound(w, "No reconciliation run has finished yet")
		return
	}
	response.Success(w, report)
}
