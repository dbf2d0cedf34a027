package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bcnelson/oxidized-inventory-sync/internal/domain"
	"github.com/bcnelson/oxidized-inventory-sync/internal/service"
)

// SyncHandler handles reconciliation endpoints.
type SyncHandler struct {
	syncService *service.SyncService
	timeout     time.Duration
}

// NewSyncHandler creates a new SyncHandler. Triggered cycles are bounded by
// timeout.
func NewSyncHandler(syncService *service.SyncService, timeout time.Duration) *SyncHandler {
	return &SyncHandler{syncService: syncService, timeout: timeout}
}

// Status returns the reconciliation status summary.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.syncService.Status(r.Context()))
}

// Trigger runs one cycle now.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.syncService.RunCycle(ctx)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		handleError(w, err)
	case err != nil && result != nil:
		respondJSON(w, http.StatusBadGateway, result)
	case err != nil:
		handleError(w, err)
	default:
		respondJSON(w, http.StatusOK, result)
	}
}

// History lists recorded cycles, newest first.
func (h *SyncHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r, 20)
	if err != nil {
		handleError(w, err)
		return
	}

	runs, err := h.syncService.History(r.Context(), limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runs)
}
