package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/bcnelson/oxidized-inventory-sync/internal/inventory"
	"github.com/bcnelson/oxidized-inventory-sync/internal/service"
)

// DevicesHandler serves the device list in Oxidized's CSV source format.
type DevicesHandler struct {
	lister service.DeviceLister
	logger *zap.Logger
}

// NewDevicesHandler creates a new DevicesHandler.
func NewDevicesHandler(lister service.DeviceLister, logger *zap.Logger) *DevicesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DevicesHandler{lister: lister, logger: logger}
}

// CSV renders one ip:platform:username:password:port line per device. A
// request carrying the current ETag in If-None-Match gets 304.
func (h *DevicesHandler) CSV(w http.ResponseWriter, r *http.Request) {
	snap, err := h.lister.ListDevices(r.Context())
	if err != nil {
		h.logger.Error("failed to list devices", zap.Error(err))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Error fetching device list."))
		return
	}

	body := []byte(inventory.Render(snap))
	etag := GenerateETag(body)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if CheckIfNoneMatch(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
