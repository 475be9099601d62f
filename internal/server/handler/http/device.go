package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/apperr"
)

// DeviceSource returns the id of the local installation.
type DeviceSource interface {
	GetOrCreate(ctx context.Context) (string, error)
}

// UIStateService defines the per-node UI state operations.
type UIStateService interface {
	Get(ctx context.Context, galleryID, nodeID string) (map[string]any, error)
	Merge(ctx context.Context, galleryID, nodeID string, state map[string]any) error
}

// DeviceHandler serves the device id and the UI state of gallery nodes.
type DeviceHandler struct {
	Devices DeviceSource
	UIState UIStateService
	Log     *zap.Logger
}

// DeviceID handles GET /device_id.
func (h *DeviceHandler) DeviceID(w http.ResponseWriter, r *http.Request) {
	id, err := h.Devices.GetOrCreate(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"device_id": id})
}

// GetUIState handles GET /ui_state?gallery_id=&node_id=.
func (h *DeviceHandler) GetUIState(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	st, err := h.UIState.Get(r.Context(), q.Get("gallery_id"), q.Get("node_id"))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetUIState handles POST /ui_state. node_id may be sent as a number.
func (h *DeviceHandler) SetUIState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NodeID    any            `json:"node_id"`
		GalleryID string         `json:"gallery_id"`
		State     map[string]any `json:"state"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	var nodeID string
	switch v := req.NodeID.(type) {
	case string:
		nodeID = v
	case json.Number:
		nodeID = v.String()
	case nil:
	default:
		writeError(w, r, h.Log, apperr.InvalidArgument(fmt.Sprintf("invalid node_id %v", v)))
		return
	}

	if err := h.UIState.Merge(r.Context(), req.GalleryID, nodeID, req.State); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
