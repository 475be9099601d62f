package http

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceHandler_DeviceID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/morpheus/device_id", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "local-dev", decodeBody(t, rec)["device_id"])
}

func TestDeviceHandler_UIState(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/morpheus/ui_state", "application/json",
		`{"node_id": 12, "gallery_id": "g1", "state": {"selected_talent_id": "t_1"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.Equal(t, "g1", s.ui.gallery)
	assert.Equal(t, "12", s.ui.node)
	assert.Equal(t, "t_1", s.ui.state["selected_talent_id"])

	rec = s.do(t, http.MethodPost, "/morpheus/ui_state", "application/json",
		`{"node_id": "n", "gallery_id": "g1", "state": {"page": 3}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, json.Number("3"), s.ui.state["page"])

	rec = s.do(t, http.MethodPost, "/morpheus/ui_state", "application/json", `{"node_id": true, "gallery_id": "g1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/morpheus/ui_state?gallery_id=g1&node_id=12", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "", out["selected_talent_id"])
	assert.Equal(t, "OR", out["filters"].(map[string]any)["logic"])

	rec = s.do(t, http.MethodGet, "/morpheus/ui_state?gallery_id=g1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
