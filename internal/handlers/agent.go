package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/lzhang-oss/winboard/internal/models"
)

// maxUploadBytes bounds one uploaded log file (32 MiB)
const maxUploadBytes = 32 << 20

// handleUpload ingests one uploaded log file from an agent.
// Multipart form: file, device_id, nickname, template, secret.
func (h *Handlers) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, BadRequest("Invalid multipart form"))
		return
	}
	deviceID := r.FormValue("device_id")
	if deviceID == "" {
		respondError(w, BadRequest("device_id is required"))
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, BadRequest("file is required"))
		return
	}
	defer file.Close()

	if err := h.Device.Authorize(r.Context(), deviceID, r.FormValue("secret")); err != nil {
		respondError(w, err)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		respondError(w, InternalError(err))
		return
	}

	newEntries, err := h.Ingest.Ingest(r.Context(), deviceID, r.FormValue("template"), r.FormValue("nickname"), raw)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]interface{}{
		"status":      "success",
		"new_entries": newEntries,
	})
}

// heartbeatRequest reports agent liveness
type heartbeatRequest struct {
	DeviceID       string `json:"device_id"`
	Nickname       string `json:"nickname"`
	TemplateID     string `json:"template"`
	ProcessRunning bool   `json:"process_running"`
	Secret         string `json:"secret"`
}

// handleHeartbeat records agent liveness, creating the device on first contact
func (h *Handlers) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.DeviceID == "" {
		respondError(w, BadRequest("device_id is required"))
		return
	}
	if err := h.Device.Authorize(r.Context(), req.DeviceID, req.Secret); err != nil {
		respondError(w, err)
		return
	}

	if err := h.Device.Heartbeat(r.Context(), req.DeviceID, req.Nickname, req.TemplateID, req.ProcessRunning, time.Now()); err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]string{"status": "ok"})
}

// handleGetNodes lists devices with derived liveness for the dashboard
func (h *Handlers) handleGetNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.Device.ListNodes(r.Context(), time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	if nodes == nil {
		nodes = []models.Node{}
	}
	respondOK(w, map[string]interface{}{"nodes": nodes})
}

// handleHealth is the agent-facing liveness probe
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "online", "server": "winboard"})
}
