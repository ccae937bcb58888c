package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lzhang-oss/winboard/internal/models"
)

// Device process status labels shown on the dashboard
const (
	statusOffline    = "离线"
	statusRunning    = "运行中"
	statusNotRunning = "未运行"
)

// statsResponse is the complete snapshot served to the dashboard
type statsResponse struct {
	ProcessStatus  string              `json:"process_status"`
	EffectiveStart string              `json:"effective_start"`
	DateRange      string              `json:"date_range"`
	TotalUsers     int                 `json:"total_users"`
	TotalWins      int                 `json:"total_wins"`
	RankList       []models.RankEntry  `json:"rank_list"`
	HistoryData    []models.HistoryDay `json:"history_data"`
}

// handleGetStats serves the current-round snapshot plus daily history
func (h *Handlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("node_id")
	templateID := r.URL.Query().Get("template")
	if deviceID == "" {
		respondError(w, BadRequest("node_id is required"))
		return
	}

	now := time.Now()
	stats, err := h.Stats.GetStats(r.Context(), deviceID, templateID, now)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := statsResponse{
		ProcessStatus:  h.deviceStatus(r, deviceID, now),
		EffectiveStart: stats.EffectiveStart.Format("2006-01-02 15:04:05"),
		DateRange:      stats.DateRange,
		TotalUsers:     stats.TotalUsers,
		TotalWins:      stats.TotalWins,
		RankList:       stats.RankList,
		HistoryData:    stats.HistoryData,
	}
	if resp.RankList == nil {
		resp.RankList = []models.RankEntry{}
	}
	if resp.HistoryData == nil {
		resp.HistoryData = []models.HistoryDay{}
	}
	respondOK(w, resp)
}

// deviceStatus folds liveness and the agent-reported running flag into
// one dashboard label.
func (h *Handlers) deviceStatus(r *http.Request, deviceID string, now time.Time) string {
	nodes, err := h.Device.ListNodes(r.Context(), now)
	if err != nil {
		return statusOffline
	}
	for _, n := range nodes {
		if n.DeviceID != deviceID {
			continue
		}
		if !n.IsOnline {
			return statusOffline
		}
		if n.ProcessRunning {
			return statusRunning
		}
		return statusNotRunning
	}
	return statusOffline
}

// handleGetDetail serves recent events filtered to the current round
func (h *Handlers) handleGetDetail(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("node_id")
	templateID := r.URL.Query().Get("template")
	if deviceID == "" {
		respondError(w, BadRequest("node_id is required"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, BadRequest("Invalid limit parameter"))
			return
		}
		limit = n
	}

	details, err := h.Stats.GetDetail(r.Context(), deviceID, templateID, limit, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	if details == nil {
		details = []models.Event{}
	}
	respondOK(w, map[string]interface{}{"details": details})
}

// handleGetDayDetail serves the raw events of one closed historical day
func (h *Handlers) handleGetDayDetail(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	deviceID := r.URL.Query().Get("node_id")
	templateID := r.URL.Query().Get("template")
	if deviceID == "" {
		respondError(w, BadRequest("node_id is required"))
		return
	}

	details, err := h.Stats.GetDayDetail(r.Context(), deviceID, templateID, day)
	if err != nil {
		respondError(w, err)
		return
	}
	if details == nil {
		details = []models.Event{}
	}
	respondOK(w, map[string]interface{}{"date": day, "details": details})
}

// resetRoundRequest starts a new round for a device+template scope
type resetRoundRequest struct {
	DeviceID   string `json:"device_id"`
	TemplateID string `json:"template"`
	Secret     string `json:"secret"`
}

// handleResetRound sets the manual round-start instant to now
func (h *Handlers) handleResetRound(w http.ResponseWriter, r *http.Request) {
	var req resetRoundRequest
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

	start, err := h.Stats.ResetRound(r.Context(), req.DeviceID, req.TemplateID, time.Now())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]string{
		"status":          "success",
		"new_round_start": start.Format("2006-01-02 15:04:05"),
	})
}

// updateHistoryRequest is an operator override of one day's aggregate
type updateHistoryRequest struct {
	Date        string `json:"date"`
	DeviceID    string `json:"device_id"`
	TemplateID  string `json:"template"`
	ManualUsers int    `json:"manual_users"`
	ManualSum   int    `json:"manual_sum"`
	Secret      string `json:"secret"`
}

// handleUpdateHistory stores a daily override
func (h *Handlers) handleUpdateHistory(w http.ResponseWriter, r *http.Request) {
	var req updateHistoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Device.Authorize(r.Context(), req.DeviceID, req.Secret); err != nil {
		respondError(w, err)
		return
	}

	err := h.Stats.SetOverride(r.Context(), &models.DailyOverride{
		Date:        req.Date,
		DeviceID:    req.DeviceID,
		TemplateID:  req.TemplateID,
		ManualUsers: req.ManualUsers,
		ManualSum:   req.ManualSum,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, map[string]string{"status": "success"})
}
