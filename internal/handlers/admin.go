package handlers

import (
	"fmt"
	"io/fs"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/lzhang-oss/winboard/internal/auth"
)

// handleDashboard renders the dashboard page
func (h *Handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.templates.Dashboard == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.templates.Dashboard.Execute(w, nil)
}

// handleLoginPage renders the admin login page
func (h *Handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil || h.templates.AdminLogin == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	h.templates.AdminLogin.Execute(w, nil)
}

// loginRequest carries the admin password
type loginRequest struct {
	Password string `json:"password"`
}

// handleLogin validates the admin password and starts a session
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	token, ok := h.Auth.Login(req.Password)
	if !ok {
		respondError(w, &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: "Invalid password"})
		return
	}
	auth.SetSessionCookie(w, token)
	respondSuccess(w, "Logged in")
}

// handleLogout ends the admin session
func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		h.Auth.Logout(cookie.Value)
	}
	auth.ClearSessionCookie(w)
	respondSuccess(w, "Logged out")
}

// handleDeleteDevice removes a device and cascades to its events,
// round resets and overrides
func (h *Handlers) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if err := h.Device.Delete(r.Context(), deviceID); err != nil {
		respondError(w, err)
		return
	}
	respondDeleted(w)
}

// setSecretRequest sets or clears a device's shared upload secret
type setSecretRequest struct {
	Secret string `json:"secret"`
}

// handleSetDeviceSecret sets or clears a device's shared secret
func (h *Handlers) handleSetDeviceSecret(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	var req setSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Device.SetSecret(r.Context(), deviceID, req.Secret); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Secret updated")
}

// correctEventRequest is the administrative fix of one event by id
type correctEventRequest struct {
	Nickname string `json:"nickname"`
	Quantity int    `json:"quantity"`
}

// handleCorrectEvent fixes an event's nickname/quantity by id
func (h *Handlers) handleCorrectEvent(w http.ResponseWriter, r *http.Request) {
	id, err := parseInt64Param(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	var req correctEventRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.Stats.CorrectEvent(r.Context(), id, req.Nickname, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, "Event updated")
}

// handleDeviceQR renders a PNG QR code of the device's upload URL so an
// agent can be pointed at this server by scanning it.
func (h *Handlers) handleDeviceQR(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")

	baseURL, err := h.Settings.GetBaseURL(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if baseURL == "" {
		respondError(w, BadRequest("base_url is not configured"))
		return
	}

	target := fmt.Sprintf("%s/upload?device_id=%s", baseURL, url.QueryEscape(deviceID))
	png, err := qrcode.Encode(target, qrcode.Medium, 256)
	if err != nil {
		respondError(w, InternalError(err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// readStaticFile reads one embedded static asset
func readStaticFile(staticFS fs.FS, name string) ([]byte, error) {
	return fs.ReadFile(staticFS, name)
}
