package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Static files (served from embedded filesystem)
	r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))
	r.Get("/manifest.json", h.handleStaticFile("manifest.json", "application/json"))
	r.Get("/sw.js", h.handleStaticFile("sw.js", "application/javascript"))

	// Dashboard page
	r.Get("/", h.handleDashboard)

	// WebSocket
	if h.Hub != nil {
		r.Get("/ws", h.Hub.ServeWs)
	}

	// Agent API (public: devices authenticate per-request via their secret)
	r.Post("/upload", h.handleUpload)
	r.Post("/api/heartbeat", h.handleHeartbeat)
	r.Get("/api/health", h.handleHealth)

	// Dashboard API (public)
	r.Get("/api/nodes", h.handleGetNodes)
	r.Get("/api/stats", h.handleGetStats)
	r.Get("/api/detail", h.handleGetDetail)
	r.Get("/api/history/{day}", h.handleGetDayDetail)
	r.Post("/api/reset_round", h.handleResetRound)
	r.Post("/api/update_history", h.handleUpdateHistory)

	// Auth routes (public)
	r.Get("/admin/login", h.handleLoginPage)
	r.Post("/admin/login", h.handleLogin)
	r.Post("/admin/logout", h.handleLogout)

	// Admin API (protected)
	r.Group(func(r chi.Router) {
		r.Use(h.Auth.RequireAuthAPI)

		r.Delete("/api/admin/devices/{deviceID}", h.handleDeleteDevice)
		r.Put("/api/admin/devices/{deviceID}/secret", h.handleSetDeviceSecret)
		r.Get("/api/admin/devices/{deviceID}/qr", h.handleDeviceQR)
		r.Put("/api/admin/events/{id}", h.handleCorrectEvent)
	})

	return r
}

// handleStaticFile serves one file from the static filesystem under a
// fixed top-level path (PWA assets must live at the root scope).
func (h *Handlers) handleStaticFile(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.staticFS == nil {
			http.NotFound(w, r)
			return
		}
		data, err := readStaticFile(h.staticFS, name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
	}
}
