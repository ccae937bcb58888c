package handlers

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/lzhang-oss/winboard/internal/auth"
	"github.com/lzhang-oss/winboard/internal/services"
	"github.com/lzhang-oss/winboard/internal/websocket"
)

// NewStaticServer creates a static file server from an fs.FS
func NewStaticServer(staticFS fs.FS) http.Handler {
	return http.FileServer(http.FS(staticFS))
}

// Templates holds all parsed HTML templates
type Templates struct {
	Dashboard  *template.Template
	AdminLogin *template.Template
}

// loadTemplates parses the embedded page templates. The dashboard
// template uses [[ ]] delimiters so its client-side {{ }} bindings
// survive parsing.
func loadTemplates(templatesFS fs.FS) (*Templates, error) {
	dashboard, err := template.New("dashboard.html").Delims("[[", "]]").ParseFS(templatesFS, "dashboard.html")
	if err != nil {
		return nil, err
	}
	adminLogin, err := template.ParseFS(templatesFS, "admin_login.html")
	if err != nil {
		return nil, err
	}
	return &Templates{Dashboard: dashboard, AdminLogin: adminLogin}, nil
}

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Ingest       services.IngestServicer
	Stats        services.StatsServicer
	Device       services.DeviceServicer
	Settings     services.SettingsServicer
	Auth         *auth.Auth
	Hub          *websocket.Hub
	Log          HTTPLogger
	templates    *Templates
	staticServer http.Handler
	staticFS     fs.FS
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	ingest services.IngestServicer,
	stats services.StatsServicer,
	device services.DeviceServicer,
	settings services.SettingsServicer,
	templatesFS fs.FS,
	staticFS fs.FS,
	adminAuth *auth.Auth,
	hub *websocket.Hub,
	log HTTPLogger,
) (*Handlers, error) {
	templates, err := loadTemplates(templatesFS)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	return &Handlers{
		Ingest:       ingest,
		Stats:        stats,
		Device:       device,
		Settings:     settings,
		Auth:         adminAuth,
		Hub:          hub,
		Log:          log,
		templates:    templates,
		staticServer: NewStaticServer(staticFS),
		staticFS:     staticFS,
	}, nil
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// NewForTesting creates a Handlers instance without loading templates
// (for testing API endpoints)
func NewForTesting(
	ingest services.IngestServicer,
	stats services.StatsServicer,
	device services.DeviceServicer,
	settings services.SettingsServicer,
) *Handlers {
	// Create a test auth with a known password
	testAuth := auth.New("test-password")
	return &Handlers{
		Ingest:       ingest,
		Stats:        stats,
		Device:       device,
		Settings:     settings,
		Auth:         testAuth,
		Log:          NoopHTTPLogger{},
		staticServer: http.NotFoundHandler(),
		// templates left nil - API endpoints don't use templates
	}
}
