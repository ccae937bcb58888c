// Package app wires the repository, services, websocket hub and handlers
// together and runs the HTTP server.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lzhang-oss/winboard/internal/auth"
	"github.com/lzhang-oss/winboard/internal/handlers"
	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/internal/repository"
	"github.com/lzhang-oss/winboard/internal/services"
	"github.com/lzhang-oss/winboard/internal/websocket"
)

type App struct {
	log      logger.Logger
	handlers *handlers.Handlers
	repo     *repository.Repository
}

// New opens the database and builds the full service and handler graph.
func New(log logger.Logger, dbPath string, templatesFS, staticFS fs.FS, adminAuth *auth.Auth) (*App, error) {
	repo, err := repository.New(dbPath)
	if err != nil {
		return nil, err
	}

	settingsService := services.NewSettingsService(log, repo)
	deviceService := services.NewDeviceService(log, repo)
	ingestService := services.NewIngestService(log, repo)
	statsService := services.NewStatsService(log, repo)

	// Ingest and stats push refresh hints through the hub.
	hub := websocket.New(log)
	hub.Start()
	ingestService.SetBroadcaster(hub)
	statsService.SetBroadcaster(hub)

	h, err := handlers.New(
		ingestService,
		statsService,
		deviceService,
		settingsService,
		templatesFS,
		staticFS,
		adminAuth,
		hub,
		log,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{log: log, handlers: h, repo: repo}, nil
}

func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

func (a *App) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
}

// Run seeds the base_url setting from the detected LAN address and serves.
// Enrollment QR codes must carry an address agents can reach.
func (a *App) Run(addr string) error {
	ip := getPreferredIP(realNetworkProvider{})
	baseURL := fmt.Sprintf("http://%s%s", ip, addr)
	a.setDefaultBaseURL(baseURL)

	a.log.Info("Server starting", "url", baseURL)
	return http.ListenAndServe(addr, a.Router())
}

// setDefaultBaseURL writes the base URL setting unless a usable value is
// already configured. A stored localhost URL counts as unusable: it would
// end up inside QR codes scanned from other machines.
func (a *App) setDefaultBaseURL(baseURL string) {
	ctx := context.Background()
	existing, err := a.repo.GetSetting(ctx, "base_url")
	if err != nil && err != repository.ErrNotFound {
		a.log.Warn("Failed to read base_url", "error", err)
		return
	}
	if existing != "" && !strings.Contains(existing, "localhost") {
		return
	}

	if err := a.repo.SetSetting(ctx, "base_url", baseURL); err != nil {
		a.log.Warn("Failed to set default base_url", "error", err)
		return
	}
	a.log.Info("Default base URL set", "url", baseURL)
}

// networkInterface and networkProvider abstract the net package so the
// address-selection logic is testable without real interfaces.
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags { return r.iface.Flags }
func (r realInterface) Addrs() ([]net.Addr, error) { return r.iface.Addrs() }

type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		out[i] = realInterface{iface: iface}
	}
	return out, nil
}

// getPreferredIP picks the address for the advertised base URL: a private
// IPv4 if one exists, any non-loopback IPv4 otherwise, localhost as the
// last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.To4() == nil || ip.IsLoopback() {
				continue
			}
			candidates = append(candidates, ip)
		}
	}

	for _, ip := range candidates {
		s := ip.String()
		if strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") || isPrivate172(ip) {
			return s
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

func isPrivate172(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
}
