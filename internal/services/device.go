package services

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/lzhang-oss/winboard/internal/errors"
	"github.com/lzhang-oss/winboard/internal/logformat"
	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/internal/models"
	"github.com/lzhang-oss/winboard/internal/repository"
)

// OnlineWindow is how long after the last heartbeat a device still counts
// as online
const OnlineWindow = 15 * time.Second

// DeviceServiceRepository defines the repository methods needed by DeviceService
type DeviceServiceRepository interface {
	repository.DeviceRepository
}

// DeviceService manages device scopes: heartbeats, liveness, secrets and
// deletion. Liveness lives in the devices table, not a process-wide map,
// so it survives restarts and concurrent instances.
type DeviceService struct {
	log  logger.Logger
	repo DeviceServiceRepository
}

// NewDeviceService creates a new DeviceService
func NewDeviceService(log logger.Logger, repo DeviceServiceRepository) *DeviceService {
	return &DeviceService{log: log, repo: repo}
}

// Heartbeat records agent liveness, creating the device on first contact.
// The declared template falls back to the default dialect when unknown.
func (s *DeviceService) Heartbeat(ctx context.Context, deviceID, nickname, templateID string, running bool, now time.Time) error {
	if deviceID == "" {
		return errors.InvalidInput("device_id is required")
	}
	if nickname == "" {
		nickname = "Unknown"
	}
	tpl := logformat.Lookup(templateID)
	if tpl == nil {
		tpl = logformat.Default()
	}
	seenAt := float64(now.UnixNano()) / float64(time.Second)
	return s.repo.UpsertDevice(ctx, deviceID, nickname, tpl.ID, running, seenAt)
}

// ListNodes returns the dashboard node list in first-contact order with
// derived liveness.
func (s *DeviceService) ListNodes(ctx context.Context, now time.Time) ([]models.Node, error) {
	devices, err := s.repo.ListDevices(ctx)
	if err != nil {
		return nil, err
	}

	nowSec := float64(now.UnixNano()) / float64(time.Second)
	nodes := make([]models.Node, 0, len(devices))
	for _, d := range devices {
		nodes = append(nodes, models.Node{
			DeviceID:       d.DeviceID,
			TemplateID:     d.TemplateID,
			Nickname:       d.Nickname,
			IsOnline:       nowSec-d.LastSeen < OnlineWindow.Seconds(),
			ProcessRunning: d.ProcessRunning,
		})
	}
	return nodes, nil
}

// Authorize checks a request-supplied secret against the device's stored
// one. Devices without a stored secret accept anything; an unknown device
// also passes, since first contact happens before any secret exists.
// A mismatch is Forbidden and must be surfaced before any work runs.
func (s *DeviceService) Authorize(ctx context.Context, deviceID, secret string) error {
	d, err := s.repo.GetDevice(ctx, deviceID)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil
		}
		return err
	}
	if d.Secret == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(d.Secret), []byte(secret)) != 1 {
		s.log.Warn("secret mismatch", "device_id", deviceID)
		return errors.Forbidden("invalid device secret")
	}
	return nil
}

// SetSecret sets or clears the shared secret for a device
func (s *DeviceService) SetSecret(ctx context.Context, deviceID, secret string) error {
	err := s.repo.SetDeviceSecret(ctx, deviceID, secret)
	if err == repository.ErrNotFound {
		return errors.NotFound("device unknown")
	}
	return err
}

// Delete removes a device and cascades to its events, round resets and
// overrides.
func (s *DeviceService) Delete(ctx context.Context, deviceID string) error {
	if deviceID == "" {
		return errors.InvalidInput("device_id is required")
	}
	if _, err := s.repo.GetDevice(ctx, deviceID); err != nil {
		if err == repository.ErrNotFound {
			return errors.NotFound("device unknown")
		}
		return err
	}
	s.log.Info("deleting device", "device_id", deviceID)
	return s.repo.DeleteDeviceData(ctx, deviceID)
}
