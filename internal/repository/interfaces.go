package repository

import (
	"context"

	"github.com/lzhang-oss/winboard/internal/models"
)

// EventRepository defines win-event data operations
type EventRepository interface {
	InsertEvent(ctx context.Context, ev *models.Event) (inserted bool, err error)
	ListEvents(ctx context.Context, deviceID, templateID string) ([]models.Event, error)
	ListRecentEvents(ctx context.Context, deviceID, templateID string, limit int) ([]models.Event, error)
	UpdateEventCorrection(ctx context.Context, id int64, nickname string, quantity int) error
}

// DeviceRepository defines device scope data operations
type DeviceRepository interface {
	UpsertDevice(ctx context.Context, deviceID, nickname, templateID string, running bool, seenAt float64) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	SetDeviceSecret(ctx context.Context, deviceID, secret string) error
	DeleteDeviceData(ctx context.Context, deviceID string) error
}

// RoundResetRepository defines the durable manual round-start mapping
type RoundResetRepository interface {
	SetRoundReset(ctx context.Context, deviceID, templateID, resetAt string) error
	GetRoundReset(ctx context.Context, deviceID, templateID string) (string, error)
}

// OverrideRepository defines operator daily-override operations
type OverrideRepository interface {
	SetDailyOverride(ctx context.Context, o *models.DailyOverride) error
	ListDailyOverrides(ctx context.Context, deviceID, templateID string) ([]models.DailyOverride, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces.
// Use this when a service needs access to multiple domains.
type FullRepository interface {
	EventRepository
	DeviceRepository
	RoundResetRepository
	OverrideRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
