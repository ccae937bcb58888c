package services

import (
	"context"
	"time"

	"github.com/lzhang-oss/winboard/internal/models"
)

// IngestServicer is the only write path for events
type IngestServicer interface {
	Ingest(ctx context.Context, deviceID, templateID, nickname string, raw []byte) (int, error)
}

// StatsServicer serves windowed aggregates and their write companions
type StatsServicer interface {
	GetStats(ctx context.Context, deviceID, templateID string, now time.Time) (*Stats, error)
	GetDetail(ctx context.Context, deviceID, templateID string, limit int, now time.Time) ([]models.Event, error)
	GetDayDetail(ctx context.Context, deviceID, templateID, day string) ([]models.Event, error)
	ResetRound(ctx context.Context, deviceID, templateID string, now time.Time) (time.Time, error)
	SetOverride(ctx context.Context, o *models.DailyOverride) error
	CorrectEvent(ctx context.Context, id int64, nickname string, quantity int) error
}

// DeviceServicer manages device scopes and their liveness view
type DeviceServicer interface {
	Heartbeat(ctx context.Context, deviceID, nickname, templateID string, running bool, now time.Time) error
	ListNodes(ctx context.Context, now time.Time) ([]models.Node, error)
	Authorize(ctx context.Context, deviceID, secret string) error
	SetSecret(ctx context.Context, deviceID, secret string) error
	Delete(ctx context.Context, deviceID string) error
}

// SettingsServicer manages runtime settings
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
