package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/lzhang-oss/winboard/internal/logformat"
	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/internal/models"
	"github.com/lzhang-oss/winboard/internal/repository"
)

// Broadcaster defines the interface for notifying dashboards that fresh
// data landed for a device
type Broadcaster interface {
	BroadcastStatsDirty(deviceID string)
}

// IngestServiceRepository defines the repository methods needed by IngestService
type IngestServiceRepository interface {
	repository.EventRepository
	repository.DeviceRepository
}

// IngestService turns raw uploaded log bytes into deduplicated events
type IngestService struct {
	log         logger.Logger
	repo        IngestServiceRepository
	broadcaster Broadcaster
}

// NewIngestService creates a new IngestService
func NewIngestService(log logger.Logger, repo IngestServiceRepository) *IngestService {
	return &IngestService{log: log, repo: repo}
}

// SetBroadcaster sets the broadcaster for sending refresh hints to dashboards
func (s *IngestService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Ingest extracts events from one uploaded file and persists the ones not
// seen before. Malformed lines are skipped, duplicate events count as zero
// new entries; only storage failures abort the batch. The device row is
// touched so a long upload doesn't read as a missed heartbeat.
func (s *IngestService) Ingest(ctx context.Context, deviceID, templateID, nickname string, raw []byte) (int, error) {
	tpl := logformat.Lookup(templateID)
	if tpl == nil {
		// Agents declare their own template; an unknown id falls back to
		// the default dialect instead of failing the upload.
		s.log.Warn("unknown template declared, using default", "device_id", deviceID, "template", templateID)
		tpl = logformat.Default()
	}

	if err := s.repo.UpsertDevice(ctx, deviceID, nickname, tpl.ID, true, nowUnix()); err != nil {
		return 0, err
	}

	content := decodeUpload(raw)

	newCount := 0
	matched := 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m, ok := tpl.ExtractLine(line)
		if !ok {
			s.log.Debug("line did not match template", "device_id", deviceID, "template", tpl.ID)
			continue
		}
		matched++

		ev := &models.Event{
			LogTime:    m.LogTime,
			Nickname:   m.Nickname,
			ItemType:   m.ItemType,
			Quantity:   m.Quantity,
			UniqueSign: UniqueSign(m.LogTime, m.Nickname, m.ItemType, m.Quantity, deviceID),
			DeviceID:   deviceID,
			TemplateID: tpl.ID,
		}
		inserted, err := s.repo.InsertEvent(ctx, ev)
		if err != nil {
			return 0, err
		}
		if inserted {
			newCount++
		}
	}

	s.log.Info("upload processed",
		"device_id", deviceID, "template", tpl.ID,
		"matched", matched, "new_entries", newCount)

	if newCount > 0 && s.broadcaster != nil {
		s.broadcaster.BroadcastStatsDirty(deviceID)
	}
	return newCount, nil
}

// UniqueSign derives the deterministic dedup key for an event. Fields are
// pipe-separated so overlapping re-uploads of the same source file always
// collide with their earlier selves.
func UniqueSign(logTime, nickname, itemType string, quantity int, deviceID string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", logTime, nickname, itemType, quantity, deviceID)
}

// decodeUpload decodes agent log bytes. Valid UTF-8 is taken as-is:
// GB18030 accepts almost any byte stream and would silently mangle UTF-8
// multibyte runs. Everything else goes through the GB18030 decoder, and
// as a last resort undecodable sequences are replaced so one bad byte
// never fails a whole upload.
func decodeUpload(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(raw)
	if err == nil {
		return string(decoded)
	}
	return strings.ToValidUTF8(string(raw), string(utf8.RuneError))
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
