package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/lzhang-oss/winboard/internal/errors"
	"github.com/lzhang-oss/winboard/internal/logformat"
	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/internal/logtime"
	"github.com/lzhang-oss/winboard/internal/models"
	"github.com/lzhang-oss/winboard/internal/repository"
)

// RoundWindow is the hard retention floor for the current round
const RoundWindow = 48 * time.Hour

// DefaultDetailLimit bounds detail views when the caller doesn't
const DefaultDetailLimit = 5000

// NoDataLabel is shown when nothing falls inside the active round
const NoDataLabel = "暂无数据"

// StatsServiceRepository defines the repository methods needed by StatsService
type StatsServiceRepository interface {
	repository.EventRepository
	repository.DeviceRepository
	repository.RoundResetRepository
	repository.OverrideRepository
}

// StatsService computes current-round aggregates and daily history
type StatsService struct {
	log         logger.Logger
	repo        StatsServiceRepository
	broadcaster Broadcaster
}

// NewStatsService creates a new StatsService
func NewStatsService(log logger.Logger, repo StatsServiceRepository) *StatsService {
	return &StatsService{log: log, repo: repo}
}

// SetBroadcaster sets the broadcaster for sending refresh hints to dashboards
func (s *StatsService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Stats is the complete, consistent snapshot served to the dashboard
type Stats struct {
	EffectiveStart time.Time           `json:"effective_start"`
	DateRange      string              `json:"date_range"`
	TotalUsers     int                 `json:"total_users"`
	TotalWins      int                 `json:"total_wins"`
	RankList       []models.RankEntry  `json:"rank_list"`
	HistoryData    []models.HistoryDay `json:"history_data"`
}

// GetStats returns the round snapshot plus daily history for a scope.
// An unknown device is a NotFound, distinct from a known device with no
// events yet (a valid, empty snapshot). Any storage failure fails the
// whole computation; no partial snapshot is returned.
func (s *StatsService) GetStats(ctx context.Context, deviceID, templateID string, now time.Time) (*Stats, error) {
	if _, err := s.repo.GetDevice(ctx, deviceID); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("device unknown")
		}
		return nil, err
	}
	templateID = normalizeTemplate(templateID)

	events, err := s.repo.ListEvents(ctx, deviceID, templateID)
	if err != nil {
		return nil, err
	}

	effectiveStart, err := s.effectiveRoundStart(ctx, deviceID, templateID, now)
	if err != nil {
		return nil, err
	}

	stats := &Stats{EffectiveStart: effectiveStart}
	var kept []models.Event
	for _, ev := range events {
		if t, ok := logtime.Parse(ev.LogTime); ok && !t.Before(effectiveStart) {
			kept = append(kept, ev)
		}
	}

	users := make(map[string]bool)
	rankIndex := make(map[string]int)
	for _, ev := range kept {
		users[ev.Nickname] = true
		stats.TotalWins += ev.Quantity
		i, ok := rankIndex[ev.Nickname]
		if !ok {
			i = len(stats.RankList)
			rankIndex[ev.Nickname] = i
			stats.RankList = append(stats.RankList, models.RankEntry{Nickname: ev.Nickname})
		}
		stats.RankList[i].WinTimes++
		stats.RankList[i].WinSum += ev.Quantity
	}
	stats.TotalUsers = len(users)

	// Stable: equal sums keep first-encounter order
	sort.SliceStable(stats.RankList, func(i, j int) bool {
		return stats.RankList[i].WinSum > stats.RankList[j].WinSum
	})

	if len(kept) == 0 {
		stats.DateRange = NoDataLabel
	} else {
		stats.DateRange = effectiveStart.Format("2006.01.02 15:04") + " - now"
	}

	stats.HistoryData, err = s.computeHistory(ctx, deviceID, templateID, events, now)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// effectiveRoundStart is the later of the 48h retention floor and the
// manual reset instant: a reset never resurrects expired data, and the
// floor never hides a newer reset.
func (s *StatsService) effectiveRoundStart(ctx context.Context, deviceID, templateID string, now time.Time) (time.Time, error) {
	floor := now.Add(-RoundWindow)

	resetAt, err := s.repo.GetRoundReset(ctx, deviceID, templateID)
	if err != nil {
		if err == repository.ErrNotFound {
			return floor, nil
		}
		return time.Time{}, err
	}
	reset, ok := logtime.Parse(resetAt)
	if !ok || reset.Before(floor) {
		return floor, nil
	}
	return reset, nil
}

// computeHistory rolls all in-scope events into per-day aggregates.
// Days are the literal first 10 characters of the raw timestamp; two
// spellings of the same calendar day stay in separate buckets on purpose.
// The open (current) day is excluded in every spelling it could appear
// under; operator overrides replace the computed pair for their day.
func (s *StatsService) computeHistory(ctx context.Context, deviceID, templateID string, events []models.Event, now time.Time) ([]models.HistoryDay, error) {
	today := map[string]bool{
		now.Format("2006-01-02"): true,
		now.Format("2006/01/02"): true,
		now.Format("2006.01.02"): true,
	}

	type bucket struct {
		users map[string]bool
		sum   int
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, ev := range events {
		if len(ev.LogTime) < 10 {
			continue
		}
		day := ev.LogTime[:10]
		if today[day] {
			continue
		}
		b, ok := buckets[day]
		if !ok {
			b = &bucket{users: make(map[string]bool)}
			buckets[day] = b
			order = append(order, day)
		}
		b.users[ev.Nickname] = true
		b.sum += ev.Quantity
	}

	overrides, err := s.repo.ListDailyOverrides(ctx, deviceID, templateID)
	if err != nil {
		return nil, err
	}
	overrideByDay := make(map[string]models.DailyOverride, len(overrides))
	for _, o := range overrides {
		overrideByDay[o.Date] = o
	}

	var history []models.HistoryDay
	for _, day := range order {
		b := buckets[day]
		entry := models.HistoryDay{Date: day, UserCount: len(b.users), DailySum: b.sum}
		if o, ok := overrideByDay[day]; ok {
			entry.UserCount = o.ManualUsers
			entry.DailySum = o.ManualSum
			entry.IsManual = true
			delete(overrideByDay, day)
		}
		history = append(history, entry)
	}
	// Overrides for days with no computed bucket still show up
	for day, o := range overrideByDay {
		if today[day] {
			continue
		}
		history = append(history, models.HistoryDay{
			Date: day, UserCount: o.ManualUsers, DailySum: o.ManualSum, IsManual: true,
		})
	}

	sort.SliceStable(history, func(i, j int) bool {
		return historySortKey(history[i].Date).After(historySortKey(history[j].Date))
	})
	return history, nil
}

// historySortKey parses a day bucket at midnight; buckets that don't
// parse sink to the bottom of the descending list.
func historySortKey(day string) time.Time {
	if t, ok := logtime.ParseDay(day); ok {
		return t
	}
	return time.Time{}
}

// GetDetail returns the most recent events in scope filtered to the
// active round, newest first.
func (s *StatsService) GetDetail(ctx context.Context, deviceID, templateID string, limit int, now time.Time) ([]models.Event, error) {
	if _, err := s.repo.GetDevice(ctx, deviceID); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("device unknown")
		}
		return nil, err
	}
	templateID = normalizeTemplate(templateID)
	if limit <= 0 || limit > DefaultDetailLimit {
		limit = DefaultDetailLimit
	}

	events, err := s.repo.ListRecentEvents(ctx, deviceID, templateID, limit)
	if err != nil {
		return nil, err
	}
	effectiveStart, err := s.effectiveRoundStart(ctx, deviceID, templateID, now)
	if err != nil {
		return nil, err
	}

	var details []models.Event
	for _, ev := range events {
		if t, ok := logtime.Parse(ev.LogTime); ok && !t.Before(effectiveStart) {
			details = append(details, ev)
		}
	}
	return details, nil
}

// GetDayDetail returns the raw events of one closed historical day: a
// literal prefix match on the stored timestamp, untouched by round logic,
// so even events with unparsable timestamps are retrievable here.
func (s *StatsService) GetDayDetail(ctx context.Context, deviceID, templateID, day string) ([]models.Event, error) {
	if day == "" {
		return nil, errors.InvalidInput("day is required")
	}
	if _, err := s.repo.GetDevice(ctx, deviceID); err != nil {
		if err == repository.ErrNotFound {
			return nil, errors.NotFound("device unknown")
		}
		return nil, err
	}
	templateID = normalizeTemplate(templateID)

	events, err := s.repo.ListEvents(ctx, deviceID, templateID)
	if err != nil {
		return nil, err
	}
	var matched []models.Event
	for _, ev := range events {
		if strings.HasPrefix(ev.LogTime, day) {
			matched = append(matched, ev)
		}
	}
	return matched, nil
}

// ResetRound starts a new round now: subsequent stats only count events
// at or after this instant (still bounded by the retention floor).
func (s *StatsService) ResetRound(ctx context.Context, deviceID, templateID string, now time.Time) (time.Time, error) {
	templateID = normalizeTemplate(templateID)
	if err := s.repo.SetRoundReset(ctx, deviceID, templateID, now.Format(logtime.Canonical)); err != nil {
		return time.Time{}, err
	}
	s.log.Info("round reset", "device_id", deviceID, "template", templateID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatsDirty(deviceID)
	}
	return s.effectiveRoundStart(ctx, deviceID, templateID, now)
}

// SetOverride stores an operator replacement for one day's aggregate
func (s *StatsService) SetOverride(ctx context.Context, o *models.DailyOverride) error {
	if o.Date == "" || o.DeviceID == "" {
		return errors.InvalidInput("date and device_id are required")
	}
	if o.ManualUsers < 0 || o.ManualSum < 0 {
		return errors.Validation("manual values must not be negative")
	}
	o.TemplateID = normalizeTemplate(o.TemplateID)
	if err := s.repo.SetDailyOverride(ctx, o); err != nil {
		return err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastStatsDirty(o.DeviceID)
	}
	return nil
}

// CorrectEvent is the administrative fix-by-id path
func (s *StatsService) CorrectEvent(ctx context.Context, id int64, nickname string, quantity int) error {
	if nickname == "" {
		return errors.InvalidInput("nickname is required")
	}
	if quantity < 0 {
		return errors.Validation("quantity must not be negative")
	}
	err := s.repo.UpdateEventCorrection(ctx, id, nickname, quantity)
	if err == repository.ErrNotFound {
		return errors.NotFoundf("event %d not found", id)
	}
	return err
}

// normalizeTemplate maps an empty or unknown declared template id to the
// default dialect, mirroring the ingest fallback.
func normalizeTemplate(templateID string) string {
	if tpl := logformat.Lookup(templateID); tpl != nil {
		return tpl.ID
	}
	return logformat.DefaultID
}
