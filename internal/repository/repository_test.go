package repository_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/lzhang-oss/winboard/internal/models"
	"github.com/lzhang-oss/winboard/internal/repository"
	"github.com/lzhang-oss/winboard/internal/testutil"
)

func newEvent(logTime, nickname string, qty int) *models.Event {
	ev := &models.Event{
		LogTime:    logTime,
		Nickname:   nickname,
		ItemType:   "钻石",
		Quantity:   qty,
		DeviceID:   "dev-1",
		TemplateID: "default",
	}
	ev.UniqueSign = logTime + "|" + nickname + "|钻石|" + strconv.Itoa(qty) + "|dev-1"
	return ev
}

// TestInsertEvent_Dedup tests that re-inserting the same sign reports
// inserted=false without erroring
func TestInsertEvent_Dedup(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	ev := newEvent("2026-02-06 10:00:00", "Alice", 50)

	inserted, err := repo.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted=true")
	}

	inserted, err = repo.InsertEvent(ctx, ev)
	if err != nil {
		t.Fatalf("duplicate InsertEvent: %v", err)
	}
	if inserted {
		t.Error("duplicate insert should report inserted=false")
	}

	events, err := repo.ListEvents(ctx, "dev-1", "default")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("got %d events, want 1", len(events))
	}
}

// TestListEvents_ScopeIsolation tests that listings never cross
// device or template boundaries
func TestListEvents_ScopeIsolation(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	a := newEvent("2026-02-06 10:00:00", "Alice", 50)
	b := newEvent("2026-02-06 10:01:00", "Bob", 20)
	b.DeviceID = "dev-2"
	c := newEvent("2026-02-06 10:02:00", "Carol", 30)
	c.TemplateID = "pixiu"
	c.UniqueSign += "|p"

	for _, ev := range []*models.Event{a, b, c} {
		if _, err := repo.InsertEvent(ctx, ev); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	events, err := repo.ListEvents(ctx, "dev-1", "default")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 || events[0].Nickname != "Alice" {
		t.Errorf("dev-1/default scope returned %+v", events)
	}
}

// TestListRecentEvents tests the newest-first bounded listing
func TestListRecentEvents(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	for i, nick := range []string{"Alice", "Bob", "Carol"} {
		ev := newEvent("2026-02-06 10:00:0"+strconv.Itoa(i), nick, 10+i)
		if _, err := repo.InsertEvent(ctx, ev); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	events, err := repo.ListRecentEvents(ctx, "dev-1", "default", 2)
	if err != nil {
		t.Fatalf("ListRecentEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Nickname != "Carol" || events[1].Nickname != "Bob" {
		t.Errorf("order = %s, %s; want Carol, Bob", events[0].Nickname, events[1].Nickname)
	}
}

// TestUpdateEventCorrection tests the admin edit path
func TestUpdateEventCorrection(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	ev := newEvent("2026-02-06 10:00:00", "Alcie", 5)
	if _, err := repo.InsertEvent(ctx, ev); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	events, _ := repo.ListEvents(ctx, "dev-1", "default")
	if len(events) != 1 {
		t.Fatal("setup failed")
	}

	if err := repo.UpdateEventCorrection(ctx, events[0].ID, "Alice", 50); err != nil {
		t.Fatalf("UpdateEventCorrection: %v", err)
	}

	events, _ = repo.ListEvents(ctx, "dev-1", "default")
	if events[0].Nickname != "Alice" || events[0].Quantity != 50 {
		t.Errorf("got %+v after correction", events[0])
	}

	if err := repo.UpdateEventCorrection(ctx, 9999, "X", 1); err != repository.ErrNotFound {
		t.Errorf("missing id: got %v, want ErrNotFound", err)
	}
}

// TestUpsertDevice_PreservesFirstSeen tests that re-upserting keeps the
// original first contact timestamp
func TestUpsertDevice_PreservesFirstSeen(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	if err := repo.UpsertDevice(ctx, "dev-1", "Line A", "default", true, 100); err != nil {
		t.Fatalf("UpsertDevice: %v", err)
	}
	if err := repo.UpsertDevice(ctx, "dev-1", "Line A2", "pixiu", false, 200); err != nil {
		t.Fatalf("second UpsertDevice: %v", err)
	}

	d, err := repo.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d.FirstSeen != 100 {
		t.Errorf("FirstSeen = %v, want 100", d.FirstSeen)
	}
	if d.LastSeen != 200 {
		t.Errorf("LastSeen = %v, want 200", d.LastSeen)
	}
	if d.Nickname != "Line A2" || d.TemplateID != "pixiu" {
		t.Errorf("latest fields not applied: %+v", d)
	}
	if d.ProcessRunning {
		t.Error("ProcessRunning should follow the latest upsert")
	}
}

// TestGetDevice_NotFound tests the missing-device sentinel
func TestGetDevice_NotFound(t *testing.T) {
	repo := testutil.NewTestRepository(t)

	if _, err := repo.GetDevice(context.Background(), "ghost"); err != repository.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// TestListDevices_FirstContactOrder tests the stable node ordering
func TestListDevices_FirstContactOrder(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	repo.UpsertDevice(ctx, "dev-b", "B", "default", true, 50)
	repo.UpsertDevice(ctx, "dev-a", "A", "default", true, 10)
	repo.UpsertDevice(ctx, "dev-b", "B", "default", true, 300)

	devices, err := repo.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices", len(devices))
	}
	if devices[0].DeviceID != "dev-a" || devices[1].DeviceID != "dev-b" {
		t.Errorf("order = %s, %s; want dev-a, dev-b", devices[0].DeviceID, devices[1].DeviceID)
	}
}

// TestSetDeviceSecret tests setting, clearing and the unknown-device error
func TestSetDeviceSecret(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	repo.UpsertDevice(ctx, "dev-1", "A", "default", true, 1)

	if err := repo.SetDeviceSecret(ctx, "dev-1", "s3cret"); err != nil {
		t.Fatalf("SetDeviceSecret: %v", err)
	}
	d, _ := repo.GetDevice(ctx, "dev-1")
	if d.Secret != "s3cret" {
		t.Errorf("Secret = %q", d.Secret)
	}

	if err := repo.SetDeviceSecret(ctx, "dev-1", ""); err != nil {
		t.Fatalf("clear secret: %v", err)
	}
	d, _ = repo.GetDevice(ctx, "dev-1")
	if d.Secret != "" {
		t.Errorf("Secret = %q after clear", d.Secret)
	}

	if err := repo.SetDeviceSecret(ctx, "ghost", "x"); err != repository.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// TestDeleteDeviceData tests the cascading purge
func TestDeleteDeviceData(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	repo.UpsertDevice(ctx, "dev-1", "A", "default", true, 1)
	repo.UpsertDevice(ctx, "dev-2", "B", "default", true, 2)
	repo.InsertEvent(ctx, newEvent("2026-02-06 10:00:00", "Alice", 50))
	other := newEvent("2026-02-06 10:00:00", "Bob", 20)
	other.DeviceID = "dev-2"
	other.UniqueSign += "|2"
	repo.InsertEvent(ctx, other)
	repo.SetRoundReset(ctx, "dev-1", "default", "2026-02-06 09:00:00")
	repo.SetDailyOverride(ctx, &models.DailyOverride{
		Date: "2026-02-05", DeviceID: "dev-1", TemplateID: "default",
		ManualUsers: 3, ManualSum: 99,
	})

	if err := repo.DeleteDeviceData(ctx, "dev-1"); err != nil {
		t.Fatalf("DeleteDeviceData: %v", err)
	}

	if _, err := repo.GetDevice(ctx, "dev-1"); err != repository.ErrNotFound {
		t.Errorf("device should be gone, got %v", err)
	}
	if events, _ := repo.ListEvents(ctx, "dev-1", "default"); len(events) != 0 {
		t.Errorf("events should be gone, got %d", len(events))
	}
	if _, err := repo.GetRoundReset(ctx, "dev-1", "default"); err != repository.ErrNotFound {
		t.Errorf("round reset should be gone, got %v", err)
	}
	if overrides, _ := repo.ListDailyOverrides(ctx, "dev-1", "default"); len(overrides) != 0 {
		t.Errorf("overrides should be gone, got %d", len(overrides))
	}

	// Unrelated device survives
	if _, err := repo.GetDevice(ctx, "dev-2"); err != nil {
		t.Errorf("dev-2 should survive: %v", err)
	}
	if events, _ := repo.ListEvents(ctx, "dev-2", "default"); len(events) != 1 {
		t.Errorf("dev-2 events should survive, got %d", len(events))
	}
}

// TestRoundReset_LastWriterWins tests REPLACE semantics per scope
func TestRoundReset_LastWriterWins(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	repo.SetRoundReset(ctx, "dev-1", "default", "2026-02-06 09:00:00")
	repo.SetRoundReset(ctx, "dev-1", "default", "2026-02-06 12:00:00")
	repo.SetRoundReset(ctx, "dev-1", "pixiu", "2026-02-06 08:00:00")

	got, err := repo.GetRoundReset(ctx, "dev-1", "default")
	if err != nil {
		t.Fatalf("GetRoundReset: %v", err)
	}
	if got != "2026-02-06 12:00:00" {
		t.Errorf("got %q, want the later reset", got)
	}

	got, _ = repo.GetRoundReset(ctx, "dev-1", "pixiu")
	if got != "2026-02-06 08:00:00" {
		t.Errorf("pixiu scope got %q", got)
	}

	if _, err := repo.GetRoundReset(ctx, "dev-2", "default"); err != repository.ErrNotFound {
		t.Errorf("missing scope: got %v, want ErrNotFound", err)
	}
}

// TestDailyOverride_Replace tests that re-setting an override replaces it
func TestDailyOverride_Replace(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	o := &models.DailyOverride{
		Date: "2026-02-05", DeviceID: "dev-1", TemplateID: "default",
		ManualUsers: 3, ManualSum: 99,
	}
	if err := repo.SetDailyOverride(ctx, o); err != nil {
		t.Fatalf("SetDailyOverride: %v", err)
	}
	o.ManualSum = 150
	if err := repo.SetDailyOverride(ctx, o); err != nil {
		t.Fatalf("replace SetDailyOverride: %v", err)
	}

	overrides, err := repo.ListDailyOverrides(ctx, "dev-1", "default")
	if err != nil {
		t.Fatalf("ListDailyOverrides: %v", err)
	}
	if len(overrides) != 1 {
		t.Fatalf("got %d overrides, want 1", len(overrides))
	}
	if overrides[0].ManualSum != 150 {
		t.Errorf("ManualSum = %d, want 150", overrides[0].ManualSum)
	}
}

// TestSettings tests get/set round trips and the missing-key sentinel
func TestSettings(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	if _, err := repo.GetSetting(ctx, "base_url"); err != repository.ErrNotFound {
		t.Errorf("missing key: got %v, want ErrNotFound", err)
	}

	if err := repo.SetSetting(ctx, "base_url", "http://10.0.0.5:5000"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	v, err := repo.GetSetting(ctx, "base_url")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "http://10.0.0.5:5000" {
		t.Errorf("got %q", v)
	}

	if err := repo.SetSetting(ctx, "base_url", "http://example.com"); err != nil {
		t.Fatalf("overwrite SetSetting: %v", err)
	}
	v, _ = repo.GetSetting(ctx, "base_url")
	if v != "http://example.com" {
		t.Errorf("after overwrite got %q", v)
	}
}
