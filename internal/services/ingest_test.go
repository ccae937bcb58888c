package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/lzhang-oss/winboard/internal/logger"
	"github.com/lzhang-oss/winboard/internal/services"
	"github.com/lzhang-oss/winboard/internal/testutil"
)

func testLogger() logger.Logger {
	return logger.NewWithWriter(io.Discard, slog.LevelError)
}

type spyBroadcaster struct {
	deviceIDs []string
}

func (b *spyBroadcaster) BroadcastStatsDirty(deviceID string) {
	b.deviceIDs = append(b.deviceIDs, deviceID)
}

// TestIngest_NewAndDuplicate tests that re-uploading the same file
// reports zero new entries
func TestIngest_NewAndDuplicate(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	upload := []byte(
		"[2026-02-06 10:00:00] Alice_123 | win, type, 50\n" +
			"[2026-02-06 10:05:00] Bob_7 | win, type, 20\n")

	n, err := svc.Ingest(ctx, "dev-1", "default", "Line A", upload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("first upload: %d new entries, want 2", n)
	}

	n, err = svc.Ingest(ctx, "dev-1", "default", "Line A", upload)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if n != 0 {
		t.Errorf("duplicate upload: %d new entries, want 0", n)
	}

	events, err := repo.ListEvents(ctx, "dev-1", "default")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("stored %d events, want 2", len(events))
	}
}

// TestIngest_OverlappingUpload tests that a grown log file only adds the
// tail
func TestIngest_OverlappingUpload(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	first := "[2026-02-06 10:00:00] Alice_123 | win, type, 50\n"
	grown := first + "[2026-02-06 10:10:00] Alice_123 | win, type, 30\n"

	if _, err := svc.Ingest(ctx, "dev-1", "default", "Line A", []byte(first)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	n, err := svc.Ingest(ctx, "dev-1", "default", "Line A", []byte(grown))
	if err != nil {
		t.Fatalf("grown Ingest: %v", err)
	}
	if n != 1 {
		t.Errorf("grown upload: %d new entries, want 1", n)
	}
}

// TestIngest_SkipsMalformedLines tests that junk lines never abort a batch
func TestIngest_SkipsMalformedLines(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	upload := []byte(
		"agent started\n" +
			"\n" +
			"[2026-02-06 10:00:00] Alice_123 | win, type, 50\n" +
			"!! corrupted line !!\n" +
			"[2026-02-06 10:05:00] Bob_7 | win, type, 20\n")

	n, err := svc.Ingest(ctx, "dev-1", "default", "Line A", upload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 2 {
		t.Errorf("%d new entries, want 2", n)
	}
}

// TestIngest_GB18030Upload tests that legacy-encoded uploads decode before
// extraction
func TestIngest_GB18030Upload(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	line := "[2026-02-06 10:00:00] 小明_42 | 中奖，大奖，200\n"
	encoded, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(line))
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	n, err := svc.Ingest(ctx, "dev-1", "default", "Line A", encoded)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 1 {
		t.Fatalf("%d new entries, want 1", n)
	}

	events, _ := repo.ListEvents(ctx, "dev-1", "default")
	if events[0].Nickname != "小明" {
		t.Errorf("Nickname = %q, want decoded 小明", events[0].Nickname)
	}
	if events[0].Quantity != 200 {
		t.Errorf("Quantity = %d, want 200", events[0].Quantity)
	}
}

// TestIngest_UnknownTemplateFallsBack tests that an unknown declared
// template uses the default dialect and stores events under it
func TestIngest_UnknownTemplateFallsBack(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	upload := []byte("[2026-02-06 10:00:00] Alice_123 | win, type, 50\n")

	n, err := svc.Ingest(ctx, "dev-1", "does-not-exist", "Line A", upload)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if n != 1 {
		t.Fatalf("%d new entries, want 1", n)
	}

	events, _ := repo.ListEvents(ctx, "dev-1", "default")
	if len(events) != 1 {
		t.Fatalf("default scope has %d events, want 1", len(events))
	}
	if events[0].TemplateID != "default" {
		t.Errorf("TemplateID = %q, want default", events[0].TemplateID)
	}

	d, err := repo.GetDevice(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d.TemplateID != "default" {
		t.Errorf("device TemplateID = %q, want default", d.TemplateID)
	}
}

// TestIngest_TouchesDevice tests that an upload registers the device even
// without a prior heartbeat
func TestIngest_TouchesDevice(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, "dev-9", "default", "Line Z", []byte("junk\n")); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	d, err := repo.GetDevice(ctx, "dev-9")
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}
	if d.Nickname != "Line Z" {
		t.Errorf("Nickname = %q", d.Nickname)
	}
	if d.LastSeen == 0 {
		t.Error("LastSeen should be set by the upload")
	}
}

// TestIngest_BroadcastsOnNewEntriesOnly tests that refresh hints fire only
// when something actually landed
func TestIngest_BroadcastsOnNewEntriesOnly(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewIngestService(testLogger(), repo)
	spy := &spyBroadcaster{}
	svc.SetBroadcaster(spy)
	ctx := context.Background()

	upload := []byte("[2026-02-06 10:00:00] Alice_123 | win, type, 50\n")

	if _, err := svc.Ingest(ctx, "dev-1", "default", "Line A", upload); err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(spy.deviceIDs) != 1 || spy.deviceIDs[0] != "dev-1" {
		t.Errorf("broadcasts = %v, want [dev-1]", spy.deviceIDs)
	}

	if _, err := svc.Ingest(ctx, "dev-1", "default", "Line A", upload); err != nil {
		t.Fatalf("duplicate Ingest: %v", err)
	}
	if len(spy.deviceIDs) != 1 {
		t.Errorf("duplicate upload should not broadcast, got %v", spy.deviceIDs)
	}
}

// TestUniqueSign tests the dedup key layout
func TestUniqueSign(t *testing.T) {
	got := services.UniqueSign("2026-02-06 10:00:00", "Alice", "钻石", 50, "dev-1")
	want := "2026-02-06 10:00:00|Alice|钻石|50|dev-1"
	if got != want {
		t.Errorf("UniqueSign = %q, want %q", got, want)
	}
}
