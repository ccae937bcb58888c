package services_test

import (
	"context"
	"testing"

	"github.com/lzhang-oss/winboard/internal/services"
	"github.com/lzhang-oss/winboard/internal/testutil"
)

// TestBaseURL tests that an unconfigured base URL reads as empty, not as
// an error
func TestBaseURL(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	svc := services.NewSettingsService(testLogger(), repo)
	ctx := context.Background()

	url, err := svc.GetBaseURL(ctx)
	if err != nil {
		t.Fatalf("GetBaseURL: %v", err)
	}
	if url != "" {
		t.Errorf("unconfigured base URL = %q, want empty", url)
	}

	if err := svc.SetBaseURL(ctx, "http://10.0.0.5:5000"); err != nil {
		t.Fatalf("SetBaseURL: %v", err)
	}
	url, err = svc.GetBaseURL(ctx)
	if err != nil {
		t.Fatalf("GetBaseURL: %v", err)
	}
	if url != "http://10.0.0.5:5000" {
		t.Errorf("base URL = %q", url)
	}
}
