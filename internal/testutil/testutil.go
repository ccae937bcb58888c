package testutil

import (
	"testing"

	"github.com/lzhang-oss/winboard/internal/repository"
)

// NewTestRepository opens a fresh in-memory database with the schema
// applied and closes it when the test ends.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}
