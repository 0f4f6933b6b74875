package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/replicate/internal/model"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestItem creates a failed item with the given failure count.
func createTestItem(id, configID string, failures int) model.Item {
	item := model.NewItem(id, configID, "site-a", "site-b")
	for i := 0; i < failures; i++ {
		item.RecordFailure(testEpoch.Add(time.Duration(i) * time.Minute))
	}
	return item
}

// createTestStatus creates a completed status.
func createTestStatus(id, configID string, state model.State, start time.Time) model.Status {
	st := model.NewStatus(id, model.Job{
		ConfigID:    configID,
		Source:      "a",
		Destination: "b",
		Direction:   model.DirectionBoth,
	})
	st.MarkStart(start)
	st.State = state
	st.Complete(start.Add(1500 * time.Millisecond))
	return *st
}
