// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/nhle/mailboard/internal/model"
	"github.com/nhle/mailboard/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// BaseTime is the fixed clock used by fixtures.
var BaseTime = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

// Messages builds loaded messages with the given ids, newest first, one
// hour apart starting at BaseTime.
func Messages(ids ...string) []model.Message {
	out := make([]model.Message, len(ids))
	for i, id := range ids {
		out[i] = model.Message{
			ID:       id,
			ThreadID: id,
			From:     "sender" + id + "@example.com",
			Subject:  "Subject " + id,
			Snippet:  "snippet " + id,
			Date:     BaseTime.Add(-time.Duration(i) * time.Hour),
			Unread:   true,
		}
	}
	return out
}
