package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newSQLiteStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := OpenSQLite(filepath.Join(t.TempDir(), "okeeper.db"))
	if err != nil {
		t.Fatalf("opening sqlite store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	return s
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	sent := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.Create(ctx, "owner-1", &Record{
		ContactID:      "c1",
		ContactName:    "Professor X",
		InitialMessage: "hello",
		SentAt:         sent,
		ReferenceURL:   "https://example.com/x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a record id")
	}

	rec, err := s.Get(ctx, "owner-1", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ID != id || rec.ContactName != "Professor X" || rec.InitialMessage != "hello" {
		t.Fatalf("record did not round-trip: %+v", rec)
	}
	if !rec.SentAt.Equal(sent) {
		t.Fatalf("sentAt did not round-trip, got %v want %v", rec.SentAt, sent)
	}
	if rec.FollowedUp || rec.FollowUpAt != nil {
		t.Fatalf("fresh record must not carry follow-up fields: %+v", rec)
	}
}

func TestSQLiteUpdateAppliesOnce(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "owner-1", &Record{
		ContactName: "a",
		SentAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	followedUp := true
	first := "first follow-up"
	at := time.Date(2024, 5, 8, 9, 0, 0, 0, time.UTC)
	err = s.Update(ctx, "owner-1", id, Fields{
		FollowedUp:      &followedUp,
		FollowUpMessage: &first,
		FollowUpAt:      &at,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := "second follow-up"
	later := at.Add(time.Hour)
	err = s.Update(ctx, "owner-1", id, Fields{
		FollowedUp:      &followedUp,
		FollowUpMessage: &second,
		FollowUpAt:      &later,
	})
	if err != nil {
		t.Fatalf("a repeated update must succeed as a no-op: %v", err)
	}

	rec, err := s.Get(ctx, "owner-1", id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !rec.FollowedUp {
		t.Fatalf("expected a followed-up record")
	}
	if rec.FollowUpMessage != first {
		t.Fatalf("second update must not overwrite the follow-up, got %q", rec.FollowUpMessage)
	}
	if rec.FollowUpAt == nil || !rec.FollowUpAt.Equal(at) {
		t.Fatalf("second update must not move followUpAt, got %v", rec.FollowUpAt)
	}
}

func TestSQLiteOwnerScopingAndOrdering(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"older", "newer"} {
		_, err := s.Create(ctx, "owner-1", &Record{
			ContactName: name,
			SentAt:      base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	foreignID, err := s.Create(ctx, "owner-2", &Record{ContactName: "foreign", SentAt: base})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := s.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records for owner-1, got %d", len(records))
	}
	if records[0].ContactName != "newer" {
		t.Fatalf("expected most recent record first, got %q", records[0].ContactName)
	}

	if _, err := s.Get(ctx, "owner-1", foreignID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign owner, got %v", err)
	}

	followedUp := true
	err = s.Update(ctx, "owner-1", "missing", Fields{FollowedUp: &followedUp})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing record, got %v", err)
	}
}
