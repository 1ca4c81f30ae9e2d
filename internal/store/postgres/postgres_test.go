package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"daylog/internal/core"
	"daylog/internal/store"
)

// Integration tests run only when TEST_POSTGRES_URL points at a disposable
// database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	s, err := New(context.Background(), url)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestActivityRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day := core.NewDay(2025, 6, 15)

	created, err := s.Create(ctx, "pg-user-1", day, "Deep work", "Work", 90)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { _ = s.Delete(ctx, "pg-user-1", created.ID) })

	listed, err := s.List(ctx, "pg-user-1", day)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	found := false
	for _, a := range listed {
		if a.ID == created.ID && a.Title == "Deep work" && a.DurationMinutes == 90 {
			found = true
		}
	}
	if !found {
		t.Errorf("created activity not listed: %+v", listed)
	}

	if err := s.Update(ctx, "pg-user-1", created.ID, "Deeper work", "Work", 120); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if err := s.Update(ctx, "someone-else", created.ID, "X", "Work", 30); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cross-user Update() = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "pg-user-1", created.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if err := s.Delete(ctx, "pg-user-1", created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestMirrorUpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := core.Activity{
		ID:              "mirror-test-1",
		UserID:          "pg-user-2",
		Date:            core.NewDay(2025, 6, 15),
		Title:           "Night sleep",
		Category:        "Sleep",
		DurationMinutes: 420,
	}
	t.Cleanup(func() { _ = s.MirrorDelete(ctx, a.UserID, a.ID) })

	if err := s.MirrorUpsert(ctx, a); err != nil {
		t.Fatalf("MirrorUpsert() error: %v", err)
	}

	a.DurationMinutes = 480
	if err := s.MirrorUpsert(ctx, a); err != nil {
		t.Fatalf("second MirrorUpsert() error: %v", err)
	}

	listed, err := s.List(ctx, a.UserID, a.Date)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(listed) != 1 || listed[0].DurationMinutes != 480 {
		t.Errorf("listed = %+v, want one row with 480 minutes", listed)
	}

	// Deleting twice is fine.
	if err := s.MirrorDelete(ctx, a.UserID, a.ID); err != nil {
		t.Fatalf("MirrorDelete() error: %v", err)
	}
	if err := s.MirrorDelete(ctx, a.UserID, a.ID); err != nil {
		t.Errorf("second MirrorDelete() = %v, want nil", err)
	}
}

func TestUserStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, "PG@Example.com", "hash")
	if err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	if created.Email != "pg@example.com" {
		t.Errorf("email = %q, want lowercased", created.Email)
	}

	if _, err := s.CreateUser(ctx, "pg@example.com", "hash2"); !errors.Is(err, store.ErrEmailTaken) {
		t.Errorf("duplicate CreateUser() = %v, want ErrEmailTaken", err)
	}

	fetched, err := s.UserByEmail(ctx, "pg@example.com")
	if err != nil {
		t.Fatalf("UserByEmail() error: %v", err)
	}
	if fetched.ID != created.ID {
		t.Errorf("fetched id = %q, want %q", fetched.ID, created.ID)
	}

	if _, err := s.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UserByEmail(missing) = %v, want ErrNotFound", err)
	}
}
