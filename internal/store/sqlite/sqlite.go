// Package sqlite is the primary local store binding. Writes land here first;
// a mirror worker replays them into the Postgres binding using the per-row
// sync state this package maintains.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"daylog/internal/core"
	"daylog/internal/store"
)

// Sync states for the mirror worker.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type Store struct {
	db  *sql.DB
	hub *store.Hub
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, hub: store.NewHub()}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ store.Store = (*Store)(nil)
var _ store.Watcher = (*Store)(nil)

// Fixed-width UTC layout so the stored strings sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const activityColumns = "id, user_id, date, title, category, duration_minutes, created_at, updated_at"

func scanActivity(row interface{ Scan(...any) error }) (core.Activity, error) {
	var a core.Activity
	var date, createdAt, updatedAt string
	if err := row.Scan(&a.ID, &a.UserID, &date, &a.Title, &a.Category, &a.DurationMinutes, &createdAt, &updatedAt); err != nil {
		return core.Activity{}, err
	}
	day, err := core.ParseDay(date)
	if err != nil {
		return core.Activity{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	a.Date = day
	if a.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return core.Activity{}, fmt.Errorf("stored created_at %q: %w", createdAt, err)
	}
	if a.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return core.Activity{}, fmt.Errorf("stored updated_at %q: %w", updatedAt, err)
	}
	return a, nil
}

// List implements store.ActivityStore.
func (s *Store) List(ctx context.Context, userID string, day core.Day) ([]core.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE user_id = ? AND date = ? ORDER BY created_at ASC, id ASC",
		userID, day.String())
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	out := make([]core.Activity, 0)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	return out, nil
}

// Create implements store.ActivityStore.
func (s *Store) Create(ctx context.Context, userID string, day core.Day, title, category string, durationMinutes int) (core.Activity, error) {
	now := time.Now()
	a := core.Activity{
		ID:              uuid.NewString(),
		UserID:          userID,
		Date:            day,
		Title:           title,
		Category:        category,
		DurationMinutes: durationMinutes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO activities (id, user_id, date, title, category, duration_minutes, created_at, updated_at, sync_state) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		a.ID, a.UserID, a.Date.String(), a.Title, a.Category, a.DurationMinutes,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt), SyncPending)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}

	slog.InfoContext(ctx, "Activity saved",
		"id", a.ID, "user_id", userID, "day", day.String(),
		"category", category, "duration_minutes", durationMinutes)

	s.notify(ctx, userID, day)
	return a, nil
}

// Update implements store.ActivityStore.
func (s *Store) Update(ctx context.Context, userID, id, title, category string, durationMinutes int) error {
	existing, err := s.ActivityByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return store.ErrNotFound
	}

	draft := existing
	draft.Title = title
	draft.Category = category
	draft.DurationMinutes = durationMinutes
	if err := draft.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE activities SET title = ?, category = ?, duration_minutes = ?, updated_at = ?, sync_state = ? WHERE id = ? AND user_id = ?",
		title, category, durationMinutes, formatTime(time.Now()), SyncPending, id, userID)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.notify(ctx, userID, existing.Date)
	return nil
}

// Delete implements store.ActivityStore.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	existing, err := s.ActivityByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return store.ErrNotFound
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM activities WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}

	s.notify(ctx, userID, existing.Date)
	return nil
}

// Watch implements store.Watcher.
func (s *Store) Watch(ctx context.Context, userID string, day core.Day) (<-chan []core.Activity, func(), error) {
	ch, stop := s.hub.Subscribe(ctx, userID, day)
	return ch, stop, nil
}

func (s *Store) notify(ctx context.Context, userID string, day core.Day) {
	if s.hub.Watchers(userID, day) == 0 {
		return
	}
	snapshot, err := s.List(ctx, userID, day)
	if err != nil {
		slog.WarnContext(ctx, "Snapshot for watchers failed", "error", err, "user_id", userID, "day", day.String())
		return
	}
	s.hub.Notify(userID, day, snapshot)
}

// ActivityByID fetches a single activity regardless of sync state. Used by
// ownership checks and by the mirror worker resolving queue messages.
func (s *Store) ActivityByID(ctx context.Context, id string) (core.Activity, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?", id)
	a, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Activity{}, store.ErrNotFound
	}
	if err != nil {
		return core.Activity{}, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// PendingActivities returns up to limit rows awaiting mirror sync, oldest
// first. Backup path for AMQP messages that never arrived.
func (s *Store) PendingActivities(ctx context.Context, limit int) ([]core.Activity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE sync_state = ? ORDER BY updated_at ASC LIMIT ?",
		SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending activities: %w", err)
	}
	defer rows.Close()

	out := make([]core.Activity, 0, limit)
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending activity: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// MarkMirrored records a successful mirror write.
func (s *Store) MarkMirrored(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE activities SET sync_state = ?, synced_at = ? WHERE id = ?",
		SyncDone, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}
	return nil
}

// MarkMirrorError flags a row whose mirror write failed; the periodic sweep
// will not retry it until it goes pending again through a new write.
func (s *Store) MarkMirrorError(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE activities SET sync_state = ? WHERE id = ?", SyncError, id)
	if err != nil {
		return fmt.Errorf("mark mirror error: %w", err)
	}
	return nil
}

// CreateUser implements store.UserStore.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (store.User, error) {
	u := store.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.User{}, store.ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByEmail implements store.UserStore.
func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	var u store.User
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("user by email: %w", err)
	}
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return store.User{}, fmt.Errorf("stored created_at %q: %w", createdAt, err)
	}
	return u, nil
}
