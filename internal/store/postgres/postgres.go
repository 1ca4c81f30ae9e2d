// Package postgres is the row-store binding: plain queries against a pgx
// pool, re-fetch after write, no push notifications. It serves both as a
// primary backend and as the mirror target the worker replays SQLite writes
// into.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"daylog/internal/core"
	"daylog/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

var _ store.Store = (*Store)(nil)

func (s *Store) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS activities (
    id               TEXT PRIMARY KEY,
    user_id          TEXT NOT NULL,
    date             TEXT NOT NULL,
    title            TEXT NOT NULL,
    category         TEXT NOT NULL,
    duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_activities_partition
    ON activities (user_id, date, created_at);`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

const activityColumns = "id, user_id, date, title, category, duration_minutes, created_at, updated_at"

func scanActivity(row pgx.Row) (core.Activity, error) {
	var a core.Activity
	var date string
	if err := row.Scan(&a.ID, &a.UserID, &date, &a.Title, &a.Category, &a.DurationMinutes, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return core.Activity{}, err
	}
	day, err := core.ParseDay(date)
	if err != nil {
		return core.Activity{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	a.Date = day
	return a, nil
}

// List implements store.ActivityStore.
func (s *Store) List(ctx context.Context, userID string, day core.Day) ([]core.Activity, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE user_id=$1 AND date=$2 ORDER BY created_at ASC, id ASC",
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
	return out, rows.Err()
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

	_, err := s.pool.Exec(ctx,
		"INSERT INTO activities ("+activityColumns+") VALUES ($1,$2,$3,$4,$5,$6,$7,$8)",
		a.ID, a.UserID, a.Date.String(), a.Title, a.Category, a.DurationMinutes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return core.Activity{}, fmt.Errorf("create activity: %w", err)
	}
	return a, nil
}

// Update implements store.ActivityStore.
func (s *Store) Update(ctx context.Context, userID, id, title, category string, durationMinutes int) error {
	if durationMinutes < 1 {
		return core.ErrInvalidDuration
	}
	if len(strings.TrimSpace(title)) == 0 {
		return core.ErrEmptyTitle
	}
	if len(title) > core.MaxTitleLength {
		return core.ErrTitleTooLong
	}

	tag, err := s.pool.Exec(ctx,
		"UPDATE activities SET title=$1, category=$2, duration_minutes=$3, updated_at=$4 WHERE id=$5 AND user_id=$6",
		title, category, durationMinutes, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Delete implements store.ActivityStore.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM activities WHERE id=$1 AND user_id=$2", id, userID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// MirrorUpsert writes an activity row verbatim, keeping the origin store's id
// and timestamps. Used by the mirror worker; repeat deliveries are absorbed
// by the upsert.
func (s *Store) MirrorUpsert(ctx context.Context, a core.Activity) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO activities (`+activityColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    category = EXCLUDED.category,
    duration_minutes = EXCLUDED.duration_minutes,
    updated_at = EXCLUDED.updated_at`,
		a.ID, a.UserID, a.Date.String(), a.Title, a.Category, a.DurationMinutes, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("mirror upsert: %w", err)
	}
	return nil
}

// MirrorDelete removes a mirrored row. Deleting an id the mirror never saw is
// a no-op, not an error.
func (s *Store) MirrorDelete(ctx context.Context, userID, id string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM activities WHERE id=$1 AND user_id=$2", id, userID)
	if err != nil {
		return fmt.Errorf("mirror delete: %w", err)
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
	_, err := s.pool.Exec(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES ($1,$2,$3,$4)",
		u.ID, u.Email, u.PasswordHash, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.User{}, store.ErrEmailTaken
		}
		return store.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// UserByEmail implements store.UserStore.
func (s *Store) UserByEmail(ctx context.Context, email string) (store.User, error) {
	var u store.User
	err := s.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email=$1",
		strings.ToLower(strings.TrimSpace(email))).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.User{}, store.ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("user by email: %w", err)
	}
	return u, nil
}
