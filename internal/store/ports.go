// Package store defines the persistence-facing contract for activities and
// users. Concrete bindings live in the sqlite, postgres and memory
// subpackages; callers depend only on the interfaces here and must not care
// which binding is active.
package store

import (
	"context"
	"errors"
	"time"

	"daylog/internal/core"
)

var (
	// ErrNotFound is returned when an id does not exist in the caller's
	// collection, including ids owned by another user.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when a sign-up reuses an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// User is an account record. PasswordHash never leaves the auth layer.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type (
	// ActivityStore is the store adapter: CRUD over activities scoped to a
	// user and a day partition.
	ActivityStore interface {
		// List returns the day partition ordered by creation time ascending.
		// An empty partition is an empty slice, not an error.
		List(ctx context.Context, userID string, day core.Day) ([]core.Activity, error)

		// Create persists a new activity, assigning id and timestamps.
		Create(ctx context.Context, userID string, day core.Day, title, category string, durationMinutes int) (core.Activity, error)

		// Update rewrites title, category and duration. Date and owner are
		// immutable. ErrNotFound when the id is absent from the caller's
		// collection.
		Update(ctx context.Context, userID, id, title, category string, durationMinutes int) error

		// Delete removes the activity permanently. ErrNotFound for an absent
		// id; other activities are never touched.
		Delete(ctx context.Context, userID, id string) error
	}

	// Watcher is the optional realtime capability: bindings that can push
	// change notifications implement it in addition to ActivityStore.
	Watcher interface {
		// Watch delivers a fresh partition snapshot on every change until the
		// context is done or the stop func is called. The stop func releases
		// the subscription; no notifications are delivered after it returns.
		Watch(ctx context.Context, userID string, day core.Day) (<-chan []core.Activity, func(), error)
	}

	// UserStore persists accounts alongside activities.
	UserStore interface {
		CreateUser(ctx context.Context, email, passwordHash string) (User, error)
		UserByEmail(ctx context.Context, email string) (User, error)
	}

	// Store is the full surface a backend binding provides.
	Store interface {
		ActivityStore
		UserStore
	}
)
