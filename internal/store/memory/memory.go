// Package memory provides an in-process store binding, used for tests and
// local development. It implements the realtime capability: watchers get a
// partition snapshot pushed on every change.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"daylog/internal/core"
	"daylog/internal/store"
)

type Store struct {
	mu         sync.Mutex
	activities map[string]core.Activity // by id
	users      map[string]store.User    // by lowercased email
	hub        *store.Hub
	seq        int64
}

func New() *Store {
	return &Store{
		activities: make(map[string]core.Activity),
		users:      make(map[string]store.User),
		hub:        store.NewHub(),
	}
}

var _ store.Store = (*Store)(nil)
var _ store.Watcher = (*Store)(nil)

// List implements store.ActivityStore.
func (s *Store) List(_ context.Context, userID string, day core.Day) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partition(userID, day), nil
}

func (s *Store) partition(userID string, day core.Day) []core.Activity {
	out := make([]core.Activity, 0)
	for _, a := range s.activities {
		if a.UserID == userID && a.Date == day {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Create implements store.ActivityStore.
func (s *Store) Create(_ context.Context, userID string, day core.Day, title, category string, durationMinutes int) (core.Activity, error) {
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

	s.mu.Lock()
	// Creation order survives identical timestamps via a per-store sequence
	// folded into CreatedAt nanoseconds.
	s.seq++
	a.CreatedAt = a.CreatedAt.Add(time.Duration(s.seq))
	a.UpdatedAt = a.CreatedAt
	s.activities[a.ID] = a
	snapshot := s.partition(userID, day)
	s.mu.Unlock()

	s.hub.Notify(userID, day, snapshot)
	return a, nil
}

// Update implements store.ActivityStore.
func (s *Store) Update(_ context.Context, userID, id, title, category string, durationMinutes int) error {
	s.mu.Lock()
	a, ok := s.activities[id]
	if !ok || a.UserID != userID {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	a.Title = title
	a.Category = category
	a.DurationMinutes = durationMinutes
	a.UpdatedAt = time.Now()
	if err := a.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.activities[id] = a
	snapshot := s.partition(userID, a.Date)
	day := a.Date
	s.mu.Unlock()

	s.hub.Notify(userID, day, snapshot)
	return nil
}

// Delete implements store.ActivityStore.
func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	a, ok := s.activities[id]
	if !ok || a.UserID != userID {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.activities, id)
	snapshot := s.partition(userID, a.Date)
	day := a.Date
	s.mu.Unlock()

	s.hub.Notify(userID, day, snapshot)
	return nil
}

// Watch implements store.Watcher.
func (s *Store) Watch(ctx context.Context, userID string, day core.Day) (<-chan []core.Activity, func(), error) {
	ch, stop := s.hub.Subscribe(ctx, userID, day)
	return ch, stop, nil
}

// CreateUser implements store.UserStore.
func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (store.User, error) {
	key := strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return store.User{}, store.ErrEmailTaken
	}
	u := store.User{
		ID:           uuid.NewString(),
		Email:        key,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.users[key] = u
	return u, nil
}

// UserByEmail implements store.UserStore.
func (s *Store) UserByEmail(_ context.Context, email string) (store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}
