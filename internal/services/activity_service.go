// Package services orchestrates activity operations across the store, the
// summary cache, and the mirror queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daylog/internal/amqp"
	"daylog/internal/cache"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/observability"
	"daylog/internal/store"
)

// ErrWatchUnsupported is returned when the configured backend cannot push
// snapshots and callers must poll instead.
var ErrWatchUnsupported = errors.New("watch not supported by this backend")

// Publisher sends mirror messages. Satisfied by *amqp.Client.
type Publisher interface {
	PublishMirror(ctx context.Context, msg *amqp.MirrorMessage) error
}

// ActivityService applies the day-budget rules around store writes and keeps
// the summary cache and mirror queue in step with them.
type ActivityService struct {
	store     store.Store
	publisher Publisher
	summaries *cache.LRU[core.DaySummary]
	logger    *applog.Logger
}

func NewActivityService(st store.Store, publisher Publisher, summaries *cache.LRU[core.DaySummary], logger *applog.Logger) *ActivityService {
	return &ActivityService{
		store:     st,
		publisher: publisher,
		summaries: summaries,
		logger:    logger.WithComponent(applog.ComponentStore),
	}
}

// List returns the user's activities for a day in creation order.
func (s *ActivityService) List(ctx context.Context, userID string, day core.Day) ([]core.Activity, error) {
	return s.store.List(ctx, userID, day)
}

// Create validates the new entry against the day budget and stores it. The
// budget check reads current totals first, so concurrent writers can
// overshoot; the cap is advisory, not transactional.
func (s *ActivityService) Create(ctx context.Context, userID string, day core.Day, title, category string, durationMinutes int) (core.Activity, error) {
	existing, err := s.store.List(ctx, userID, day)
	if err != nil {
		return core.Activity{}, fmt.Errorf("list for budget check: %w", err)
	}
	if err := core.ValidateNewDuration(existing, durationMinutes); err != nil {
		if errors.Is(err, core.ErrBudgetExceeded) {
			observability.RecordBudgetRejection()
		}
		return core.Activity{}, err
	}

	activity, err := s.store.Create(ctx, userID, day, title, category, durationMinutes)
	observability.RecordActivityWrite(applog.OpCreate, err)
	if err != nil {
		return core.Activity{}, err
	}

	s.invalidateSummary(userID, day)
	s.publishUpsert(ctx, activity)

	s.logger.InfoContext(ctx, "activity created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, userID,
		applog.FieldActivityID, activity.ID,
		applog.FieldDay, day.String(),
		applog.FieldCategory, activity.Category,
		applog.FieldMinutes, activity.DurationMinutes)
	return activity, nil
}

// Update rewrites an existing entry. The edited entry's previous duration is
// handed back to the budget before the new duration is checked, so re-saving
// an unchanged full day succeeds.
func (s *ActivityService) Update(ctx context.Context, userID, id string, day core.Day, title, category string, durationMinutes int) (core.Activity, error) {
	existing, err := s.store.List(ctx, userID, day)
	if err != nil {
		return core.Activity{}, fmt.Errorf("list for budget check: %w", err)
	}
	if err := core.ValidateEditedDuration(existing, id, durationMinutes); err != nil {
		if errors.Is(err, core.ErrBudgetExceeded) {
			observability.RecordBudgetRejection()
		}
		if errors.Is(err, core.ErrNotFound) {
			return core.Activity{}, store.ErrNotFound
		}
		return core.Activity{}, err
	}

	err = s.store.Update(ctx, userID, id, title, category, durationMinutes)
	observability.RecordActivityWrite(applog.OpUpdate, err)
	if err != nil {
		return core.Activity{}, err
	}

	s.invalidateSummary(userID, day)

	updated := core.Activity{}
	for _, a := range existing {
		if a.ID == id {
			updated = a
			break
		}
	}
	updated.Title = title
	updated.Category = category
	updated.DurationMinutes = durationMinutes
	updated.UpdatedAt = time.Now()
	s.publishUpsert(ctx, updated)

	s.logger.InfoContext(ctx, "activity updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldUserID, userID,
		applog.FieldActivityID, id,
		applog.FieldDay, day.String(),
		applog.FieldMinutes, durationMinutes)
	return updated, nil
}

// Delete removes an entry owned by the user.
func (s *ActivityService) Delete(ctx context.Context, userID, id string, day core.Day) error {
	err := s.store.Delete(ctx, userID, id)
	observability.RecordActivityWrite(applog.OpDelete, err)
	if err != nil {
		return err
	}

	s.invalidateSummary(userID, day)
	s.publishDelete(ctx, id, userID, day)

	s.logger.InfoContext(ctx, "activity deleted",
		applog.FieldOperation, applog.OpDelete,
		applog.FieldUserID, userID,
		applog.FieldActivityID, id,
		applog.FieldDay, day.String())
	return nil
}

// Summary aggregates a day's activities by category. Results are cached
// until the next write to the same user and day.
func (s *ActivityService) Summary(ctx context.Context, userID string, day core.Day) (core.DaySummary, error) {
	key := summaryKey(userID, day)
	if s.summaries != nil {
		if cached, ok := s.summaries.Get(key); ok {
			return cached, nil
		}
	}

	activities, err := s.store.List(ctx, userID, day)
	if err != nil {
		return core.DaySummary{}, fmt.Errorf("list for summary: %w", err)
	}

	summary := core.Summarize(day, activities)
	if s.summaries != nil {
		s.summaries.Set(key, summary)
	}
	return summary, nil
}

// Watch subscribes to snapshot pushes for a user and day. Backends without
// push support return ErrWatchUnsupported.
func (s *ActivityService) Watch(ctx context.Context, userID string, day core.Day) (<-chan []core.Activity, func(), error) {
	watcher, ok := s.store.(store.Watcher)
	if !ok {
		return nil, nil, ErrWatchUnsupported
	}
	return watcher.Watch(ctx, userID, day)
}

// CanWatch reports whether the configured backend pushes snapshots.
func (s *ActivityService) CanWatch() bool {
	_, ok := s.store.(store.Watcher)
	return ok
}

func (s *ActivityService) invalidateSummary(userID string, day core.Day) {
	if s.summaries != nil {
		s.summaries.Delete(summaryKey(userID, day))
	}
}

func (s *ActivityService) publishUpsert(ctx context.Context, a core.Activity) {
	if s.publisher == nil {
		return
	}
	// Mirroring is best effort; the pending sweep picks up what the queue
	// missed.
	if err := s.publisher.PublishMirror(ctx, amqp.NewUpsertMessage(a.ID, a.UserID, a.Date.String())); err != nil {
		s.logger.WarnContext(ctx, "mirror publish failed",
			applog.FieldError, err,
			applog.FieldActivityID, a.ID)
	}
}

func (s *ActivityService) publishDelete(ctx context.Context, id, userID string, day core.Day) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishMirror(ctx, amqp.NewDeleteMessage(id, userID, day.String())); err != nil {
		s.logger.WarnContext(ctx, "mirror publish failed",
			applog.FieldError, err,
			applog.FieldActivityID, id)
	}
}

func summaryKey(userID string, day core.Day) string {
	return userID + "|" + day.String()
}
