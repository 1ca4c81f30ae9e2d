// Package worker replays SQLite activity writes into the Postgres mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"daylog/internal/amqp"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/observability"
	"daylog/internal/store"
	"daylog/internal/store/sqlite"
)

// Origin is the subset of the SQLite store the worker reads and marks.
type Origin interface {
	ActivityByID(ctx context.Context, id string) (core.Activity, error)
	PendingActivities(ctx context.Context, limit int) ([]core.Activity, error)
	MarkMirrored(ctx context.Context, id string) error
	MarkMirrorError(ctx context.Context, id string) error
}

// Mirror is the write side, satisfied by *postgres.Store.
type Mirror interface {
	MirrorUpsert(ctx context.Context, a core.Activity) error
	MirrorDelete(ctx context.Context, userID, id string) error
}

var _ Origin = (*sqlite.Store)(nil)

// MirrorWorker consumes mirror messages and keeps a periodic sweep over rows
// the queue missed.
type MirrorWorker struct {
	origin    Origin
	mirror    Mirror
	batchSize int
	logger    *applog.Logger
}

func NewMirrorWorker(origin Origin, mirror Mirror, batchSize int, logger *applog.Logger) *MirrorWorker {
	return &MirrorWorker{
		origin:    origin,
		mirror:    mirror,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage processes one mirror message. Upserts fetch the current row
// from the origin, so a stale message still mirrors the latest state.
func (w *MirrorWorker) HandleMessage(ctx context.Context, msg *amqp.MirrorMessage) error {
	var err error
	switch msg.Op {
	case amqp.OpUpsert:
		err = w.mirrorUpsert(ctx, msg.ActivityID)
	case amqp.OpDelete:
		err = w.mirror.MirrorDelete(ctx, msg.UserID, msg.ActivityID)
	default:
		// Unknown op, drop without requeue noise.
		w.logger.WarnContext(ctx, "unknown mirror op",
			"op", msg.Op,
			applog.FieldActivityID, msg.ActivityID)
		return nil
	}

	observability.RecordMirrorResult(err)
	if err != nil {
		return err
	}
	observability.RecordMirrored(time.Now())
	return nil
}

func (w *MirrorWorker) mirrorUpsert(ctx context.Context, id string) error {
	activity, err := w.origin.ActivityByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		// Deleted between the message and now. The delete message carries
		// the cleanup.
		w.logger.InfoContext(ctx, "activity gone before mirror, skipping",
			applog.FieldActivityID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch activity: %w", err)
	}

	if err := w.mirror.MirrorUpsert(ctx, activity); err != nil {
		if markErr := w.origin.MarkMirrorError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "mark mirror error failed",
				applog.FieldActivityID, id,
				applog.FieldError, markErr)
		}
		return fmt.Errorf("mirror upsert: %w", err)
	}

	if err := w.origin.MarkMirrored(ctx, id); err != nil {
		return fmt.Errorf("mark mirrored: %w", err)
	}

	w.logger.InfoContext(ctx, "activity mirrored",
		applog.FieldOperation, applog.OpMirror,
		applog.FieldActivityID, activity.ID,
		applog.FieldUserID, activity.UserID,
		applog.FieldDay, activity.Date.String())
	return nil
}

// ProcessPending sweeps rows still marked pending. Backup path for messages
// the queue lost.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.origin.PendingActivities(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending activities: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing pending activities", "count", len(pending))

	for _, activity := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := w.mirrorUpsert(ctx, activity.ID)
		observability.RecordMirrorResult(err)
		if err != nil {
			w.logger.ErrorContext(ctx, "pending mirror failed",
				applog.FieldActivityID, activity.ID,
				applog.FieldError, err)
			continue
		}
		observability.RecordMirrored(time.Now())
	}
	return nil
}

// Consume drains the queue until the context is cancelled.
func (w *MirrorWorker) Consume(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeMirror(ctx, func(msg *amqp.MirrorMessage) error {
		return w.HandleMessage(ctx, msg)
	})
}

// Sweep runs ProcessPending immediately and then on every tick until the
// context is cancelled. Sweep failures are logged and retried on the next
// tick rather than stopping the worker.
func (w *MirrorWorker) Sweep(ctx context.Context, interval time.Duration) error {
	if err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "startup pending sweep failed", applog.FieldError, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.ProcessPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
				w.logger.ErrorContext(ctx, "pending sweep failed", applog.FieldError, err)
			}
		}
	}
}
