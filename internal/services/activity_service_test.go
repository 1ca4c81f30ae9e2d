package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"daylog/internal/amqp"
	"daylog/internal/cache"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/store"
	"daylog/internal/store/memory"
)

type fakePublisher struct {
	published []*amqp.MirrorMessage
	err       error
}

func (p *fakePublisher) PublishMirror(ctx context.Context, msg *amqp.MirrorMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func testDay() core.Day {
	return core.NewDay(2025, 6, 15)
}

func newService(t *testing.T, pub Publisher) *ActivityService {
	t.Helper()
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewActivityService(memory.New(), pub, cache.NewLRU[core.DaySummary](16, time.Minute), logger)
}

func TestCreateAndList(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()
	day := testDay()

	created, err := svc.Create(ctx, "u1", day, "Morning run", "Exercise", 45)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if created.ID == "" {
		t.Error("Create() returned empty id")
	}

	got, err := svc.List(ctx, "u1", day)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Morning run" {
		t.Errorf("List() = %+v, want the created activity", got)
	}

	if len(pub.published) != 1 || pub.published[0].Op != amqp.OpUpsert {
		t.Errorf("published = %+v, want one upsert", pub.published)
	}
}

func TestCreateBudgetEnforcement(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	day := testDay()

	if _, err := svc.Create(ctx, "u1", day, "Work", "Work", 480); err != nil {
		t.Fatalf("Create(480) error: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", day, "Sleep", "Sleep", 420); err != nil {
		t.Fatalf("Create(420) error: %v", err)
	}

	// 900 used, 540 remain.
	if _, err := svc.Create(ctx, "u1", day, "Too much", "Other", 541); !errors.Is(err, core.ErrBudgetExceeded) {
		t.Errorf("Create(541) = %v, want ErrBudgetExceeded", err)
	}
	if _, err := svc.Create(ctx, "u1", day, "Exactly", "Other", 540); err != nil {
		t.Errorf("Create(540) error: %v", err)
	}
}

func TestUpdateBudgetReturnsOwnDuration(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	day := testDay()

	full, err := svc.Create(ctx, "u1", day, "Everything", "Other", core.MinutesInDay)
	if err != nil {
		t.Fatalf("Create(full day) error: %v", err)
	}

	// Re-saving the same duration must pass.
	if _, err := svc.Update(ctx, "u1", full.ID, day, "Everything", "Other", core.MinutesInDay); err != nil {
		t.Errorf("Update(same duration) error: %v", err)
	}
	if _, err := svc.Update(ctx, "u1", full.ID, day, "Everything", "Other", core.MinutesInDay+1); !errors.Is(err, core.ErrBudgetExceeded) {
		t.Errorf("Update(over budget) = %v, want ErrBudgetExceeded", err)
	}
}

func TestUpdateMissingActivity(t *testing.T) {
	svc := newService(t, nil)
	if _, err := svc.Update(context.Background(), "u1", "no-such-id", testDay(), "X", "Other", 30); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(missing) = %v, want store.ErrNotFound", err)
	}
}

func TestDeletePublishesAndScopes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(t, pub)
	ctx := context.Background()
	day := testDay()

	created, err := svc.Create(ctx, "u1", day, "Nap", "Sleep", 30)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.Delete(ctx, "u2", created.ID, day); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete as other user = %v, want store.ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "u1", created.ID, day); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	last := pub.published[len(pub.published)-1]
	if last.Op != amqp.OpDelete || last.ActivityID != created.ID {
		t.Errorf("last published = %+v, want delete of %s", last, created.ID)
	}
}

func TestCreateSurvivesPublishFailure(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newService(t, pub)

	if _, err := svc.Create(context.Background(), "u1", testDay(), "Read", "Study", 60); err != nil {
		t.Errorf("Create() with failing publisher error: %v, want nil", err)
	}
}

func TestSummaryCachedUntilWrite(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()
	day := testDay()

	if _, err := svc.Create(ctx, "u1", day, "Work", "Work", 480); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	first, err := svc.Summary(ctx, "u1", day)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if first.TotalMinutes != 480 {
		t.Errorf("TotalMinutes = %d, want 480", first.TotalMinutes)
	}

	// A write must invalidate the cached summary.
	if _, err := svc.Create(ctx, "u1", day, "Run", "Exercise", 60); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	second, err := svc.Summary(ctx, "u1", day)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if second.TotalMinutes != 540 {
		t.Errorf("TotalMinutes after write = %d, want 540", second.TotalMinutes)
	}
	if second.ActivityCount != 2 {
		t.Errorf("ActivityCount = %d, want 2", second.ActivityCount)
	}
}

func TestWatchCapability(t *testing.T) {
	svc := newService(t, nil)
	if !svc.CanWatch() {
		t.Fatal("memory backend should support watch")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	day := testDay()

	ch, stop, err := svc.Watch(ctx, "u1", day)
	if err != nil {
		t.Fatalf("Watch() error: %v", err)
	}
	defer stop()

	if _, err := svc.Create(ctx, "u1", day, "Walk", "Exercise", 20); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	select {
	case snapshot := <-ch:
		if len(snapshot) != 1 || snapshot[0].Title != "Walk" {
			t.Errorf("snapshot = %+v, want the created activity", snapshot)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered after create")
	}
}
