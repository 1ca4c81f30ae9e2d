package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"daylog/internal/amqp"
	"daylog/internal/core"
	applog "daylog/internal/log"
	"daylog/internal/store"
)

type fakeOrigin struct {
	activities map[string]core.Activity
	mirrored   []string
	errored    []string
}

func newFakeOrigin() *fakeOrigin {
	return &fakeOrigin{activities: make(map[string]core.Activity)}
}

func (f *fakeOrigin) ActivityByID(_ context.Context, id string) (core.Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return core.Activity{}, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeOrigin) PendingActivities(_ context.Context, limit int) ([]core.Activity, error) {
	out := make([]core.Activity, 0)
	for _, a := range f.activities {
		if len(out) >= limit {
			break
		}
		if !contains(f.mirrored, a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeOrigin) MarkMirrored(_ context.Context, id string) error {
	f.mirrored = append(f.mirrored, id)
	return nil
}

func (f *fakeOrigin) MarkMirrorError(_ context.Context, id string) error {
	f.errored = append(f.errored, id)
	return nil
}

type fakeMirror struct {
	upserts []core.Activity
	deletes []string
	err     error
}

func (f *fakeMirror) MirrorUpsert(_ context.Context, a core.Activity) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, a)
	return nil
}

func (f *fakeMirror) MirrorDelete(_ context.Context, userID, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func testActivity(id string) core.Activity {
	now := time.Now()
	return core.Activity{
		ID:              id,
		UserID:          "u1",
		Date:            core.NewDay(2025, 6, 15),
		Title:           "Deep work",
		Category:        "Work",
		DurationMinutes: 90,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newTestWorker(origin Origin, mirror Mirror) *MirrorWorker {
	logger := applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewMirrorWorker(origin, mirror, 10, logger)
}

func TestHandleUpsert(t *testing.T) {
	origin := newFakeOrigin()
	mirror := &fakeMirror{}
	origin.activities["a1"] = testActivity("a1")
	w := newTestWorker(origin, mirror)

	msg := amqp.NewUpsertMessage("a1", "u1", "2025-06-15")
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage(upsert) error: %v", err)
	}

	if len(mirror.upserts) != 1 || mirror.upserts[0].ID != "a1" {
		t.Errorf("upserts = %+v, want a1", mirror.upserts)
	}
	if !contains(origin.mirrored, "a1") {
		t.Error("a1 should be marked mirrored")
	}
}

func TestHandleUpsertMissingActivity(t *testing.T) {
	origin := newFakeOrigin()
	mirror := &fakeMirror{}
	w := newTestWorker(origin, mirror)

	// Row deleted between publish and delivery: not an error, no upsert.
	msg := amqp.NewUpsertMessage("gone", "u1", "2025-06-15")
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage(missing row) error: %v, want nil", err)
	}
	if len(mirror.upserts) != 0 {
		t.Errorf("upserts = %+v, want none", mirror.upserts)
	}
}

func TestHandleUpsertMirrorFailure(t *testing.T) {
	origin := newFakeOrigin()
	mirror := &fakeMirror{err: errors.New("mirror down")}
	origin.activities["a1"] = testActivity("a1")
	w := newTestWorker(origin, mirror)

	msg := amqp.NewUpsertMessage("a1", "u1", "2025-06-15")
	if err := w.HandleMessage(context.Background(), msg); err == nil {
		t.Fatal("HandleMessage should fail when the mirror write fails")
	}
	if !contains(origin.errored, "a1") {
		t.Error("a1 should be marked with a mirror error")
	}
	if contains(origin.mirrored, "a1") {
		t.Error("a1 must not be marked mirrored after a failure")
	}
}

func TestHandleDelete(t *testing.T) {
	origin := newFakeOrigin()
	mirror := &fakeMirror{}
	w := newTestWorker(origin, mirror)

	msg := amqp.NewDeleteMessage("a1", "u1", "2025-06-15")
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage(delete) error: %v", err)
	}
	if len(mirror.deletes) != 1 || mirror.deletes[0] != "a1" {
		t.Errorf("deletes = %+v, want a1", mirror.deletes)
	}
}

func TestHandleUnknownOp(t *testing.T) {
	w := newTestWorker(newFakeOrigin(), &fakeMirror{})
	msg := &amqp.MirrorMessage{Op: "compact", ActivityID: "a1"}
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Errorf("HandleMessage(unknown op) = %v, want nil", err)
	}
}

func TestProcessPending(t *testing.T) {
	origin := newFakeOrigin()
	mirror := &fakeMirror{}
	origin.activities["a1"] = testActivity("a1")
	origin.activities["a2"] = testActivity("a2")
	w := newTestWorker(origin, mirror)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error: %v", err)
	}

	if len(mirror.upserts) != 2 {
		t.Errorf("upserts = %d, want 2", len(mirror.upserts))
	}
	if !contains(origin.mirrored, "a1") || !contains(origin.mirrored, "a2") {
		t.Errorf("mirrored = %v, want a1 and a2", origin.mirrored)
	}

	// A second sweep finds nothing left to do.
	mirror.upserts = nil
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("second ProcessPending() error: %v", err)
	}
	if len(mirror.upserts) != 0 {
		t.Errorf("second sweep upserts = %+v, want none", mirror.upserts)
	}
}
