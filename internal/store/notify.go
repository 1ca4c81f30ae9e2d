package store

import (
	"context"
	"sync"

	"daylog/internal/core"
)

// Hub fans partition snapshots out to watchers. Bindings that implement
// Watcher embed one and call Notify after every committed mutation; the hub
// owns subscriber bookkeeping so the bindings only deal with rows.
type Hub struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan []core.Activity
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan []core.Activity)}
}

func partitionKey(userID string, day core.Day) string {
	return userID + "|" + day.String()
}

// Subscribe registers a watcher for one partition. The returned stop func is
// idempotent and closes the channel; it must be called on teardown so no
// listener outlives its consumer.
func (h *Hub) Subscribe(ctx context.Context, userID string, day core.Day) (<-chan []core.Activity, func()) {
	key := partitionKey(userID, day)
	ch := make(chan []core.Activity, 1)

	h.mu.Lock()
	h.next++
	id := h.next
	if h.subs[key] == nil {
		h.subs[key] = make(map[int]chan []core.Activity)
	}
	h.subs[key][id] = ch
	h.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[key]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(h.subs, key)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			stop()
		}()
	}

	return ch, stop
}

// Notify pushes a snapshot to every watcher of the partition. Slow consumers
// are skipped rather than blocked on: each channel holds the latest snapshot
// only, and a watcher that has not drained yet gets the newer one instead.
func (h *Hub) Notify(userID string, day core.Day, snapshot []core.Activity) {
	key := partitionKey(userID, day)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[key] {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Watchers reports the number of active subscriptions for a partition.
func (h *Hub) Watchers(userID string, day core.Day) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[partitionKey(userID, day)])
}
