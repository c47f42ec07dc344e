// internal/runner/signals.go
package runner

import (
	"sync"

	"github.com/user/lector/internal/types"
)

// Hub fans playback signals out to registered handlers. Consumers (the
// notifier, the webhook status endpoint, tests) subscribe before the
// daemon starts; emission never blocks the reading loop on a consumer.
type Hub struct {
	mu       sync.RWMutex
	progress []func(index, total int, itemID types.ItemID)
	done     []func(status Status)
	changed  []func()
	conflict []func(params types.StartParams)
}

// NewHub creates an empty signal hub.
func NewHub() *Hub {
	return &Hub{}
}

// OnProgress registers a handler for per-item progress signals.
func (h *Hub) OnProgress(fn func(index, total int, itemID types.ItemID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = append(h.progress, fn)
}

// OnDone registers a handler for session completion.
func (h *Hub) OnDone(fn func(status Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = append(h.done, fn)
}

// OnContentChanged registers a handler fired after an item is consumed.
func (h *Hub) OnContentChanged(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.changed = append(h.changed, fn)
}

// OnConflict registers a handler for conflict aborts. The params carry
// everything needed to re-invoke the start with the check bypassed.
func (h *Hub) OnConflict(fn func(params types.StartParams)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conflict = append(h.conflict, fn)
}

func (h *Hub) emitProgress(index, total int, itemID types.ItemID) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.progress {
		fn(index, total, itemID)
	}
}

func (h *Hub) emitDone(status Status) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.done {
		fn(status)
	}
}

func (h *Hub) emitContentChanged() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.changed {
		fn()
	}
}

func (h *Hub) emitConflict(params types.StartParams) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.conflict {
		fn(params)
	}
}
