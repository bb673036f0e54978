package board

import "sync"

// History keeps past and future snapshots of the item collection for
// undo/redo. Snapshots cover items only; the z-index high-water mark is a
// persistent counter outside of history, so undoing a bring-to-front
// restores item order but never rewinds the counter.
type History struct {
	mu     sync.Mutex
	limit  int
	paused int
	past   [][]Item
	future [][]Item
}

// NewHistory creates a history with the given depth limit. A limit of 0
// means unbounded; otherwise the oldest past snapshots are dropped once the
// limit is exceeded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Pause suspends snapshot capture and returns the matching resume func.
// Callers should defer the returned func so capture is re-enabled even if
// the mutation between pause and resume panics. Pauses nest; calling the
// same resume func twice is safe.
func (h *History) Pause() (resume func()) {
	h.mu.Lock()
	h.paused++
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			if h.paused > 0 {
				h.paused--
			}
			h.mu.Unlock()
		})
	}
}

// Record captures the pre-mutation snapshot after a committed change.
// It is suppressed while paused, and deduplicated when the mutation turned
// out to be a no-op (before and after structurally equal). Any recorded
// change invalidates the redo stack.
func (h *History) Record(before, after []Item) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.paused > 0 {
		return false
	}
	if itemsEqual(before, after) {
		return false
	}

	h.past = append(h.past, cloneItems(before))
	if h.limit > 0 && len(h.past) > h.limit {
		h.past = h.past[len(h.past)-h.limit:]
	}
	h.future = nil
	return true
}

// Undo pops the most recent past snapshot, pushing current onto the future
// stack. Returns false when there is nothing to undo.
func (h *History) Undo(current []Item) ([]Item, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.past) == 0 {
		return nil, false
	}
	snapshot := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, cloneItems(current))
	return snapshot, true
}

// Redo pops the nearest future snapshot, pushing current onto the past
// stack. Returns false when there is nothing to redo.
func (h *History) Redo(current []Item) ([]Item, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.future) == 0 {
		return nil, false
	}
	snapshot := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, cloneItems(current))
	return snapshot, true
}

// Clear drops both stacks without touching live state. Used after loading a
// named snapshot, which has no undo lineage.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past) > 0
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.future) > 0
}

// Depths reports the current past and future stack sizes.
func (h *History) Depths() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}
