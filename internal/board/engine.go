package board

import "sync"

// Engine is the authoritative canvas state: the live item collection, the
// z-index high-water mark, and the transient drag/hydration flags. All
// mutations are serialized through one mutex, mirroring the single-threaded
// event model of the UI that drives them.
//
// Every committed mutation runs through commit: history capture first
// (unless paused or deduped), then change notification to subscribers.
// Persistence is a subscriber concern, not the engine's.
type Engine struct {
	mu        sync.Mutex
	items     []Item
	maxZIndex int
	history   *History
	dragging  bool
	hydrated  bool
	subs      []func(items []Item)
}

// NewEngine creates an empty engine. historyLimit 0 means unbounded undo.
func NewEngine(historyLimit int) *Engine {
	return &Engine{history: NewHistory(historyLimit)}
}

// History exposes the engine's history for pause/resume scoping by drag
// gesture code.
func (e *Engine) History() *History {
	return e.history
}

// Subscribe registers a change listener. The listener receives a private
// copy of the post-commit collection, is called in commit order while the
// engine lock is held, and must not call back into the engine.
func (e *Engine) Subscribe(fn func(items []Item)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, fn)
}

// commit applies mutate to the live collection, records history, and
// notifies subscribers. mutate reports whether it changed anything; a false
// return leaves collection, history, and subscribers untouched.
func (e *Engine) commit(mutate func() bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	before := cloneItems(e.items)
	if !mutate() {
		return false
	}
	e.history.Record(before, e.items)
	e.notifyLocked()
	return true
}

func (e *Engine) notifyLocked() {
	for _, fn := range e.subs {
		fn(cloneItems(e.items))
	}
}

// AddItem appends item with the next zIndex and advances the high-water
// mark. The caller supplies the id (from the identifier generator);
// behavior with a duplicate id is undefined.
func (e *Engine) AddItem(item Item) Item {
	var added Item
	e.commit(func() bool {
		e.maxZIndex++
		item.ZIndex = e.maxZIndex
		e.items = append(e.items, item)
		added = item
		return true
	})
	return added
}

// UpdateItem applies a partial field merge to the item matching id.
// A missing id is a silent no-op.
func (e *Engine) UpdateItem(id string, patch ItemPatch) {
	e.commit(func() bool {
		for i := range e.items {
			if e.items[i].ID == id {
				patch.apply(&e.items[i])
				return true
			}
		}
		return false
	})
}

// DeleteItem removes the item matching id. A missing id is a silent no-op.
// The high-water mark is not decremented: freed z-index values are never
// reclaimed, so items replayed by undo keep an unambiguous stacking order.
func (e *Engine) DeleteItem(id string) {
	e.commit(func() bool {
		for i := range e.items {
			if e.items[i].ID == id {
				e.items = append(e.items[:i], e.items[i+1:]...)
				return true
			}
		}
		return false
	})
}

// BringToFront raises the item matching id above everything else. When the
// item already holds the high-water mark this is a true no-op: no history
// entry, no notification, no counter churn.
func (e *Engine) BringToFront(id string) {
	e.commit(func() bool {
		for i := range e.items {
			if e.items[i].ID != id {
				continue
			}
			if e.items[i].ZIndex == e.maxZIndex {
				return false
			}
			e.maxZIndex++
			e.items[i].ZIndex = e.maxZIndex
			return true
		}
		return false
	})
}

// SetItems replaces the collection wholesale, as when loading a named
// snapshot. The high-water mark is not recomputed; externally loaded
// z-order is taken as is.
func (e *Engine) SetItems(items []Item) {
	e.commit(func() bool {
		e.items = cloneItems(items)
		return true
	})
}

// Hydrate installs the collection read from durable storage at startup and
// flips the hydration flag. It bypasses history and subscribers: the
// initial load is not undoable and must not be written straight back out.
// The high-water mark is restored as the maximum stored zIndex. Only the
// startup path calls this, exactly once.
func (e *Engine) Hydrate(items []Item) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.items = cloneItems(items)
	e.maxZIndex = 0
	for _, item := range e.items {
		if item.ZIndex > e.maxZIndex {
			e.maxZIndex = item.ZIndex
		}
	}
	e.hydrated = true
}

// Hydrated reports whether the startup load has completed. UI layers must
// not render stateful content until it has.
func (e *Engine) Hydrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hydrated
}

// SetDragging flips the drag-in-progress flag. Transient UI state: no
// history, no persistence.
func (e *Engine) SetDragging(dragging bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dragging = dragging
}

// Dragging reports whether a card drag is in progress, which the UI uses to
// suspend canvas panning.
func (e *Engine) Dragging() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dragging
}

// Items returns a copy of the collection in insertion order.
func (e *Engine) Items() []Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneItems(e.items)
}

// ItemsByZ returns a copy of the collection in rendering order: stable sort
// by zIndex ascending, insertion order breaking ties.
func (e *Engine) ItemsByZ() []Item {
	items := e.Items()
	sortByZ(items)
	return items
}

// Item looks up a single item by id.
func (e *Engine) Item(id string) (Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range e.items {
		if item.ID == id {
			return item, true
		}
	}
	return Item{}, false
}

// MaxZIndex returns the z-index high-water mark.
func (e *Engine) MaxZIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxZIndex
}

// Undo swaps the live collection for the most recent past snapshot and
// notifies subscribers. Returns false when history is empty.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, ok := e.history.Undo(e.items)
	if !ok {
		return false
	}
	e.items = snapshot
	e.notifyLocked()
	return true
}

// Redo swaps the live collection for the nearest future snapshot and
// notifies subscribers. Returns false when the future stack is empty.
func (e *Engine) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapshot, ok := e.history.Redo(e.items)
	if !ok {
		return false
	}
	e.items = snapshot
	e.notifyLocked()
	return true
}
