package board

import "testing"

func snap(ids ...string) []Item {
	items := make([]Item, 0, len(ids))
	for i, id := range ids {
		items = append(items, Item{ID: id, Type: TypeNote, ZIndex: i + 1})
	}
	return items
}

func TestRecordDedupsEqualStates(t *testing.T) {
	h := NewHistory(0)

	if h.Record(snap("a"), snap("a")) {
		t.Fatal("expected equal before/after to be suppressed")
	}
	if h.CanUndo() {
		t.Fatal("expected empty past stack")
	}
	if !h.Record(snap("a"), snap("a", "b")) {
		t.Fatal("expected real change to be recorded")
	}
}

func TestRecordWhilePaused(t *testing.T) {
	h := NewHistory(0)

	resume := h.Pause()
	if h.Record(snap(), snap("a")) {
		t.Fatal("expected paused record to be suppressed")
	}
	resume()

	if !h.Record(snap(), snap("a")) {
		t.Fatal("expected record after resume")
	}
}

func TestPauseNestsAndResumeIsIdempotent(t *testing.T) {
	h := NewHistory(0)

	outer := h.Pause()
	inner := h.Pause()
	inner()
	if h.Record(snap(), snap("a")) {
		t.Fatal("still paused by outer scope")
	}
	outer()
	outer() // second call must not underflow

	if !h.Record(snap(), snap("a")) {
		t.Fatal("expected record after both scopes resumed")
	}
}

func TestUndoRedoStacks(t *testing.T) {
	h := NewHistory(0)
	h.Record(snap(), snap("a"))
	h.Record(snap("a"), snap("a", "b"))

	current := snap("a", "b")
	restored, ok := h.Undo(current)
	if !ok {
		t.Fatal("Undo() = false, want true")
	}
	if !itemsEqual(restored, snap("a")) {
		t.Fatalf("unexpected undo snapshot: %+v", restored)
	}
	if !h.CanRedo() {
		t.Fatal("expected redo available")
	}

	back, ok := h.Redo(restored)
	if !ok {
		t.Fatal("Redo() = false, want true")
	}
	if !itemsEqual(back, current) {
		t.Fatalf("unexpected redo snapshot: %+v", back)
	}
}

func TestUndoEmptyIsNoOp(t *testing.T) {
	h := NewHistory(0)
	if _, ok := h.Undo(snap("a")); ok {
		t.Fatal("expected undo no-op on empty past")
	}
	if _, ok := h.Redo(snap("a")); ok {
		t.Fatal("expected redo no-op on empty future")
	}
}

func TestRecordClearsFuture(t *testing.T) {
	h := NewHistory(0)
	h.Record(snap(), snap("a"))
	if _, ok := h.Undo(snap("a")); !ok {
		t.Fatal("undo failed")
	}

	h.Record(snap(), snap("b"))
	if h.CanRedo() {
		t.Fatal("expected future cleared by new record")
	}
}

func TestLimitDropsOldestSnapshots(t *testing.T) {
	h := NewHistory(2)
	h.Record(snap(), snap("a"))
	h.Record(snap("a"), snap("a", "b"))
	h.Record(snap("a", "b"), snap("a", "b", "c"))

	if past, _ := h.Depths(); past != 2 {
		t.Fatalf("expected past depth 2, got %d", past)
	}

	// Oldest snapshot (the empty one) was dropped; the deepest undo now
	// lands on the single-item state.
	deepest, _ := h.Undo(snap("a", "b", "c"))
	deepest, _ = h.Undo(deepest)
	if !itemsEqual(deepest, snap("a")) {
		t.Fatalf("expected deepest snapshot [a], got %+v", deepest)
	}
	if h.CanUndo() {
		t.Fatal("expected past stack exhausted")
	}
}

func TestClear(t *testing.T) {
	h := NewHistory(0)
	h.Record(snap(), snap("a"))
	h.Undo(snap("a"))

	h.Clear()

	if h.CanUndo() || h.CanRedo() {
		t.Fatal("expected both stacks empty after Clear")
	}
}
