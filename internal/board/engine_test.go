package board

import (
	"testing"
)

func note(id string, x, y float64) Item {
	return Item{
		ID:      id,
		Type:    TypeNote,
		X:       x,
		Y:       y,
		Width:   200,
		Height:  150,
		Content: "",
	}
}

func TestAddItemAssignsMonotonicZIndex(t *testing.T) {
	e := NewEngine(0)

	for i := 1; i <= 5; i++ {
		added := e.AddItem(note("n", 0, 0))
		if added.ZIndex != i {
			t.Fatalf("add %d: expected zIndex %d, got %d", i, i, added.ZIndex)
		}
		if e.MaxZIndex() != i {
			t.Fatalf("add %d: expected maxZIndex %d, got %d", i, i, e.MaxZIndex())
		}
	}
}

func TestDeletedZIndexNotReclaimed(t *testing.T) {
	e := NewEngine(0)

	a := e.AddItem(note("a", 0, 0))
	if a.ZIndex != 1 {
		t.Fatalf("expected zIndex 1 for first item, got %d", a.ZIndex)
	}
	b := e.AddItem(note("b", 0, 0))
	if b.ZIndex != 2 {
		t.Fatalf("expected zIndex 2 for second item, got %d", b.ZIndex)
	}

	e.DeleteItem("a")
	if e.MaxZIndex() != 2 {
		t.Fatalf("delete must not decrement maxZIndex, got %d", e.MaxZIndex())
	}

	c := e.AddItem(note("c", 0, 0))
	if c.ZIndex != 3 {
		t.Fatalf("expected zIndex 3 after delete, got %d", c.ZIndex)
	}
}

func TestBringToFront(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))
	e.AddItem(note("b", 0, 0))

	e.BringToFront("a")
	a, _ := e.Item("a")
	if a.ZIndex != 3 || e.MaxZIndex() != 3 {
		t.Fatalf("expected a at zIndex 3 with maxZIndex 3, got %d / %d", a.ZIndex, e.MaxZIndex())
	}
}

func TestBringToFrontOnTopItemIsNoOp(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))
	e.AddItem(note("b", 0, 0))

	notified := 0
	e.Subscribe(func([]Item) { notified++ })

	before := e.Items()
	pastBefore, _ := e.History().Depths()

	e.BringToFront("b")

	if !itemsEqual(before, e.Items()) {
		t.Fatal("expected collection unchanged")
	}
	if e.MaxZIndex() != 2 {
		t.Fatalf("expected maxZIndex unchanged at 2, got %d", e.MaxZIndex())
	}
	pastAfter, _ := e.History().Depths()
	if pastAfter != pastBefore {
		t.Fatalf("expected no history entry, past depth went %d -> %d", pastBefore, pastAfter)
	}
	if notified != 0 {
		t.Fatalf("expected no change notification, got %d", notified)
	}
}

func TestUpdateItemMergesFields(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 10, 20))

	x := 50.0
	content := "hello"
	e.UpdateItem("a", ItemPatch{X: &x, Content: &content})

	a, ok := e.Item("a")
	if !ok {
		t.Fatal("item a missing")
	}
	if a.X != 50 || a.Y != 20 || a.Content != "hello" {
		t.Fatalf("unexpected merge result: %+v", a)
	}
	if a.Width != 200 || a.Height != 150 {
		t.Fatalf("untouched fields changed: %+v", a)
	}
}

func TestUpdateAndDeleteMissingIDAreSilent(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))

	before := e.Items()
	x := 1.0
	e.UpdateItem("missing", ItemPatch{X: &x})
	e.DeleteItem("missing")

	if !itemsEqual(before, e.Items()) {
		t.Fatal("expected collection unchanged")
	}
	if e.History().CanUndo() == false {
		// the add is undoable, the no-ops must not have added entries
		t.Fatal("expected the add to remain undoable")
	}
	if past, _ := e.History().Depths(); past != 1 {
		t.Fatalf("expected 1 history entry, got %d", past)
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 10, 20))
	beforeMove := e.Items()

	x := 99.0
	e.UpdateItem("a", ItemPatch{X: &x})
	afterMove := e.Items()

	if !e.Undo() {
		t.Fatal("Undo() = false, want true")
	}
	if !itemsEqual(e.Items(), beforeMove) {
		t.Fatalf("undo did not restore pre-mutation state: %+v", e.Items())
	}

	if !e.Redo() {
		t.Fatal("Redo() = false, want true")
	}
	if !itemsEqual(e.Items(), afterMove) {
		t.Fatalf("redo did not restore post-mutation state: %+v", e.Items())
	}
}

func TestNewMutationClearsFuture(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))
	e.AddItem(note("b", 0, 0))

	if !e.Undo() {
		t.Fatal("undo failed")
	}
	if !e.History().CanRedo() {
		t.Fatal("expected redo available after undo")
	}

	e.AddItem(note("c", 0, 0))

	if e.History().CanRedo() {
		t.Fatal("expected future stack cleared by new mutation")
	}
	if e.Redo() {
		t.Fatal("Redo() = true after new mutation, want no-op")
	}
}

func TestPausedMutationsInvisibleToHistory(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))
	e.AddItem(note("b", 0, 0))

	resume := e.History().Pause()
	e.BringToFront("a")
	resume()

	a, _ := e.Item("a")
	if a.ZIndex != 3 {
		t.Fatalf("paused mutation must still apply, got zIndex %d", a.ZIndex)
	}

	// Undo skips the paused bring-to-front and reverts the second add.
	if !e.Undo() {
		t.Fatal("undo failed")
	}
	items := e.Items()
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected undo to revert to [a], got %+v", items)
	}
}

func TestResumeReachableAfterPanic(t *testing.T) {
	e := NewEngine(0)
	e.AddItem(note("a", 0, 0))

	func() {
		resume := e.History().Pause()
		defer resume()
		defer func() { _ = recover() }()
		panic("mutation failed")
	}()

	// Capture must be re-enabled.
	e.AddItem(note("b", 0, 0))
	if past, _ := e.History().Depths(); past != 2 {
		t.Fatalf("expected capture re-enabled after panic, past depth %d", past)
	}
}

func TestSetItemsRoundTrip(t *testing.T) {
	e := NewEngine(0)
	want := []Item{
		{ID: "a", Type: TypeNote, X: 1, Y: 2, Width: 3, Height: 4, Content: "x", ZIndex: 7},
		{ID: "b", Type: TypeImage, X: 5, Y: 6, Width: 7, Height: 8, Content: "data:image/png;base64,AA==", ZIndex: 2},
	}
	e.SetItems(want)

	if !itemsEqual(e.Items(), want) {
		t.Fatalf("SetItems round trip mismatch: %+v", e.Items())
	}

	data, err := EncodeItems(e.Items())
	if err != nil {
		t.Fatalf("EncodeItems() error = %v", err)
	}
	decoded, err := DecodeItems(data)
	if err != nil {
		t.Fatalf("DecodeItems() error = %v", err)
	}
	if !itemsEqual(decoded, want) {
		t.Fatalf("serialization round trip mismatch: %+v", decoded)
	}
}

func TestItemsByZStableTieBreak(t *testing.T) {
	e := NewEngine(0)
	e.SetItems([]Item{
		{ID: "first", ZIndex: 1},
		{ID: "second", ZIndex: 1},
		{ID: "under", ZIndex: 0},
	})

	ordered := e.ItemsByZ()
	got := []string{ordered[0].ID, ordered[1].ID, ordered[2].ID}
	want := []string{"under", "first", "second"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected render order %v, got %v", want, got)
		}
	}
}

func TestHydrateRestoresHighWaterMark(t *testing.T) {
	e := NewEngine(0)
	if e.Hydrated() {
		t.Fatal("expected hydrated false at start")
	}

	e.Hydrate([]Item{
		{ID: "a", ZIndex: 4},
		{ID: "b", ZIndex: 9},
	})

	if !e.Hydrated() {
		t.Fatal("expected hydrated true after Hydrate")
	}
	if e.MaxZIndex() != 9 {
		t.Fatalf("expected maxZIndex 9, got %d", e.MaxZIndex())
	}
	if e.History().CanUndo() {
		t.Fatal("hydration must not be undoable")
	}

	added := e.AddItem(note("c", 0, 0))
	if added.ZIndex != 10 {
		t.Fatalf("expected next zIndex 10, got %d", added.ZIndex)
	}
}

func TestHydrateEmptyStillFlipsFlag(t *testing.T) {
	e := NewEngine(0)
	e.Hydrate(nil)
	if !e.Hydrated() {
		t.Fatal("expected hydrated true for empty load")
	}
	if e.MaxZIndex() != 0 {
		t.Fatalf("expected maxZIndex 0, got %d", e.MaxZIndex())
	}
}

func TestSubscribersSeeCommitsInOrder(t *testing.T) {
	e := NewEngine(0)

	var lens []int
	e.Subscribe(func(items []Item) { lens = append(lens, len(items)) })

	e.AddItem(note("a", 0, 0))
	e.AddItem(note("b", 0, 0))
	e.DeleteItem("a")
	e.Undo()

	want := []int{1, 2, 1, 2}
	if len(lens) != len(want) {
		t.Fatalf("expected %d notifications, got %d", len(want), len(lens))
	}
	for i := range want {
		if lens[i] != want[i] {
			t.Fatalf("notification %d: expected %d items, got %d", i, want[i], lens[i])
		}
	}
}

func TestDraggingFlag(t *testing.T) {
	e := NewEngine(0)
	e.Subscribe(func([]Item) { t.Fatal("drag flag must not notify subscribers") })

	e.SetDragging(true)
	if !e.Dragging() {
		t.Fatal("expected dragging true")
	}
	e.SetDragging(false)
	if e.Dragging() {
		t.Fatal("expected dragging false")
	}
	if e.History().CanUndo() {
		t.Fatal("drag flag must not create history")
	}
}
