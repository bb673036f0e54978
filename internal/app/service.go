package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"easel/api/internal/board"
	"easel/api/internal/search"
	"easel/api/internal/snapgit"
	"easel/api/internal/storage"
	"easel/api/internal/util"
)

const (
	liveKey        = "board"
	snapshotPrefix = "snapshot:"

	persistTimeout = 10 * time.Second
)

var snapshotNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// Status is the board-level state the UI polls: the hydration gate plus
// history availability and the latest storage fault, if any.
type Status struct {
	Hydrated     bool   `json:"hydrated"`
	Dragging     bool   `json:"dragging"`
	CanUndo      bool   `json:"canUndo"`
	CanRedo      bool   `json:"canRedo"`
	Items        int    `json:"items"`
	MaxZIndex    int    `json:"maxZIndex"`
	PersistError string `json:"persistError,omitempty"`
	HydrateError string `json:"hydrateError,omitempty"`
}

// Service wires the canvas engine to the durable store, note search, and
// the optional snapshot git mirror. Engine mutations stay synchronous; the
// durable write happens on a single background writer that consumes change
// notifications in commit order, so an undo issued right after a mutation
// never races a stale in-flight write.
type Service struct {
	engine *board.Engine
	store  storage.Store
	search *search.Service
	snaps  *snapgit.Service

	// Latest-wins persistence slot. Every write re-serializes the whole
	// collection, so intermediate states may be skipped as long as the
	// newest one lands last.
	pendingMu  sync.Mutex
	pending    []board.Item
	hasPending bool
	kick       chan struct{}
	done       chan struct{}
	writer     sync.WaitGroup

	stateMu    sync.Mutex
	persistErr error
	hydrateErr error
}

// New creates the service and starts the background persistence writer.
// snaps may be nil to disable the snapshot git mirror.
func New(engine *board.Engine, store storage.Store, searcher *search.Service, snaps *snapgit.Service) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		search: searcher,
		snaps:  snaps,
		kick:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	engine.Subscribe(s.enqueue)
	s.writer.Add(1)
	go s.persistLoop()
	return s
}

// Close stops the persistence writer after flushing any pending state.
func (s *Service) Close() {
	close(s.done)
	s.writer.Wait()
}

// enqueue stores the post-commit collection in the latest-wins slot and
// wakes the writer. Called from the engine with its lock held: it must not
// block and must not call back into the engine.
func (s *Service) enqueue(items []board.Item) {
	s.pendingMu.Lock()
	s.pending = items
	s.hasPending = true
	s.pendingMu.Unlock()

	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Service) persistLoop() {
	defer s.writer.Done()
	for {
		select {
		case <-s.done:
			s.drain()
			return
		case <-s.kick:
			s.drain()
		}
	}
}

func (s *Service) drain() {
	for {
		s.pendingMu.Lock()
		if !s.hasPending {
			s.pendingMu.Unlock()
			return
		}
		items := s.pending
		s.hasPending = false
		s.pendingMu.Unlock()

		s.persist(items)
	}
}

func (s *Service) persist(items []board.Item) {
	data, err := board.EncodeItems(items)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err = s.store.Set(ctx, liveKey, data)
		cancel()
	}

	s.stateMu.Lock()
	s.persistErr = err
	s.stateMu.Unlock()
	if err != nil {
		// Non-fatal: in-memory state stays authoritative, no retry.
		log.Printf("persist: write board state: %v", err)
	}

	if s.search != nil {
		s.search.Sync(noteRecords(items))
	}
}

// Hydrate performs the one-time startup load. An absent key is an empty
// board; a read or decode failure also falls back to an empty board so the
// application stays usable, with the error kept visible in Status. The
// hydration flag flips true in every case.
func (s *Service) Hydrate(ctx context.Context) {
	value, ok, err := s.store.Get(ctx, liveKey)
	if err != nil {
		s.completeHydration(nil, fmt.Errorf("read board state: %w", err))
		return
	}
	if !ok {
		s.completeHydration(nil, nil)
		return
	}

	items, err := board.DecodeItems(value)
	if err != nil {
		s.completeHydration(nil, fmt.Errorf("decode board state: %w", err))
		return
	}
	s.completeHydration(items, nil)
}

func (s *Service) completeHydration(items []board.Item, err error) {
	s.stateMu.Lock()
	s.hydrateErr = err
	s.stateMu.Unlock()
	if err != nil {
		log.Printf("hydrate: falling back to empty board: %v", err)
	}

	s.engine.Hydrate(items)
	if s.search != nil {
		s.search.Sync(noteRecords(items))
	}
}

// Hydrated reports whether the startup load has completed.
func (s *Service) Hydrated() bool {
	return s.engine.Hydrated()
}

// Status reports the transient flags and history availability.
func (s *Service) Status() Status {
	s.stateMu.Lock()
	persistErr, hydrateErr := s.persistErr, s.hydrateErr
	s.stateMu.Unlock()

	status := Status{
		Hydrated:  s.engine.Hydrated(),
		Dragging:  s.engine.Dragging(),
		CanUndo:   s.engine.History().CanUndo(),
		CanRedo:   s.engine.History().CanRedo(),
		Items:     len(s.engine.Items()),
		MaxZIndex: s.engine.MaxZIndex(),
	}
	if persistErr != nil {
		status.PersistError = persistErr.Error()
	}
	if hydrateErr != nil {
		status.HydrateError = hydrateErr.Error()
	}
	return status
}

// Board returns the collection in rendering order plus the z-index
// high-water mark. The slice is non-nil so an empty board encodes as [].
func (s *Service) Board() ([]board.Item, int) {
	items := s.engine.ItemsByZ()
	if items == nil {
		items = []board.Item{}
	}
	return items, s.engine.MaxZIndex()
}

// AddNote places a new note card and returns it with its assigned zIndex.
func (s *Service) AddNote(x, y, width, height float64, content, color string) board.Item {
	if width <= 0 {
		width = 200
	}
	if height <= 0 {
		height = 150
	}
	return s.engine.AddItem(board.Item{
		ID:      util.NewID("item"),
		Type:    board.TypeNote,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		Content: content,
		Color:   color,
	})
}

// AddImage places a new image card. content is the encoded image payload,
// opaque to the engine.
func (s *Service) AddImage(x, y, width, height float64, content string) (board.Item, error) {
	if strings.TrimSpace(content) == "" {
		return board.Item{}, domainError(http.StatusBadRequest, "EMPTY_IMAGE", "Image payload is empty")
	}
	if width <= 0 {
		width = 300
	}
	if height <= 0 {
		height = 300
	}
	return s.engine.AddItem(board.Item{
		ID:      util.NewID("item"),
		Type:    board.TypeImage,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		Content: content,
	}), nil
}

// UpdateItem applies a partial update. Unknown ids are silent no-ops.
func (s *Service) UpdateItem(id string, patch board.ItemPatch) {
	s.engine.UpdateItem(id, patch)
}

// DeleteItem removes an item. Unknown ids are silent no-ops.
func (s *Service) DeleteItem(id string) {
	s.engine.DeleteItem(id)
}

// MoveItem positions an item at its drag-start anchor plus the gesture
// offset. Taking the anchor from the caller instead of applying a delta to
// live state keeps a drag from drifting when undo/redo moved the item
// while the gesture was in flight.
func (s *Service) MoveItem(id string, anchorX, anchorY, dx, dy float64) {
	x := anchorX + dx
	y := anchorY + dy
	s.engine.UpdateItem(id, board.ItemPatch{X: &x, Y: &y})
}

// BringToFront raises an item as a normal, undoable mutation.
func (s *Service) BringToFront(id string) {
	s.engine.BringToFront(id)
}

// PressItem raises an item on pointer-down with history capture paused, so
// the z-index change rides along with the drag instead of costing its own
// undo step.
func (s *Service) PressItem(id string) {
	resume := s.engine.History().Pause()
	defer resume()
	s.engine.BringToFront(id)
}

// SetDragging flips the drag-in-progress flag. Drag end must always reach
// this, aborted or not.
func (s *Service) SetDragging(dragging bool) {
	s.engine.SetDragging(dragging)
}

// Undo reverts the most recent committed mutation.
func (s *Service) Undo() bool {
	return s.engine.Undo()
}

// Redo reapplies the most recently undone mutation.
func (s *Service) Redo() bool {
	return s.engine.Redo()
}

// Search finds note cards by content.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// SaveSnapshot persists the current collection under a derived key. The
// git mirror, when enabled, records the save as a commit; mirror failures
// are logged but do not fail the save.
func (s *Service) SaveSnapshot(ctx context.Context, name string) error {
	if err := validateSnapshotName(name); err != nil {
		return err
	}

	data, err := board.EncodeItems(s.engine.Items())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.store.Set(ctx, snapshotPrefix+name, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}

	if s.snaps != nil {
		if _, err := s.snaps.CommitSnapshot(name, data); err != nil {
			log.Printf("snapshot: git mirror commit %s: %v", name, err)
		}
	}
	return nil
}

// LoadSnapshot replaces the live collection with a named snapshot and
// clears history, since the loaded state has no undo lineage. A missing
// name returns ErrSnapshotNotFound and leaves everything untouched.
func (s *Service) LoadSnapshot(ctx context.Context, name string) error {
	if err := validateSnapshotName(name); err != nil {
		return err
	}

	value, ok, err := s.store.Get(ctx, snapshotPrefix+name)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", name, err)
	}
	if !ok {
		return ErrSnapshotNotFound
	}

	items, err := board.DecodeItems(value)
	if err != nil {
		return fmt.Errorf("decode snapshot %s: %w", name, err)
	}

	s.engine.SetItems(items)
	s.engine.History().Clear()
	return nil
}

// ListSnapshots returns the saved snapshot names in sorted order.
func (s *Service) ListSnapshots(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, strings.TrimPrefix(key, snapshotPrefix))
	}
	return names, nil
}

// DeleteSnapshot removes a named snapshot from the durable store. The git
// mirror keeps its history.
func (s *Service) DeleteSnapshot(ctx context.Context, name string) error {
	if err := validateSnapshotName(name); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, snapshotPrefix+name); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", name, err)
	}
	return nil
}

// SnapshotHistory lists the git mirror commits for a snapshot name, newest
// first. Empty when the mirror is disabled.
func (s *Service) SnapshotHistory(name string, limit int) ([]snapgit.CommitInfo, error) {
	if err := validateSnapshotName(name); err != nil {
		return nil, err
	}
	if s.snaps == nil {
		return []snapgit.CommitInfo{}, nil
	}
	return s.snaps.History(name, limit)
}

func validateSnapshotName(name string) error {
	if !snapshotNamePattern.MatchString(name) {
		return domainError(http.StatusBadRequest, "INVALID_SNAPSHOT_NAME", "Snapshot names are 1-64 letters, digits, dot, dash or underscore")
	}
	return nil
}

func noteRecords(items []board.Item) []search.NoteRecord {
	records := make([]search.NoteRecord, 0, len(items))
	for _, item := range items {
		if item.Type != board.TypeNote {
			continue
		}
		records = append(records, search.NoteRecord{
			ID:      item.ID,
			Content: item.Content,
			X:       item.X,
			Y:       item.Y,
		})
	}
	return records
}
