// Package board owns the canvas state: the item collection, its stacking
// order, and the undo/redo history over it.
package board

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ItemType distinguishes the two kinds of cards on the canvas.
type ItemType string

const (
	TypeNote  ItemType = "note"
	TypeImage ItemType = "image"
)

// Item is a single placed card. Position and size are in canvas
// coordinates, unbounded. Content is opaque to the engine: note text or an
// encoded image payload such as a base64 data URI.
type Item struct {
	ID      string   `json:"id"`
	Type    ItemType `json:"type"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Content string   `json:"content"`
	Color   string   `json:"color,omitempty"`
	ZIndex  int      `json:"zIndex"`
}

// ItemPatch is a partial update for an item. Nil fields are left untouched.
// ID, type and zIndex are not patchable: type is immutable after creation
// and stacking order only moves through BringToFront.
type ItemPatch struct {
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Width   *float64 `json:"width,omitempty"`
	Height  *float64 `json:"height,omitempty"`
	Content *string  `json:"content,omitempty"`
	Color   *string  `json:"color,omitempty"`
}

func (p ItemPatch) apply(item *Item) {
	if p.X != nil {
		item.X = *p.X
	}
	if p.Y != nil {
		item.Y = *p.Y
	}
	if p.Width != nil {
		item.Width = *p.Width
	}
	if p.Height != nil {
		item.Height = *p.Height
	}
	if p.Content != nil {
		item.Content = *p.Content
	}
	if p.Color != nil {
		item.Color = *p.Color
	}
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func itemsEqual(a, b []Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sortByZ orders items by zIndex ascending. The sort is stable so items
// with equal zIndex keep their collection insertion order.
func sortByZ(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ZIndex < items[j].ZIndex
	})
}

// EncodeItems serializes the collection as an order-preserving JSON array.
// This is the durable wire format for both the live board and named
// snapshots.
func EncodeItems(items []Item) ([]byte, error) {
	if items == nil {
		items = []Item{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	return data, nil
}

// DecodeItems parses a collection previously written by EncodeItems.
func DecodeItems(data []byte) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	return items, nil
}
