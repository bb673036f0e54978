package storage

import (
	"bytes"
	"context"
	"testing"
)

func TestMemStoreRoundTrip(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "board"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "board", []byte("[]")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	value, ok, err := store.Get(ctx, "board")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if !bytes.Equal(value, []byte("[]")) {
		t.Fatalf("unexpected value: %s", value)
	}

	if err := store.Delete(ctx, "board"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "board"); ok {
		t.Fatal("expected key gone after delete")
	}
}

func TestMemStoreCopiesValues(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	original := []byte("abc")
	if err := store.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	original[0] = 'x'

	value, _, _ := store.Get(ctx, "k")
	if !bytes.Equal(value, []byte("abc")) {
		t.Fatalf("stored value aliased caller buffer: %s", value)
	}

	value[0] = 'y'
	again, _, _ := store.Get(ctx, "k")
	if !bytes.Equal(again, []byte("abc")) {
		t.Fatalf("returned value aliased stored buffer: %s", again)
	}
}

func TestMemStoreList(t *testing.T) {
	store := NewMemStore()
	ctx := context.Background()

	for _, key := range []string{"snapshot:z", "snapshot:a", "board"} {
		if err := store.Set(ctx, key, []byte("[]")); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "snapshot:")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "snapshot:a" || keys[1] != "snapshot:z" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
