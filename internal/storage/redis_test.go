package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestRedisSetAndGet(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "board", []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, ok, err := store.Get(ctx, "board")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected key present")
	}
	if !bytes.Equal(value, []byte(`[{"id":"a"}]`)) {
		t.Fatalf("unexpected value: %s", value)
	}

	// Keys are namespaced in Redis itself.
	if !s.Exists("easel:board") {
		t.Fatal("expected easel:board key in redis")
	}
}

func TestRedisGetAbsent(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	_, ok, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected absent key")
	}
}

func TestRedisDelete(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "snapshot:demo", []byte("[]")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "snapshot:demo"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "snapshot:demo"); ok {
		t.Fatal("expected key gone after delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "snapshot:demo"); err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
}

func TestRedisList(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	for _, key := range []string{"snapshot:b", "snapshot:a", "board"} {
		if err := store.Set(ctx, key, []byte("[]")); err != nil {
			t.Fatalf("Set %s failed: %v", key, err)
		}
	}

	keys, err := store.List(ctx, "snapshot:")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(keys) != 2 || keys[0] != "snapshot:a" || keys[1] != "snapshot:b" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}
