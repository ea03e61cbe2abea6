package memory

import (
	"testing"

	"trivia-party-service/internal/domain"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room, created := store.GetOrCreate("ABCDE", "host", domain.DefaultSettings())
	if room == nil || !created {
		t.Fatalf("expected room created")
	}
	if _, again := store.GetOrCreate("ABCDE", "other", domain.DefaultSettings()); again {
		t.Fatalf("expected existing room, not a re-creation")
	}
	if _, ok := store.Get("ABCDE"); !ok {
		t.Fatalf("expected room present")
	}
	if len(store.All()) != 1 {
		t.Fatalf("expected one room, got %d", len(store.All()))
	}

	store.Delete("ABCDE")
	if _, ok := store.Get("ABCDE"); ok {
		t.Fatalf("expected room removed")
	}
}

func TestGameStoreLifecycle(t *testing.T) {
	store := NewGameStore()

	if _, ok := store.Get("ABCDE"); ok {
		t.Fatalf("expected no game yet")
	}
	store.Put("ABCDE", nil)
	if _, ok := store.Get("ABCDE"); !ok {
		t.Fatalf("expected game present")
	}
	store.Delete("ABCDE")
	if _, ok := store.Get("ABCDE"); ok {
		t.Fatalf("expected game removed")
	}
}
