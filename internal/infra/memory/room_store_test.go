package memory

import "testing"

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room := store.GetOrCreate("room-1")
	if room == nil {
		t.Fatalf("expected room")
	}
	if _, ok := store.Get("room-1"); !ok {
		t.Fatalf("expected room present")
	}

	store.DeleteIfEmpty("room-1")
	if _, ok := store.Get("room-1"); ok {
		t.Fatalf("expected room removed when empty")
	}
}
