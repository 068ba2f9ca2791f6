package ws

import "testing"

func TestHubAddAndRemove(t *testing.T) {
	hub := NewHub()

	hub.Add(1, nil, ConnInfo{UserID: 7})
	if len(hub.rooms) != 1 {
		t.Fatalf("expected room to be created")
	}

	hub.Remove(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected empty room to be dropped")
	}
}

func TestHubRemoveIsIdempotent(t *testing.T) {
	hub := NewHub()

	hub.Add(1, nil, ConnInfo{UserID: 7})
	hub.Remove(1, nil)
	hub.Remove(1, nil)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected no rooms after double remove")
	}
}

func TestHubIsUserOnline(t *testing.T) {
	hub := NewHub()

	if hub.IsUserOnline(7) {
		t.Fatalf("expected user to be offline")
	}

	hub.Add(3, nil, ConnInfo{UserID: 7})
	if !hub.IsUserOnline(7) {
		t.Fatalf("expected user to be online")
	}
	if hub.IsUserOnline(8) {
		t.Fatalf("expected other user to be offline")
	}

	hub.Remove(3, nil)
	if hub.IsUserOnline(7) {
		t.Fatalf("expected user to be offline after remove")
	}
}
