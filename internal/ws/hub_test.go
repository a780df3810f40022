package ws

import "testing"

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	hub.Register(nil, ConnInfo{ConnID: "c1", UserID: 1})
	if len(hub.clients) != 1 {
		t.Fatalf("expected client to be registered")
	}

	hub.Unregister("c1")
	if len(hub.clients) != 0 {
		t.Fatalf("expected client to be removed")
	}
}

func TestHubJoinAndLeaveRoom(t *testing.T) {
	hub := NewHub()
	hub.Register(nil, ConnInfo{ConnID: "c1", UserID: 1})

	hub.Join("c1", 5)
	if len(hub.rooms[5]) != 1 {
		t.Fatalf("expected room to contain the session")
	}

	hub.Leave("c1", 5)
	if len(hub.rooms) != 0 {
		t.Fatalf("expected empty room to be dropped")
	}
}

func TestHubUnregisterDropsRoomMemberships(t *testing.T) {
	hub := NewHub()
	hub.Register(nil, ConnInfo{ConnID: "c1", UserID: 1})
	hub.Join("c1", 5)

	hub.Unregister("c1")
	if len(hub.rooms) != 0 {
		t.Fatalf("expected room memberships to be dropped")
	}
}
