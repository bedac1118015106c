package srv

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	t.Cleanup(ts.Close)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, v map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// readUntil reads messages until one satisfies the predicate.
func readUntil(t *testing.T, conn *websocket.Conn, match func(map[string]any) bool) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var m map[string]any
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if match(m) {
			return m
		}
	}
}

func stateForRoom(id string) func(map[string]any) bool {
	return func(m map[string]any) bool {
		return m["type"] == "lobby:state" && m["id"] == id
	}
}

func TestWSJoinReceivesState(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s)

	sendEvent(t, conn, map[string]any{"type": "lobby:join", "room": "WS1", "name": "alice"})
	state := readUntil(t, conn, stateForRoom("WS1"))
	if state["phase"] != PhaseLobby {
		t.Errorf("phase = %v, want lobby", state["phase"])
	}
	if n := len(state["players"].([]any)); n != 1 {
		t.Errorf("players = %d, want 1", n)
	}
	if len(state["bank"].([]any)) != 0 {
		t.Errorf("bank = %v, want empty", state["bank"])
	}
}

func TestWSRejoinSwitchesRooms(t *testing.T) {
	s := newTestServer(t)
	conn := dialWS(t, s)

	sendEvent(t, conn, map[string]any{"type": "lobby:join", "room": "OLD", "name": "alice"})
	readUntil(t, conn, stateForRoom("OLD"))

	// Keep the outgoing writer busy with a burst of projections while
	// the rejoin swaps writers underneath it.
	old := s.Rooms.GetRoom("OLD")
	burst := make(chan struct{})
	go func() {
		defer close(burst)
		for i := 0; i < 200; i++ {
			old.BroadcastState()
		}
	}()

	sendEvent(t, conn, map[string]any{"type": "lobby:join", "room": "NEW", "name": "alice"})
	state := readUntil(t, conn, stateForRoom("NEW"))
	if state["phase"] != PhaseLobby {
		t.Errorf("phase = %v, want lobby", state["phase"])
	}
	<-burst

	// Leaving emptied the old room; it is gone from the registry by the
	// time the new room's state arrives.
	if s.Rooms.GetRoom("OLD") != nil {
		t.Error("expected the emptied room to be removed")
	}
	if room := s.Rooms.GetRoom("NEW"); room == nil || room.Engine.PlayerCount() != 1 {
		t.Error("expected the player in the new room")
	}

	// The connection survives the swap.
	sendEvent(t, conn, map[string]any{"type": "game:start"})
	readUntil(t, conn, func(m map[string]any) bool {
		return m["type"] == "lobby:state" && m["phase"] == PhasePlaying
	})
}
