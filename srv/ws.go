package srv

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// WSMessage is the envelope for all inbound WebSocket messages. The
// settings:update fields are inlined via the embedded patch.
type WSMessage struct {
	Type    string `json:"type"`
	Room    string `json:"room,omitempty"`
	Name    string `json:"name,omitempty"`
	Word    string `json:"word,omitempty"`
	Index   *int   `json:"index,omitempty"`
	Indices []int  `json:"indices,omitempty"`
	SettingsPatch
}

// mustMarshal marshals v to JSON or panics.
func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("json marshal: %v", err))
	}
	return b
}

// HandleWS handles WebSocket connections for the game.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade", "error", err)
		return
	}

	playerID := uuid.NewString()
	limiter := NewSubmitLimiter()

	var currentRoom *Room
	var currentPlayer *Player

	// sendDirect writes a message directly to the WebSocket connection.
	// Only safe to use BEFORE writePump is started (i.e., before joining a room).
	sendDirect := func(v any) {
		conn.WriteJSON(v)
	}

	// sendToPlayer sends a message via the player's Send channel.
	// Safe to use after writePump is started.
	sendToPlayer := func(v any) {
		if currentPlayer == nil {
			return
		}
		data := mustMarshal(v)
		select {
		case currentPlayer.Send <- data:
		default:
			// drop if channel full
		}
	}

	// sendMsg sends a message using the appropriate method based on current state.
	sendMsg := func(v any) {
		if currentPlayer != nil {
			sendToPlayer(v)
		} else {
			sendDirect(v)
		}
	}

	// leaveCurrentRoom removes the player from their current room,
	// tearing the room down if it empties. It waits for the player's
	// writer goroutine to drain and exit so a subsequent join can start
	// a new writer without two goroutines sharing the connection.
	leaveCurrentRoom := func() {
		if currentRoom == nil {
			return
		}
		remaining := currentRoom.RemovePlayer(playerID)
		if currentPlayer != nil {
			<-currentPlayer.Done
		}
		slog.Info("player left", "roomId", currentRoom.ID, "playerId", playerID)
		if remaining == 0 {
			currentRoom.Teardown()
			s.Rooms.RemoveRoom(currentRoom.ID)
			slog.Info("room removed (empty)", "roomId", currentRoom.ID)
		} else {
			currentRoom.BroadcastState()
		}
		currentRoom = nil
		currentPlayer = nil
	}

	// Cleanup on disconnect
	defer func() {
		leaveCurrentRoom()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read", "error", err)
			}
			return
		}
		var msg WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			slog.Debug("malformed payload", "error", err)
			continue
		}

		// An internal failure on one event must not kill the room or
		// the connection; the event is dropped.
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("event handler panic", "type", msg.Type, "panic", rec)
				}
			}()

			switch msg.Type {
			case "lobby:join":
				name := strings.TrimSpace(msg.Name)
				if runes := []rune(name); len(runes) > maxNameLen {
					name = string(runes[:maxNameLen])
				}
				if name == "" || msg.Room == "" {
					slog.Debug("join missing name or room")
					return
				}
				leaveCurrentRoom()
				room, created := s.Rooms.JoinOrCreate(msg.Room)
				if created {
					room.OnGameOver = s.makeGameOverCallback()
					slog.Info("room created", "roomId", room.ID, "playerId", playerID)
				}
				player := &Player{
					ID:       playerID,
					Name:     name,
					Conn:     conn,
					Send:     make(chan []byte, 256),
					JoinedAt: time.Now(),
					Done:     make(chan struct{}),
				}
				if err := room.AddPlayer(player); err != nil {
					sendMsg(map[string]any{"type": "error", "message": err.Error()})
					return
				}
				currentRoom = room
				currentPlayer = player
				go writePump(conn, currentPlayer)
				slog.Info("player joined", "roomId", room.ID, "playerId", playerID, "player", name)
				room.BroadcastState()

			case "game:start":
				if currentRoom == nil {
					return
				}
				if !currentRoom.IsHost(playerID) {
					slog.Debug("game:start from non-host ignored", "roomId", currentRoom.ID)
					return
				}
				if err := currentRoom.StartGame(); err != nil {
					slog.Debug("game:start refused", "roomId", currentRoom.ID, "error", err)
				}

			case "settings:update":
				if currentRoom == nil {
					return
				}
				if !currentRoom.IsHost(playerID) {
					slog.Debug("settings:update from non-host ignored", "roomId", currentRoom.ID)
					return
				}
				if err := currentRoom.Engine.UpdateSettings(msg.SettingsPatch); err != nil {
					slog.Debug("settings:update refused", "roomId", currentRoom.ID, "error", err)
					return
				}
				slog.Info("settings updated", "roomId", currentRoom.ID)
				currentRoom.BroadcastState()

			case "tile:yoink":
				if currentRoom == nil || msg.Index == nil {
					return
				}
				outcome, letter := currentRoom.Engine.Yoink(playerID, *msg.Index)
				switch outcome {
				case YoinkOK:
					currentRoom.Broadcast(mustMarshal(map[string]any{
						"type":       "tile:yoinked",
						"playerId":   playerID,
						"playerName": currentPlayer.Name,
						"index":      *msg.Index,
						"letter":     string(letter),
					}))
					currentRoom.BroadcastState()
				case YoinkCooldown:
					sendToPlayer(map[string]any{"type": "yoink:rejected", "reason": "cooldown"})
				case YoinkBankFull:
					sendToPlayer(map[string]any{"type": "yoink:rejected", "reason": "bank full"})
				default:
					// lost race or wrong phase: no reply
				}

			case "word:submit":
				if currentRoom == nil {
					return
				}
				if !limiter.Allow() {
					slog.Debug("submit rate limited", "playerId", playerID)
					return
				}
				res := currentRoom.Engine.Submit(playerID, msg.Word, msg.Indices)
				switch res.Outcome {
				case SubmitAccepted:
					feed := fmt.Sprintf("%s played %s for %d points", currentPlayer.Name, res.Word, res.Points)
					currentRoom.Broadcast(mustMarshal(map[string]any{
						"type":     "word:accepted",
						"playerId": playerID,
						"name":     currentPlayer.Name,
						"word":     res.Word,
						"letters":  res.Letters,
						"points":   res.Points,
						"feed":     feed,
					}))
					currentRoom.BroadcastState()
				case SubmitRejected:
					sendToPlayer(map[string]any{
						"type":   "word:rejected",
						"word":   res.Word,
						"reason": res.Reason,
					})
				}

			default:
				slog.Debug("unknown event type", "type", msg.Type)
			}
		}()
	}
}

// writeWait bounds a single WebSocket write so a stalled client cannot
// hold the writer goroutine (and a rejoin waiting on it) forever.
const writeWait = 10 * time.Second

// writePump pumps messages from the player's Send channel to the
// WebSocket, closing Done on exit.
func writePump(conn *websocket.Conn, p *Player) {
	if p == nil {
		return
	}
	defer close(p.Done)
	for msg := range p.Send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}
