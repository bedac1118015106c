package srv

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// RoomCleanupInterval is how often the janitor checks for empty rooms.
	RoomCleanupInterval = 1 * time.Minute
	// RoomMaxEmptyAge is how long a room may linger empty before the
	// janitor removes it. Normal teardown happens immediately on the
	// last disconnect; this is the backstop.
	RoomMaxEmptyAge = 5 * time.Minute
	// maxPlayersPerRoom caps room membership.
	maxPlayersPerRoom = 8
	// maxNameLen caps display names.
	maxNameLen = 16
)

// Settings holds the host-adjustable room configuration. Bank capacity
// (7), max word length (7), the yoink cooldown (500 ms), and the round
// multiplier table are fixed and not part of it.
type Settings struct {
	Rounds           int `json:"rounds"`
	RoundDurationSec int `json:"roundDurationSec"`
	IntermissionSec  int `json:"intermissionSec"`
	MinLen           int `json:"minLen"`
}

// DefaultSettings returns the defaults: 3 rounds of 60 s with 10 s
// intermissions and a 3-letter minimum.
func DefaultSettings() Settings {
	return Settings{Rounds: 3, RoundDurationSec: 60, IntermissionSec: 10, MinLen: 3}
}

// Clamp forces every field into its allowed range.
func (s *Settings) Clamp() {
	s.Rounds = clampInt(s.Rounds, 1, 5)
	s.RoundDurationSec = clampInt(s.RoundDurationSec, 15, 300)
	s.IntermissionSec = clampInt(s.IntermissionSec, 3, 30)
	s.MinLen = clampInt(s.MinLen, 2, 6)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SettingsPatch is a partial settings update; nil fields keep their
// current value.
type SettingsPatch struct {
	Rounds           *int `json:"rounds,omitempty"`
	RoundDurationSec *int `json:"roundDurationSec,omitempty"`
	IntermissionSec  *int `json:"intermissionSec,omitempty"`
	MinLen           *int `json:"minLen,omitempty"`
}

// Apply overlays the patch and re-clamps.
func (s *Settings) Apply(p SettingsPatch) {
	if p.Rounds != nil {
		s.Rounds = *p.Rounds
	}
	if p.RoundDurationSec != nil {
		s.RoundDurationSec = *p.RoundDurationSec
	}
	if p.IntermissionSec != nil {
		s.IntermissionSec = *p.IntermissionSec
	}
	if p.MinLen != nil {
		s.MinLen = *p.MinLen
	}
	s.Clamp()
}

// view is the settings object sent to clients, fixed fields included.
func (s Settings) view() map[string]any {
	return map[string]any{
		"rounds":           s.Rounds,
		"roundDurationSec": s.RoundDurationSec,
		"intermissionSec":  s.IntermissionSec,
		"minLen":           s.MinLen,
		"maxLen":           MaxWordLen,
		"bankCapacity":     BankCapacity,
		"yoinkCooldownMs":  yoinkCooldownDur.Milliseconds(),
		"roundMultipliers": roundMultipliers,
	}
}

// Player represents a connected player. Game-level state (bank, scores,
// cooldown) lives in the engine; this is the transport side.
type Player struct {
	ID       string
	Name     string
	Conn     *websocket.Conn
	Send     chan []byte
	JoinedAt time.Time

	// Done is closed when this player's writer goroutine exits. Only
	// one writer may touch the connection at a time, so a rejoin must
	// wait on it before starting the next writer.
	Done chan struct{}
}

// Room holds one game room: its players, engine, and round clock. The
// room exclusively owns its engine and timers; rooms are independent.
type Room struct {
	mu      sync.Mutex
	ID      string
	HostID  string
	Players map[string]*Player

	Engine *Engine
	Clock  *RoundClock

	// transitions serializes clock ticks and spawn broadcasts against
	// round transitions, so an observational projection can never show
	// a new phase before the round:ended that announced it.
	transitions sync.Mutex

	// OnGameOver is called with the final leaderboard when a game
	// finishes (set by Server to archive results).
	OnGameOver func(room *Room, leaderboard []LeaderboardEntry)

	// EmptySince tracks when the room became empty; nil while occupied.
	EmptySince *time.Time
}

// NewRoom creates a room in the lobby phase and wires its clock and
// spawn hook to the broadcaster.
func NewRoom(id string, settings Settings, dict *Dictionary) *Room {
	r := &Room{
		ID:      id,
		Players: make(map[string]*Player),
	}
	r.Engine = NewEngine(settings, dict, nil)
	r.Engine.SetOnSpawn(r.broadcastOrdered)
	r.Clock = NewRoundClock(r.broadcastOrdered, r.handleClockExpired)
	return r
}

// AddPlayer adds a player to the room. The first player becomes host.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	if len(r.Players) >= maxPlayersPerRoom {
		r.mu.Unlock()
		return fmt.Errorf("room is full (%d players)", maxPlayersPerRoom)
	}
	r.Players[p.ID] = p
	r.EmptySince = nil
	if r.HostID == "" {
		r.HostID = p.ID
	}
	r.mu.Unlock()

	r.Engine.AddPlayer(p.ID, p.Name)
	return nil
}

// RemovePlayer removes a player and returns the remaining count. Host
// role passes to the longest-connected remaining player.
func (r *Room) RemovePlayer(id string) int {
	r.mu.Lock()
	if p, ok := r.Players[id]; ok {
		close(p.Send)
		delete(r.Players, id)
	}
	if r.HostID == id {
		r.HostID = r.successorLocked()
	}
	remaining := len(r.Players)
	if remaining == 0 {
		now := time.Now()
		r.EmptySince = &now
	}
	r.mu.Unlock()

	r.Engine.RemovePlayer(id)
	return remaining
}

// successorLocked picks the longest-connected player as the new host.
func (r *Room) successorLocked() string {
	var next *Player
	for _, p := range r.Players {
		if next == nil || p.JoinedAt.Before(next.JoinedAt) ||
			(p.JoinedAt.Equal(next.JoinedAt) && p.ID < next.ID) {
			next = p
		}
	}
	if next == nil {
		return ""
	}
	return next.ID
}

// IsHost reports whether the player id currently holds the host role.
func (r *Room) IsHost(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return id != "" && r.HostID == id
}

// PlayerNames returns a snapshot of current display names.
func (r *Room) PlayerNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		names = append(names, p.Name)
	}
	return names
}

// Broadcast sends a message to every player in the room. Sends are
// non-blocking; a full channel drops the message for that player.
func (r *Room) Broadcast(msg []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.Players {
		select {
		case p.Send <- msg:
		default:
		}
	}
}

// sendTo delivers a message to one player only.
func (r *Room) sendTo(id string, v any) {
	msg := mustMarshal(v)
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.Players[id]; ok {
		select {
		case p.Send <- msg:
		default:
		}
	}
}

// StartGame begins a new game if the phase and player count allow it.
func (r *Room) StartGame() error {
	if err := r.Engine.StartGame(); err != nil {
		return err
	}
	r.Clock.Start(time.Duration(r.Engine.Settings().RoundDurationSec) * time.Second)
	slog.Info("game started", "roomId", r.ID, "rounds", r.Engine.Settings().Rounds)
	r.BroadcastState()
	return nil
}

// handleClockExpired fires the phase transition owed at the deadline:
// playing ends the round, intermission starts the next one.
func (r *Room) handleClockExpired() {
	r.transitions.Lock()
	defer r.transitions.Unlock()

	switch r.Engine.Phase() {
	case PhasePlaying:
		round, leaderboard, finished := r.Engine.EndRound()
		if leaderboard == nil {
			return
		}
		settings := r.Engine.Settings()
		if finished {
			r.Clock.Stop()
		} else {
			r.Clock.Start(time.Duration(settings.IntermissionSec) * time.Second)
		}
		r.Broadcast(mustMarshal(map[string]any{
			"type":        "round:ended",
			"round":       round,
			"totalRounds": settings.Rounds,
			"leaderboard": leaderboard,
		}))
		if finished {
			r.Broadcast(mustMarshal(map[string]any{
				"type":        "game:ended",
				"leaderboard": leaderboard,
			}))
			slog.Info("game ended", "roomId", r.ID, "rounds", round)
			if r.OnGameOver != nil {
				r.OnGameOver(r, leaderboard)
			}
		}
		r.BroadcastState()

	case PhaseIntermission:
		if r.Engine.StartNextRound() {
			r.Clock.Start(time.Duration(r.Engine.Settings().RoundDurationSec) * time.Second)
			r.BroadcastState()
		}
	}
}

// Teardown cancels every room timer. Called when the room is destroyed.
func (r *Room) Teardown() {
	r.Clock.Stop()
	r.Engine.Teardown()
}

// RoomManager is the registry of active rooms.
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	dict  *Dictionary
	// done stops the cleanup goroutine.
	done chan struct{}
}

// NewRoomManager creates an empty registry. Rooms created through it
// share the given dictionary.
func NewRoomManager(dict *Dictionary) *RoomManager {
	return &RoomManager{
		rooms: make(map[string]*Room),
		dict:  dict,
		done:  make(chan struct{}),
	}
}

// JoinOrCreate returns the room with the given code, creating it in the
// lobby phase if it does not exist. Codes are opaque; uniqueness is by
// exact match.
func (rm *RoomManager) JoinOrCreate(code string) (room *Room, created bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if room, ok := rm.rooms[code]; ok {
		return room, false
	}
	room = NewRoom(code, DefaultSettings(), rm.dict)
	rm.rooms[code] = room
	return room, true
}

// GetRoom returns a room by code, or nil.
func (rm *RoomManager) GetRoom(code string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[code]
}

// RemoveRoom removes a room from the registry.
func (rm *RoomManager) RemoveRoom(code string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, code)
}

// StartCleanup starts a background goroutine that periodically removes
// rooms that have stayed empty longer than maxEmptyAge.
func (rm *RoomManager) StartCleanup(interval, maxEmptyAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-rm.done:
				return
			case <-ticker.C:
				rm.cleanupEmptyRooms(maxEmptyAge)
			}
		}
	}()
}

// StopCleanup stops the background cleanup goroutine.
func (rm *RoomManager) StopCleanup() {
	close(rm.done)
}

// cleanupEmptyRooms removes rooms that have been empty longer than maxAge.
func (rm *RoomManager) cleanupEmptyRooms(maxAge time.Duration) {
	now := time.Now()
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for code, r := range rm.rooms {
		r.mu.Lock()
		stale := r.EmptySince != nil && now.Sub(*r.EmptySince) > maxAge
		r.mu.Unlock()
		if stale {
			r.Teardown()
			delete(rm.rooms, code)
			slog.Info("room cleaned up (empty timeout)", "roomId", code)
		}
	}
}
