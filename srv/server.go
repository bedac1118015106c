package srv

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"yoink.exe.dev/db"
)

// Server holds shared state for the HTTP/WebSocket server.
type Server struct {
	DB    *sql.DB
	Dict  *Dictionary
	Rooms *RoomManager
}

// New creates a Server with its results database and room registry. The
// dictionary must already be loaded; rooms share it read-only.
func New(dbPath string, dict *Dictionary) (*Server, error) {
	srv := &Server{
		Dict:  dict,
		Rooms: NewRoomManager(dict),
	}
	if err := srv.setUpDatabase(dbPath); err != nil {
		return nil, err
	}
	return srv, nil
}

// setUpDatabase initializes the database connection and runs migrations.
func (s *Server) setUpDatabase(dbPath string) error {
	wdb, err := db.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	s.DB = wdb
	if err := db.RunMigrations(wdb); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// HandleHealth is the liveness endpoint.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "yoink ok")
}

// HandleRoomInfo returns room summary data.
func (s *Server) HandleRoomInfo(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	if roomID == "" {
		http.NotFound(w, r)
		return
	}
	room := s.Rooms.GetRoom(roomID)
	if room == nil {
		http.NotFound(w, r)
		return
	}
	snap := room.Engine.Snapshot()
	players := room.PlayerNames()
	room.mu.Lock()
	hostID := room.HostID
	room.mu.Unlock()

	payload := map[string]any{
		"id":           room.ID,
		"phase":        snap.Phase,
		"currentRound": snap.Round,
		"totalRounds":  snap.TotalRounds,
		"playerCount":  len(players),
		"maxPlayers":   maxPlayersPerRoom,
		"players":      players,
		"hostId":       hostID,
		"settings":     snap.Settings.view(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// Serve starts the HTTP server with the configured routes.
func (s *Server) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.HandleHealth)
	mux.HandleFunc("GET /ws", s.HandleWS)
	mux.HandleFunc("GET /room/{id}", s.HandleRoomInfo)
	mux.HandleFunc("GET /results/{id}", s.HandleGetResult)
	slog.Info("starting server", "addr", addr, "dictionaryWords", s.Dict.Len())
	return http.ListenAndServe(addr, mux)
}
