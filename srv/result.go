package srv

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// GameResult is the archived outcome of a finished game. Only finished
// games are persisted; live room state never is.
type GameResult struct {
	ID          string              `json:"id"`
	RoomID      string              `json:"roomId"`
	Winner      string              `json:"winner"`
	Rounds      int                 `json:"rounds"`
	PlayerCount int                 `json:"playerCount"`
	Leaderboard []LeaderboardEntry  `json:"leaderboard"`
	Words       map[string][]string `json:"words"`
	CreatedAt   time.Time           `json:"createdAt"`
}

func generateResultID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// makeGameOverCallback returns the hook that archives a final
// leaderboard when a room's game finishes.
func (s *Server) makeGameOverCallback() func(room *Room, leaderboard []LeaderboardEntry) {
	return func(room *Room, leaderboard []LeaderboardEntry) {
		if s.DB == nil || len(leaderboard) == 0 {
			return
		}
		id := generateResultID()
		words := room.Engine.WordsByName()
		lbJSON, _ := json.Marshal(leaderboard)
		wordsJSON, _ := json.Marshal(words)

		_, err := s.DB.Exec(
			`INSERT INTO game_results (id, room_id, winner, rounds, player_count, leaderboard_json, words_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, room.ID, leaderboard[0].Name, room.Engine.Settings().Rounds,
			len(leaderboard), string(lbJSON), string(wordsJSON), time.Now().UTC(),
		)
		if err != nil {
			slog.Error("save result", "roomId", room.ID, "error", err)
			return
		}
		slog.Info("result saved", "roomId", room.ID, "resultId", id)
	}
}

// loadResult loads a game result from the database.
func (s *Server) loadResult(id string) (*GameResult, error) {
	var (
		result   GameResult
		lbStr    string
		wordsStr string
	)
	err := s.DB.QueryRow(
		`SELECT id, room_id, winner, rounds, player_count, leaderboard_json, words_json, created_at
		 FROM game_results WHERE id = ?`, id,
	).Scan(&result.ID, &result.RoomID, &result.Winner, &result.Rounds,
		&result.PlayerCount, &lbStr, &wordsStr, &result.CreatedAt)
	if err != nil {
		return nil, err
	}
	json.Unmarshal([]byte(lbStr), &result.Leaderboard)
	json.Unmarshal([]byte(wordsStr), &result.Words)
	return &result, nil
}

// HandleGetResult serves an archived game result as JSON.
func (s *Server) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	result, err := s.loadResult(id)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
