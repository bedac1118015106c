package srv

import "maps"

// broadcastOrdered is the projection send used by the clock tick and
// spawn hooks. Taking the transitions lock means a hook that fires in
// the instant a round ends either projects the old phase first or runs
// after the round:ended broadcast is out.
func (r *Room) broadcastOrdered() {
	r.transitions.Lock()
	defer r.transitions.Unlock()
	r.BroadcastState()
}

// BroadcastState sends a lobby:state projection to every player in the
// room. The bank and myScore fields differ per viewer, so the shared
// portion is computed once and each recipient gets a copy with their
// private fields filled in. While a round is playing, other players'
// scores are hidden (scoresHidden=true).
func (r *Room) BroadcastState() {
	snap := r.Engine.Snapshot()
	scoresHidden := snap.Phase == PhasePlaying

	players := make([]map[string]any, len(snap.Players))
	for i, p := range snap.Players {
		entry := map[string]any{"id": p.ID, "name": p.Name}
		if !scoresHidden {
			entry["score"] = p.Total
		}
		players[i] = entry
	}

	shared := map[string]any{
		"type":            "lobby:state",
		"id":              r.ID,
		"settings":        snap.Settings.view(),
		"players":         players,
		"pool":            snap.Pool,
		"endsInMs":        r.Clock.RemainingMs(),
		"phase":           snap.Phase,
		"currentRound":    snap.Round,
		"totalRounds":     snap.TotalRounds,
		"roundMultiplier": snap.Multiplier,
		"scoresHidden":    scoresHidden,
	}

	// Sends happen under the room lock, like Broadcast, so a player
	// being removed concurrently cannot have a closed channel written.
	r.mu.Lock()
	defer r.mu.Unlock()
	shared["hostId"] = r.HostID
	for id, p := range r.Players {
		view := maps.Clone(shared)
		bank := snap.Banks[id]
		if bank == nil {
			bank = []string{}
		}
		view["bank"] = bank
		view["myScore"] = snap.RoundScores[id]
		select {
		case p.Send <- mustMarshal(view):
		default:
		}
	}
}
