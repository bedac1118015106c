package srv

import (
	"encoding/json"
	"testing"
	"time"
)

// drainMessages decodes every pending message on a player's send channel.
func drainMessages(t *testing.T, ch chan []byte) []map[string]any {
	t.Helper()
	var out []map[string]any
	for {
		select {
		case raw := <-ch:
			var m map[string]any
			if err := json.Unmarshal(raw, &m); err != nil {
				t.Fatalf("bad message %s: %v", raw, err)
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func lastOfType(msgs []map[string]any, typ string) map[string]any {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i]["type"] == typ {
			return msgs[i]
		}
	}
	return nil
}

func newStateRoom(t *testing.T, settings Settings) (*Room, *Player, *Player) {
	t.Helper()
	r := NewRoom("ROOM", settings, NewDictionary(testWords))
	base := time.Now()
	alice := newTestPlayer("p1", "alice", base)
	bob := newTestPlayer("p2", "bob", base.Add(time.Second))
	if err := r.AddPlayer(alice); err != nil {
		t.Fatal(err)
	}
	if err := r.AddPlayer(bob); err != nil {
		t.Fatal(err)
	}
	return r, alice, bob
}

func TestBroadcastStateLobby(t *testing.T) {
	r, alice, _ := newStateRoom(t, DefaultSettings())
	defer r.Teardown()

	r.BroadcastState()
	state := lastOfType(drainMessages(t, alice.Send), "lobby:state")
	if state == nil {
		t.Fatal("no lobby:state received")
	}
	if state["phase"] != PhaseLobby {
		t.Errorf("phase = %v, want lobby", state["phase"])
	}
	if state["scoresHidden"] != false {
		t.Error("scores should be visible in the lobby")
	}
	if state["hostId"] != "p1" {
		t.Errorf("hostId = %v, want p1", state["hostId"])
	}
	if state["endsInMs"] != float64(0) {
		t.Errorf("endsInMs = %v, want 0", state["endsInMs"])
	}
	players := state["players"].([]any)
	if len(players) != 2 {
		t.Fatalf("players = %d, want 2", len(players))
	}
	if _, ok := players[0].(map[string]any)["score"]; !ok {
		t.Error("lobby player entries should include score")
	}
}

func TestBroadcastStatePerViewerPrivacy(t *testing.T) {
	r, alice, bob := newStateRoom(t, DefaultSettings())
	defer r.Teardown()

	if err := r.StartGame(); err != nil {
		t.Fatal(err)
	}
	if outcome, _ := r.Engine.Yoink("p1", 0); outcome != YoinkOK {
		t.Fatal("yoink failed")
	}
	drainMessages(t, alice.Send)
	drainMessages(t, bob.Send)
	r.BroadcastState()

	aliceState := lastOfType(drainMessages(t, alice.Send), "lobby:state")
	bobState := lastOfType(drainMessages(t, bob.Send), "lobby:state")
	if aliceState == nil || bobState == nil {
		t.Fatal("missing lobby:state")
	}

	if aliceState["scoresHidden"] != true {
		t.Error("scores should be hidden while playing")
	}
	players := aliceState["players"].([]any)
	if _, ok := players[0].(map[string]any)["score"]; ok {
		t.Error("player entries must omit score while playing")
	}
	if pool := aliceState["pool"].([]any); len(pool) != GridSize {
		t.Errorf("pool size = %d, want %d", len(pool), GridSize)
	}

	// Each viewer sees only their own bank.
	if n := len(aliceState["bank"].([]any)); n != 1 {
		t.Errorf("alice bank = %d letters, want 1", n)
	}
	if n := len(bobState["bank"].([]any)); n != 0 {
		t.Errorf("bob bank = %d letters, want 0", n)
	}
	if aliceState["myScore"] != float64(0) || bobState["myScore"] != float64(0) {
		t.Error("round scores should start at 0")
	}
}

func TestRoundEndMessageOrdering(t *testing.T) {
	settings := DefaultSettings()
	settings.Rounds = 2
	r, alice, _ := newStateRoom(t, settings)
	defer r.Teardown()

	if err := r.StartGame(); err != nil {
		t.Fatal(err)
	}
	drainMessages(t, alice.Send)

	r.handleClockExpired()
	msgs := drainMessages(t, alice.Send)
	if len(msgs) < 2 {
		t.Fatalf("got %d messages, want at least 2", len(msgs))
	}
	// The round summary arrives before the intermission state.
	if msgs[0]["type"] != "round:ended" {
		t.Fatalf("first message = %v, want round:ended", msgs[0]["type"])
	}
	if msgs[0]["round"] != float64(1) {
		t.Errorf("round = %v, want 1", msgs[0]["round"])
	}
	state := msgs[1]
	if state["type"] != "lobby:state" || state["phase"] != PhaseIntermission {
		t.Errorf("second message = %v/%v, want lobby:state intermission", state["type"], state["phase"])
	}
	if !r.Clock.Running() {
		t.Error("intermission clock should be running")
	}

	// Intermission deadline starts the next round.
	r.handleClockExpired()
	msgs = drainMessages(t, alice.Send)
	state = lastOfType(msgs, "lobby:state")
	if state == nil || state["phase"] != PhasePlaying {
		t.Fatal("expected next round to start")
	}
	if state["currentRound"] != float64(2) {
		t.Errorf("currentRound = %v, want 2", state["currentRound"])
	}
	if state["roundMultiplier"] != 1.2 {
		t.Errorf("roundMultiplier = %v, want 1.2", state["roundMultiplier"])
	}
}

func TestTickNeverPrecedesRoundEnded(t *testing.T) {
	settings := DefaultSettings()
	settings.Rounds = 2
	r, alice, _ := newStateRoom(t, settings)
	defer r.Teardown()

	if err := r.StartGame(); err != nil {
		t.Fatal(err)
	}
	drainMessages(t, alice.Send)

	// Hammer the tick path while the round-end transition runs. Every
	// tick projection must either show the round still playing or land
	// after the round:ended broadcast.
	ticking := make(chan struct{})
	go func() {
		defer close(ticking)
		for i := 0; i < 25; i++ {
			r.broadcastOrdered()
		}
	}()
	r.handleClockExpired()
	<-ticking

	sawRoundEnded := false
	for _, m := range drainMessages(t, alice.Send) {
		switch {
		case m["type"] == "round:ended":
			sawRoundEnded = true
		case m["type"] == "lobby:state" && m["phase"] != PhasePlaying && !sawRoundEnded:
			t.Fatalf("phase %v surfaced before round:ended", m["phase"])
		}
	}
	if !sawRoundEnded {
		t.Fatal("no round:ended broadcast")
	}
}

func TestGameEndEmitsFinalMessages(t *testing.T) {
	settings := DefaultSettings()
	settings.Rounds = 1
	r, alice, _ := newStateRoom(t, settings)
	defer r.Teardown()

	gameOverCalled := false
	r.OnGameOver = func(room *Room, leaderboard []LeaderboardEntry) {
		gameOverCalled = true
		if len(leaderboard) != 2 {
			t.Errorf("leaderboard = %d entries, want 2", len(leaderboard))
		}
	}

	if err := r.StartGame(); err != nil {
		t.Fatal(err)
	}
	drainMessages(t, alice.Send)

	r.handleClockExpired()
	msgs := drainMessages(t, alice.Send)
	if msgs[0]["type"] != "round:ended" {
		t.Errorf("first = %v, want round:ended", msgs[0]["type"])
	}
	if msgs[1]["type"] != "game:ended" {
		t.Errorf("second = %v, want game:ended", msgs[1]["type"])
	}
	state := lastOfType(msgs, "lobby:state")
	if state == nil || state["phase"] != PhaseFinished {
		t.Error("expected finished lobby:state")
	}
	if !gameOverCalled {
		t.Error("OnGameOver not called")
	}
	if r.Clock.Running() {
		t.Error("clock should be stopped after the final round")
	}
}
