package srv

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Room phases.
const (
	PhaseLobby        = "lobby"
	PhasePlaying      = "playing"
	PhaseIntermission = "intermission"
	PhaseFinished     = "finished"
)

const (
	// MaxWordLen is fixed by the bank size.
	MaxWordLen = 7
	// yoinkCooldownDur is the minimum server-enforced gap between one
	// player's successful yoinks. A yoink exactly at the boundary is
	// allowed.
	yoinkCooldownDur = 500 * time.Millisecond
)

// Word rejection reasons, surfaced to the submitter only.
const (
	ReasonTooShort  = "too short"
	ReasonTooLong   = "too long (max 7)"
	ReasonNotAWord  = "not a word"
	ReasonNotInBank = "not in bank"
)

var wordPattern = regexp.MustCompile(`^[A-Z]+$`)

// PlayerState is a player's game-level state, owned by the engine.
type PlayerState struct {
	ID          string
	Name        string
	Bank        Bank
	RoundScore  int
	TotalScore  int
	LastYoinkAt time.Time
	RoundWords  []string // words accepted this round
	GameWords   []string // words accepted this game
	JoinedAt    time.Time
}

// LeaderboardEntry is one row of a round or game leaderboard.
type LeaderboardEntry struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RoundScore      int    `json:"roundScore"`
	CumulativeScore int    `json:"cumulativeScore"`
}

// YoinkOutcome classifies a yoink attempt.
type YoinkOutcome int

const (
	YoinkOK         YoinkOutcome = iota
	YoinkNotPlaying              // wrong phase or unknown player: silent
	YoinkCooldown                // yoink:rejected "cooldown"
	YoinkBankFull                // yoink:rejected "bank full"
	YoinkTileGone                // lost race or empty slot: silent
)

// SubmitOutcome classifies a word submission.
type SubmitOutcome int

const (
	SubmitAccepted SubmitOutcome = iota
	SubmitRejected               // word:rejected with a reason
	SubmitIgnored                // wrong phase or unknown player: silent
)

// SubmitResult is the resolved outcome of a word submission.
type SubmitResult struct {
	Outcome SubmitOutcome
	Reason  string
	Word    string
	Letters []string
	Points  int
}

// Engine is the authoritative per-room game state machine: grid, banks,
// scores, phase, round index, and the spawn schedule. Every mutation is
// serialized under one mutex, so concurrent yoinks on the same slot
// resolve in lock-acquisition order and exactly one wins. Different
// rooms have independent engines.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	dict     *Dictionary
	rng      *rand.Rand
	bag      *LetterBag
	grid     Grid
	players  map[string]*PlayerState
	phase    string
	round    int // 1-based; 0 before the first game

	spawn    *time.Timer
	spawnSeq uint64 // invalidates stale spawn fires

	// now is injectable so cooldown tests are deterministic.
	now func() time.Time
	// onSpawn runs after a spawn commits, outside the engine lock.
	onSpawn func()
}

// NewEngine creates an engine in the lobby phase. A nil rng gets a
// randomly seeded source.
func NewEngine(settings Settings, dict *Dictionary, rng *rand.Rand) *Engine {
	settings.Clamp()
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{
		settings: settings,
		dict:     dict,
		rng:      rng,
		bag:      NewLetterBag(rng),
		players:  make(map[string]*PlayerState),
		phase:    PhaseLobby,
		now:      time.Now,
	}
}

// SetOnSpawn installs the hook run after each committed spawn.
func (e *Engine) SetOnSpawn(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSpawn = fn
}

// AddPlayer registers a player. Joining mid-round starts with an empty
// bank and zero scores.
func (e *Engine) AddPlayer(id, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.players[id] = &PlayerState{ID: id, Name: name, JoinedAt: e.now()}
}

// RemovePlayer drops a player's game state.
func (e *Engine) RemovePlayer(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.players, id)
}

// PlayerCount returns the number of registered players.
func (e *Engine) PlayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.players)
}

// Phase returns the current phase.
func (e *Engine) Phase() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Round returns the current 1-based round index.
func (e *Engine) Round() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.round
}

// Settings returns a copy of the room settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// UpdateSettings applies a partial, clamped settings update. Updates
// during an active round are refused.
func (e *Engine) UpdateSettings(patch SettingsPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase == PhasePlaying {
		return fmt.Errorf("settings are locked during a round")
	}
	e.settings.Apply(patch)
	return nil
}

// StartGame transitions lobby or finished into round 1 of a new game.
func (e *Engine) StartGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseLobby && e.phase != PhaseFinished {
		return fmt.Errorf("game already in progress")
	}
	if len(e.players) < 1 {
		return fmt.Errorf("need at least 1 player")
	}
	for _, p := range e.players {
		p.TotalScore = 0
		p.GameWords = nil
	}
	e.startRoundLocked(1)
	return nil
}

// startRoundLocked resets all per-round state and begins the round with
// a full grid. The spawn loop idles until the first yoink opens a slot.
func (e *Engine) startRoundLocked(round int) {
	e.round = round
	e.phase = PhasePlaying
	for _, p := range e.players {
		p.Bank.Clear()
		p.RoundScore = 0
		p.RoundWords = nil
		p.LastYoinkAt = time.Time{}
	}
	e.grid.Reset()
	for i := 0; i < GridSize; i++ {
		e.grid.SetAt(i, e.bag.Sample())
	}
	e.scheduleSpawnLocked()
}

// EndRound closes the current round: stops spawning, folds round scores
// into cumulative totals, and moves to intermission or finished. The
// returned leaderboard is sorted by cumulative score descending with
// name ascending as the tiebreak.
func (e *Engine) EndRound() (round int, leaderboard []LeaderboardEntry, finished bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhasePlaying {
		return 0, nil, false
	}
	e.cancelSpawnLocked()
	for _, p := range e.players {
		p.TotalScore += p.RoundScore
	}
	round = e.round
	leaderboard = e.leaderboardLocked()
	if e.round >= e.settings.Rounds {
		e.phase = PhaseFinished
		finished = true
	} else {
		e.phase = PhaseIntermission
	}
	return round, leaderboard, finished
}

// StartNextRound transitions intermission into the next round.
func (e *Engine) StartNextRound() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != PhaseIntermission {
		return false
	}
	e.startRoundLocked(e.round + 1)
	return true
}

// Teardown cancels the pending spawn timer. Called when the room dies.
func (e *Engine) Teardown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancelSpawnLocked()
}

// Leaderboard returns the current standings.
func (e *Engine) Leaderboard() []LeaderboardEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.leaderboardLocked()
}

func (e *Engine) leaderboardLocked() []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(e.players))
	for _, p := range e.players {
		entries = append(entries, LeaderboardEntry{
			ID:              p.ID,
			Name:            p.Name,
			RoundScore:      p.RoundScore,
			CumulativeScore: p.TotalScore,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CumulativeScore != entries[j].CumulativeScore {
			return entries[i].CumulativeScore > entries[j].CumulativeScore
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Yoink attempts to take the letter at a grid slot for the player.
// Arbitration is first-come-first-served: attempts are resolved in the
// order they acquire the engine lock.
func (e *Engine) Yoink(playerID string, index int) (YoinkOutcome, rune) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhasePlaying {
		return YoinkNotPlaying, 0
	}
	p, ok := e.players[playerID]
	if !ok {
		return YoinkNotPlaying, 0
	}
	now := e.now()
	if !p.LastYoinkAt.IsZero() && now.Sub(p.LastYoinkAt) < yoinkCooldownDur {
		return YoinkCooldown, 0
	}
	if p.Bank.Len() >= BankCapacity {
		return YoinkBankFull, 0
	}
	letter, ok := e.grid.TakeAt(index)
	if !ok {
		return YoinkTileGone, 0
	}
	p.LastYoinkAt = now
	p.Bank.Append(letter)
	e.scheduleSpawnLocked()
	return YoinkOK, letter
}

// Submit validates and scores a word built from the player's bank. The
// optional indices identify the exact bank positions spelling the word
// in selection order; when absent the engine reconstructs them and
// rejects if no exact match exists.
func (e *Engine) Submit(playerID, word string, indices []int) SubmitResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.phase != PhasePlaying {
		return SubmitResult{Outcome: SubmitIgnored}
	}
	p, ok := e.players[playerID]
	if !ok {
		return SubmitResult{Outcome: SubmitIgnored}
	}

	upper := strings.ToUpper(strings.TrimSpace(word))
	reject := func(reason string) SubmitResult {
		return SubmitResult{Outcome: SubmitRejected, Reason: reason, Word: upper}
	}
	if !wordPattern.MatchString(upper) {
		return reject(ReasonNotAWord)
	}
	n := len(upper)
	if n < e.settings.MinLen {
		return reject(ReasonTooShort)
	}
	if n > MaxWordLen {
		return reject(ReasonTooLong)
	}
	if !e.dict.Contains(upper) {
		return reject(ReasonNotAWord)
	}
	if len(indices) > 0 {
		if !p.Bank.Spells(upper, indices) {
			return reject(ReasonNotInBank)
		}
	} else {
		found, ok := p.Bank.FindIndices(upper)
		if !ok {
			return reject(ReasonNotInBank)
		}
		indices = found
	}
	p.Bank.Remove(indices)

	points := ScoreWord(upper, MultiplierForRound(e.round))
	p.RoundScore += points
	p.RoundWords = append(p.RoundWords, upper)
	p.GameWords = append(p.GameWords, upper)

	letters := make([]string, 0, n)
	for _, r := range upper {
		letters = append(letters, string(r))
	}
	return SubmitResult{Outcome: SubmitAccepted, Word: upper, Letters: letters, Points: points}
}

// scheduleSpawnLocked replaces the pending spawn timer based on the
// current fill level. No spawn is scheduled while the grid is full or
// the phase is not playing.
func (e *Engine) scheduleSpawnLocked() {
	e.cancelSpawnLocked()
	if e.phase != PhasePlaying {
		return
	}
	n := e.grid.NonEmpty()
	if n >= GridSize {
		return
	}
	seq := e.spawnSeq
	e.spawn = time.AfterFunc(spawnInterval(n), func() { e.spawnFire(seq) })
}

func (e *Engine) cancelSpawnLocked() {
	e.spawnSeq++
	if e.spawn != nil {
		e.spawn.Stop()
		e.spawn = nil
	}
}

// spawnFire fills one uniformly random empty slot with a fresh letter,
// then recomputes the schedule from the new fill level.
func (e *Engine) spawnFire(seq uint64) {
	e.mu.Lock()
	if seq != e.spawnSeq || e.phase != PhasePlaying {
		e.mu.Unlock()
		return
	}
	empty := e.grid.EmptySlots()
	if len(empty) > 0 {
		slot := empty[e.rng.IntN(len(empty))]
		e.grid.SetAt(slot, e.bag.Sample())
	}
	e.scheduleSpawnLocked()
	hook := e.onSpawn
	e.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// spawnPending reports whether a spawn timer is armed.
func (e *Engine) spawnPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.spawn != nil
}

// PlayerPublic is the shared, per-player portion of a state projection.
type PlayerPublic struct {
	ID    string
	Name  string
	Total int
}

// EngineSnapshot is a consistent copy of the engine state used to build
// state projections.
type EngineSnapshot struct {
	Phase       string
	Round       int
	TotalRounds int
	Multiplier  float64
	Settings    Settings
	Pool        []any
	Players     []PlayerPublic
	Banks       map[string][]string
	RoundScores map[string]int
}

// Snapshot captures the engine state under the lock.
func (e *Engine) Snapshot() EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := EngineSnapshot{
		Phase:       e.phase,
		Round:       e.round,
		TotalRounds: e.settings.Rounds,
		Multiplier:  MultiplierForRound(max(e.round, 1)),
		Settings:    e.settings,
		Pool:        e.grid.View(),
		Players:     make([]PlayerPublic, 0, len(e.players)),
		Banks:       make(map[string][]string, len(e.players)),
		RoundScores: make(map[string]int, len(e.players)),
	}
	for _, p := range e.players {
		snap.Players = append(snap.Players, PlayerPublic{ID: p.ID, Name: p.Name, Total: p.TotalScore})
		snap.Banks[p.ID] = p.Bank.View()
		snap.RoundScores[p.ID] = p.RoundScore
	}
	sort.Slice(snap.Players, func(i, j int) bool {
		if snap.Players[i].Name != snap.Players[j].Name {
			return snap.Players[i].Name < snap.Players[j].Name
		}
		return snap.Players[i].ID < snap.Players[j].ID
	})
	return snap
}

// WordsByName returns each player's accepted words for the whole game,
// keyed by display name. Used for the results archive.
func (e *Engine) WordsByName() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	words := make(map[string][]string, len(e.players))
	for _, p := range e.players {
		words[p.Name] = append([]string(nil), p.GameWords...)
	}
	return words
}

// PlayerName returns the display name for a player id.
func (e *Engine) PlayerName(id string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.players[id]; ok {
		return p.Name
	}
	return ""
}
