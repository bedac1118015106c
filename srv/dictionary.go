package srv

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Dictionary is an immutable set of uppercase A-Z words. It is loaded
// once at startup and safely shared by every room.
type Dictionary struct {
	words map[string]struct{}
}

// NewDictionary builds a dictionary from a word list. Words are
// uppercased; entries containing anything outside A-Z are dropped.
func NewDictionary(words []string) *Dictionary {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToUpper(strings.TrimSpace(w))
		if w == "" || !isAlpha(w) {
			continue
		}
		set[w] = struct{}{}
	}
	return &Dictionary{words: set}
}

// Contains reports whether the word is in the dictionary. The word must
// already be uppercase.
func (d *Dictionary) Contains(word string) bool {
	_, ok := d.words[word]
	return ok
}

// Len returns the number of words.
func (d *Dictionary) Len() int {
	return len(d.words)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// fallbackWords keeps the server playable when no dictionary source
// can be fetched.
var fallbackWords = []string{
	"ACE", "AGE", "AIR", "AND", "ANT", "APE", "ARM", "ART", "ATE",
	"BAD", "BAG", "BAR", "BAT", "BED", "BIG", "BIT", "BOX", "BUS",
	"CAB", "CAN", "CAP", "CAR", "CAT", "COT", "CUP", "CUT",
	"DEN", "DOG", "DOT", "EAR", "EAT", "EGG", "END",
	"FAN", "FAR", "FAT", "FIN", "FIT", "FOX", "FUN",
	"GAS", "GET", "GOT", "GUM", "HAT", "HEN", "HIT", "HOT",
	"ICE", "INK", "JAM", "JAR", "JET", "JOG",
	"KEY", "KID", "KIT", "LAP", "LEG", "LET", "LID", "LIP", "LOG",
	"MAN", "MAP", "MAT", "MEN", "MIX", "MUD",
	"NAP", "NET", "NEW", "NOT", "NOW", "NUT",
	"OAK", "ODD", "OIL", "OLD", "ONE", "OUT", "OWL",
	"PAN", "PEN", "PET", "PIG", "PIN", "POT", "PUT",
	"RAG", "RAN", "RAT", "RED", "RIB", "RIG", "ROT", "RUG", "RUN",
	"SAD", "SAT", "SEA", "SET", "SIT", "SKY", "SUN",
	"TAG", "TAN", "TAP", "TEA", "TEN", "TIN", "TIP", "TOE", "TOP",
	"URN", "USE", "VAN", "VET", "WAR", "WAX", "WEB", "WET", "WIN",
	"YAK", "YAM", "YES", "YET", "ZAP", "ZIP",
	"BEAR", "BIRD", "BOAT", "CAKE", "CARD", "CARE", "CART", "CAST",
	"COAT", "CORN", "DARE", "DART", "DEAR", "DOOR", "EARN", "EAST",
	"FARM", "FAST", "FISH", "GAME", "GATE", "GEAR", "GOAT", "GRIN",
	"HAND", "HEAR", "LAND", "LANE", "LAST", "LINE", "LION", "MOON",
	"NEAR", "NEST", "NOTE", "OPEN", "RAIN", "RATE", "RICE", "RIDE",
	"ROAD", "ROSE", "SAND", "SEAT", "SHIP", "SNOW", "SONG", "STAR",
	"TEAR", "TIDE", "TIME", "TONE", "TRAP", "TREE", "WIND", "WORD",
	"EARNS", "GRAIN", "GRANT", "GREAT", "HEART", "LEARN", "PLANT",
	"RAISE", "SLATE", "STAIR", "STAND", "STARE", "STONE", "TRAIN",
	"GARDEN", "LETTER", "ORANGE", "SILENT", "STRAIN", "STREAM",
	"EARLIER", "GREATER", "JESTING", "LANTERN", "STATION",
}

// FallbackDictionary returns the tiny built-in word set.
func FallbackDictionary() *Dictionary {
	return NewDictionary(fallbackWords)
}

// LoadDictionary fetches and merges one-word-per-line text sources. If
// nothing usable loads, the built-in fallback set is returned so the
// server still runs.
func LoadDictionary(urls []string) *Dictionary {
	client := &http.Client{Timeout: 30 * time.Second}
	var words []string
	for _, url := range urls {
		fetched, err := fetchWordList(client, url)
		if err != nil {
			slog.Error("dictionary source failed", "url", url, "error", err)
			continue
		}
		slog.Info("dictionary source loaded", "url", url, "words", len(fetched))
		words = append(words, fetched...)
	}
	dict := NewDictionary(words)
	if dict.Len() == 0 {
		slog.Warn("no dictionary source available, using fallback word set")
		return FallbackDictionary()
	}
	return dict
}

func fetchWordList(client *http.Client, url string) ([]string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var words []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
