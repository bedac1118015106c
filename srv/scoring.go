package srv

import (
	"math"
	"strings"
)

// roundMultipliers is the fixed per-round score multiplier table.
// Games longer than three rounds keep using the last entry.
var roundMultipliers = []float64{1.0, 1.2, 1.5}

// MultiplierForRound returns the score multiplier for a 1-based round.
func MultiplierForRound(round int) float64 {
	if round < 1 {
		return roundMultipliers[0]
	}
	if round > len(roundMultipliers) {
		return roundMultipliers[len(roundMultipliers)-1]
	}
	return roundMultipliers[round-1]
}

// ScoreWord computes the score of a word at the given round multiplier:
//
//	round(sum(letterPoints) * (1 + 0.20*len) * multiplier)
//
// rounded half away from zero. Case-insensitive; only A-Z letters count.
func ScoreWord(word string, multiplier float64) int {
	sum := 0
	n := 0
	for _, r := range strings.ToUpper(word) {
		if p := LetterPoints(r); p > 0 {
			sum += p
			n++
		}
	}
	raw := float64(sum) * (1 + 0.20*float64(n)) * multiplier
	return int(math.Round(raw))
}
