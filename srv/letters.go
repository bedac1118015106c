package srv

import "math/rand/v2"

// letterTiers maps each letter to its point value.
// 10 pts: A D E G I L N O R S T U
// 20 pts: B C F H K M P V W Y
// 30 pts: J Q X Z
var letterTiers = [26]int{
	10, 20, 20, 10, 10, 20, 10, 20, 10, 30, // A-J
	20, 10, 20, 10, 10, 20, 30, 10, 10, 10, // K-T
	10, 20, 20, 30, 20, 30, // U-Z
}

// letterWeights is the spawn weight of each letter. Common letters
// spawn more often; the pool never exhausts.
var letterWeights = [26]int{
	9, 2, 2, 4, 12, 2, 3, 2, 9, 1, // A-J
	1, 4, 2, 6, 8, 2, 1, 6, 4, 6, // K-T
	4, 2, 2, 1, 2, 1, // U-Z
}

var weightTotal = func() int {
	total := 0
	for _, w := range letterWeights {
		total += w
	}
	return total
}()

// LetterPoints returns the point value of a letter, or 0 for anything
// outside A-Z.
func LetterPoints(r rune) int {
	if r < 'A' || r > 'Z' {
		return 0
	}
	return letterTiers[r-'A']
}

// LetterBag produces weighted random letters. Sampling is independent;
// there is no finite bag to exhaust. The PRNG is injected so tests can
// seed it.
type LetterBag struct {
	rng *rand.Rand
}

// NewLetterBag creates a bag drawing from the given source.
func NewLetterBag(rng *rand.Rand) *LetterBag {
	return &LetterBag{rng: rng}
}

// Sample returns one weighted random letter.
func (b *LetterBag) Sample() rune {
	t := b.rng.IntN(weightTotal)
	for i, w := range letterWeights {
		t -= w
		if t < 0 {
			return rune('A' + i)
		}
	}
	return 'E' // unreachable
}
