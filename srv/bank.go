package srv

// BankCapacity is the fixed maximum number of letters a player holds.
const BankCapacity = 7

// Bank is a player's ordered sequence of letters. New letters append at
// the tail; removal shifts the remaining letters down while preserving
// relative order. Not synchronized; the owning engine serializes access.
type Bank struct {
	letters []rune
}

// Append adds a letter at the tail. Returns false when the bank is full.
func (b *Bank) Append(l rune) bool {
	if len(b.letters) >= BankCapacity {
		return false
	}
	b.letters = append(b.letters, l)
	return true
}

// Len returns the number of letters held.
func (b *Bank) Len() int {
	return len(b.letters)
}

// Clear empties the bank.
func (b *Bank) Clear() {
	b.letters = b.letters[:0]
}

// View returns the letters as strings in bank order.
func (b *Bank) View() []string {
	view := make([]string, len(b.letters))
	for i, l := range b.letters {
		view[i] = string(l)
	}
	return view
}

// Spells reports whether the letters at the given indices, read in
// selection order, spell the word exactly. Indices must be distinct and
// in range.
func (b *Bank) Spells(word string, indices []int) bool {
	runes := []rune(word)
	if len(runes) != len(indices) {
		return false
	}
	seen := make(map[int]bool, len(indices))
	for i, idx := range indices {
		if idx < 0 || idx >= len(b.letters) || seen[idx] {
			return false
		}
		seen[idx] = true
		if b.letters[idx] != runes[i] {
			return false
		}
	}
	return true
}

// FindIndices reconstructs a set of bank indices that spell the word,
// matching each letter to the first unused bank position. Returns false
// if the bank cannot spell the word.
func (b *Bank) FindIndices(word string) ([]int, bool) {
	runes := []rune(word)
	used := make([]bool, len(b.letters))
	indices := make([]int, 0, len(runes))
	for _, r := range runes {
		found := -1
		for i, l := range b.letters {
			if !used[i] && l == r {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, false
		}
		used[found] = true
		indices = append(indices, found)
	}
	return indices, true
}

// Remove deletes the letters at the given indices. The indices must be
// distinct and in range; returns false (and leaves the bank unchanged)
// otherwise.
func (b *Bank) Remove(indices []int) bool {
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(b.letters) || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	kept := b.letters[:0]
	for i, l := range b.letters {
		if !seen[i] {
			kept = append(kept, l)
		}
	}
	b.letters = kept
	return true
}
