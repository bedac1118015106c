package srv

import "time"

// GridSize is the fixed number of slots in the shared pool.
const GridSize = 16

const (
	spawnIntervalMin = 500 * time.Millisecond
	spawnIntervalMax = 10000 * time.Millisecond
)

// Grid is the 16-slot shared letter pool. A slot holds a letter or is
// empty (0). Slot identity is its index: a yoinked slot may later be
// refilled with a different letter at the same position.
//
// Grid itself is not synchronized; the owning engine serializes access.
type Grid struct {
	slots [GridSize]rune
}

// TakeAt atomically empties the slot and returns its letter.
// Returns false if the slot was already empty.
func (g *Grid) TakeAt(index int) (rune, bool) {
	if index < 0 || index >= GridSize {
		return 0, false
	}
	l := g.slots[index]
	if l == 0 {
		return 0, false
	}
	g.slots[index] = 0
	return l, true
}

// SetAt fills a slot with a letter.
func (g *Grid) SetAt(index int, l rune) {
	if index < 0 || index >= GridSize {
		return
	}
	g.slots[index] = l
}

// NonEmpty returns the number of filled slots.
func (g *Grid) NonEmpty() int {
	n := 0
	for _, l := range g.slots {
		if l != 0 {
			n++
		}
	}
	return n
}

// EmptySlots returns the indices of all empty slots in ascending order.
func (g *Grid) EmptySlots() []int {
	var empty []int
	for i, l := range g.slots {
		if l == 0 {
			empty = append(empty, i)
		}
	}
	return empty
}

// Reset empties every slot.
func (g *Grid) Reset() {
	g.slots = [GridSize]rune{}
}

// View returns the pool as a 16-element slice of letter strings, with
// nil for empty slots, for inclusion in state projections.
func (g *Grid) View() []any {
	view := make([]any, GridSize)
	for i, l := range g.slots {
		if l != 0 {
			view[i] = string(l)
		}
	}
	return view
}

// spawnInterval returns how long to wait before the next spawn when n
// slots are filled: 500 ms at empty, 10 s at 15/16, linear in between.
// Returns 0 when the grid is full (no spawn is scheduled).
func spawnInterval(n int) time.Duration {
	if n >= GridSize {
		return 0
	}
	if n < 0 {
		n = 0
	}
	span := float64(spawnIntervalMax - spawnIntervalMin)
	return spawnIntervalMin + time.Duration(span*float64(n)/float64(GridSize-1))
}
