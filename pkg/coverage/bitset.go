// Package coverage tracks which universe elements have appeared in at least
// one accepted path, using fixed-size bitsets with a running popcount so
// percentage queries stay O(1) on multi-million-element universes.
package coverage

// Bitset is a fixed-size bit array with an incrementally maintained set-bit
// count. Not safe for concurrent use; a tracker is owned by one run.
type Bitset struct {
	words []uint64
	size  int
	count int
}

// NewBitset creates a bitset of the given size with all bits clear.
func NewBitset(size int) *Bitset {
	return &Bitset{
		words: make([]uint64, (size+63)/64),
		size:  size,
	}
}

// Set sets bit i and reports whether it was previously clear.
func (b *Bitset) Set(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	word, mask := i>>6, uint64(1)<<(uint(i)&63)
	if b.words[word]&mask != 0 {
		return false
	}
	b.words[word] |= mask
	b.count++
	return true
}

// Test reports whether bit i is set.
func (b *Bitset) Test(i int) bool {
	if i < 0 || i >= b.size {
		return false
	}
	return b.words[i>>6]&(uint64(1)<<(uint(i)&63)) != 0
}

// Count returns the number of set bits. O(1) via the running counter.
func (b *Bitset) Count() int { return b.count }

// Size returns the total number of bits.
func (b *Bitset) Size() int { return b.size }

// Fraction returns count/size in [0,1]. An empty bitset counts as fully
// covered so a dimension with no elements never blocks a coverage target.
func (b *Bitset) Fraction() float64 {
	if b.size == 0 {
		return 1.0
	}
	return float64(b.count) / float64(b.size)
}
