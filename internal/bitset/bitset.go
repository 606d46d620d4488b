package bitset

import (
	"math/bits"
	"sync/atomic"
)

// BitSet is a fixed-length bit vector.
type BitSet struct {
	words []atomic.Uint64
	n     int
}

// New creates a BitSet holding n bits, all cleared.
func New(n int) *BitSet {
	if n < 0 {
		n = 0
	}
	return &BitSet{
		words: make([]atomic.Uint64, (n+63)/64),
		n:     n,
	}
}

// Len returns the number of addressable bits.
func (b *BitSet) Len() int {
	return b.n
}

// Set sets bit i. Out-of-range indices are ignored.
func (b *BitSet) Set(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.words[i>>6].Or(uint64(1) << (uint(i) & 63))
}

// Unset clears bit i. Out-of-range indices are ignored.
func (b *BitSet) Unset(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.words[i>>6].And(^(uint64(1) << (uint(i) & 63)))
}

// Put sets or clears bit i.
func (b *BitSet) Put(i int, v bool) {
	if v {
		b.Set(i)
	} else {
		b.Unset(i)
	}
}

// Test reports whether bit i is set.
func (b *BitSet) Test(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.words[i>>6].Load()&(uint64(1)<<(uint(i)&63)) != 0
}

// SetAll sets or clears every bit.
func (b *BitSet) SetAll(v bool) {
	var w uint64
	if v {
		w = ^uint64(0)
	}
	for i := range b.words {
		b.words[i].Store(w)
	}
	b.clearTail()
}

// Count returns the number of set bits.
func (b *BitSet) Count() int {
	c := 0
	for i := range b.words {
		c += bits.OnesCount64(b.words[i].Load())
	}
	return c
}

// Resize returns a copy holding n bits. Bits below min(n, Len()) are kept,
// new bits are cleared.
func (b *BitSet) Resize(n int) *BitSet {
	nb := New(n)
	limit := min(len(nb.words), len(b.words))
	for i := 0; i < limit; i++ {
		nb.words[i].Store(b.words[i].Load())
	}
	nb.clearTail()
	return nb
}

// Clone returns an independent copy.
func (b *BitSet) Clone() *BitSet {
	return b.Resize(b.n)
}

// clearTail keeps bits past n zero so Count stays exact.
func (b *BitSet) clearTail() {
	if b.n%64 == 0 || len(b.words) == 0 {
		return
	}
	last := len(b.words) - 1
	mask := uint64(1)<<(uint(b.n)%64) - 1
	b.words[last].And(mask)
}
