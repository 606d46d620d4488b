package arena

import (
	"iter"
	"math"
)

// Ref identifies a value stored in an Arena.
type Ref struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool { return r == Ref{} }

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// Arena is a generation-checked slot map.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

// New returns an empty arena with room for capacity values.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{slots: make([]slot[T], 0, capacity)}
}

// Insert stores v and returns its reference.
func (a *Arena[T]) Insert(v T) Ref {
	a.live++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.live = true
		s.val = v
		return Ref{Index: idx, Gen: s.gen}
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	return Ref{Index: uint32(len(a.slots) - 1), Gen: 1} //nolint:gosec // slot count bounded by memory
}

// Get returns the value for r if it is still live.
func (a *Arena[T]) Get(r Ref) (T, bool) {
	if s := a.slot(r); s != nil {
		return s.val, true
	}
	var zero T
	return zero, false
}

// Stale reports whether r once named a value that has since been removed.
func (a *Arena[T]) Stale(r Ref) bool {
	if r.Gen == 0 || int(r.Index) >= len(a.slots) {
		return false
	}
	s := &a.slots[r.Index]
	return r.Gen < s.gen || (r.Gen == s.gen && !s.live)
}

// Contains reports whether r resolves.
func (a *Arena[T]) Contains(r Ref) bool { return a.slot(r) != nil }

// Set replaces the value for a live r.
func (a *Arena[T]) Set(r Ref, v T) bool {
	s := a.slot(r)
	if s == nil {
		return false
	}
	s.val = v
	return true
}

// Remove deletes the value for r and returns it.
func (a *Arena[T]) Remove(r Ref) (T, bool) {
	s := a.slot(r)
	var zero T
	if s == nil {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.live = false
	a.live--
	if s.gen < math.MaxUint32 {
		a.free = append(a.free, r.Index)
	}
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.live }

// All iterates live values in slot order.
func (a *Arena[T]) All() iter.Seq2[Ref, T] {
	return func(yield func(Ref, T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.live {
				continue
			}
			if !yield(Ref{Index: uint32(i), Gen: s.gen}, s.val) { //nolint:gosec // see Insert
				return
			}
		}
	}
}

// Clone copies the arena, mapping every live value through fn. References
// valid in a stay valid in the copy.
func (a *Arena[T]) Clone(fn func(T) T) *Arena[T] {
	out := &Arena[T]{
		slots: make([]slot[T], len(a.slots)),
		free:  append([]uint32(nil), a.free...),
		live:  a.live,
	}
	for i, s := range a.slots {
		out.slots[i] = slot[T]{gen: s.gen, live: s.live}
		if s.live {
			out.slots[i].val = fn(s.val)
		}
	}
	return out
}

func (a *Arena[T]) slot(r Ref) *slot[T] {
	if int(r.Index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[r.Index]
	if !s.live || s.gen != r.Gen {
		return nil
	}
	return s
}
