// ABOUTME: Bounded LIFO stack of root references
// ABOUTME: Everything on the stack when the mark phase runs survives the collection

package gc

import "fmt"

// DefaultRootCapacity is the root stack size used when none is configured
const DefaultRootCapacity = 256

// RootStack is a fixed-capacity stack of references. Pushing past capacity
// fails and leaves the contents untouched.
type RootStack[E comparable] struct {
	entries  []E
	capacity int
}

// NewRootStack creates an empty stack. A non-positive capacity selects
// DefaultRootCapacity.
func NewRootStack[E comparable](capacity int) *RootStack[E] {
	if capacity <= 0 {
		capacity = DefaultRootCapacity
	}
	return &RootStack[E]{
		entries:  make([]E, 0, capacity),
		capacity: capacity,
	}
}

// Push appends e on top of the stack
func (s *RootStack[E]) Push(e E) error {
	if len(s.entries) >= s.capacity {
		return fmt.Errorf("%w: capacity %d", ErrRootStackOverflow, s.capacity)
	}
	s.entries = append(s.entries, e)
	return nil
}

// Pop removes and returns the most recently pushed entry
func (s *RootStack[E]) Pop() (E, error) {
	var zero E
	n := len(s.entries)
	if n == 0 {
		return zero, ErrRootStackUnderflow
	}
	e := s.entries[n-1]
	s.entries[n-1] = zero
	s.entries = s.entries[:n-1]
	return e, nil
}

// Peek returns the top entry without removing it
func (s *RootStack[E]) Peek() (E, error) {
	if len(s.entries) == 0 {
		var zero E
		return zero, ErrRootStackUnderflow
	}
	return s.entries[len(s.entries)-1], nil
}

// Remove deletes the most recent entry equal to e, keeping the order of
// everything else
func (s *RootStack[E]) Remove(e E) error {
	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i] != e {
			continue
		}
		copy(s.entries[i:], s.entries[i+1:])
		var zero E
		s.entries[len(s.entries)-1] = zero
		s.entries = s.entries[:len(s.entries)-1]
		return nil
	}
	return ErrNotRooted
}

// Contains reports whether e has at least one entry
func (s *RootStack[E]) Contains(e E) bool {
	for _, v := range s.entries {
		if v == e {
			return true
		}
	}
	return false
}

// ForEach visits entries bottom to top without modifying the stack
func (s *RootStack[E]) ForEach(fn func(E)) {
	for _, e := range s.entries {
		fn(e)
	}
}

// Len returns the number of entries
func (s *RootStack[E]) Len() int { return len(s.entries) }

// Cap returns the fixed capacity
func (s *RootStack[E]) Cap() int { return s.capacity }

// Reset drops every entry
func (s *RootStack[E]) Reset() {
	clear(s.entries)
	s.entries = s.entries[:0]
}
