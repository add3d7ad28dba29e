// ABOUTME: Fixed-capacity slot pool handing out integer slot indices
// ABOUTME: Free slots live in a btree so the lowest free index is always reused first

// Package pool provides a slot allocator for arena-backed storage. A Pool
// hands out integer indices instead of pointers; callers keep the backing
// slice and use the index to address it. A capacity of zero makes the pool
// unbounded.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"
)

var (
	// ErrExhausted is returned when every slot of a bounded pool is in use
	ErrExhausted = errors.New("pool exhausted")

	// ErrInvalidSlot is returned when deallocating an index the pool never handed out
	ErrInvalidSlot = errors.New("invalid slot")

	// ErrDoubleFree is returned when deallocating a slot that is already free
	ErrDoubleFree = errors.New("slot already free")
)

// Pool allocates slot indices in the range [0, capacity)
type Pool struct {
	mu       sync.Mutex
	capacity int
	high     int // next never-used index
	inUse    int
	free     *btree.BTreeG[int]
}

// New creates a pool with the given capacity. Zero means unbounded.
func New(capacity int) *Pool {
	if capacity < 0 {
		capacity = 0
	}
	return &Pool{
		capacity: capacity,
		free:     btree.NewG(32, func(a, b int) bool { return a < b }),
	}
}

// Allocate returns a free slot index, preferring the lowest released one
func (p *Pool) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot, ok := p.free.DeleteMin(); ok {
		p.inUse++
		return slot, nil
	}

	if p.capacity > 0 && p.high >= p.capacity {
		return -1, fmt.Errorf("%w: %d of %d slots in use", ErrExhausted, p.inUse, p.capacity)
	}

	slot := p.high
	p.high++
	p.inUse++
	return slot, nil
}

// Deallocate returns a slot to the pool
func (p *Pool) Deallocate(slot int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if slot < 0 || slot >= p.high {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
	}
	if p.free.Has(slot) {
		return fmt.Errorf("%w: %d", ErrDoubleFree, slot)
	}

	p.free.ReplaceOrInsert(slot)
	p.inUse--
	return nil
}

// InUse returns the number of allocated slots
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// Cap returns the configured capacity (0 for unbounded)
func (p *Pool) Cap() int {
	return p.capacity
}

// Available returns how many more slots can be allocated, or -1 when unbounded
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.capacity == 0 {
		return -1
	}
	return p.capacity - p.inUse
}
