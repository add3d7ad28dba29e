// ABOUTME: Scoped handles giving typed access to managed objects
// ABOUTME: Release ends a handle's lifetime; reclamation waits for the next sweep

package gc

import (
	"fmt"

	"github.com/prateek/rootgc/graph"
)

// Ref is any handle, regardless of payload type
type Ref interface {
	ID() graph.ObjID
	handle() *handleState
}

type handleState struct {
	c        *Collector
	id       graph.ObjID
	obj      object
	rooted   int // root stack entries owned by this handle
	released bool
}

// Handle is a typed, non-owning reference to a managed object. It owns the
// root entry pushed by the allocation plus any added through Collector.Root.
type Handle[T any] struct {
	handleState
	cell *cell[T]
}

func (h *Handle[T]) handle() *handleState { return &h.handleState }

// ID returns the object's snapshot ID
func (h *Handle[T]) ID() graph.ObjID { return h.id }

// Get returns a pointer to the payload. It panics if the object has been
// reclaimed; the pointer must not be kept past the next collection.
func (h *Handle[T]) Get() *T {
	if h.cell.st == Reclaimed {
		panic(fmt.Errorf("get %s: %w", h.id, ErrReclaimed))
	}
	return &h.cell.value
}

// Value returns a copy of the payload
func (h *Handle[T]) Value() T {
	return *h.Get()
}

// Set replaces the payload
func (h *Handle[T]) Set(v T) {
	*h.Get() = v
}

// Alive reports whether the object has not been reclaimed yet
func (h *Handle[T]) Alive() bool {
	return h.cell.st != Reclaimed
}

// Rooted returns the number of root entries the handle still owns
func (h *Handle[T]) Rooted() int {
	return h.rooted
}

// Released reports whether Release has been called
func (h *Handle[T]) Released() bool {
	return h.released
}

// Release drops every root entry the handle owns so the next collection can
// reclaim the object. The payload is not destroyed here. Releasing twice is
// a no-op. If an entry cannot be removed the handle stays unreleased and
// Release may be retried.
func (h *Handle[T]) Release() error {
	if h.released {
		return nil
	}

	if h.cell.st != Reclaimed {
		for h.rooted > 0 {
			if err := h.c.Unroot(h); err != nil {
				return err
			}
		}
	}
	h.rooted = 0
	h.released = true
	return nil
}
