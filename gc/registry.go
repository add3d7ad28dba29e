// ABOUTME: Intrusive registry of every live managed object, newest first
// ABOUTME: Objects live in an arena of slots chained through next indices

package gc

import (
	"github.com/prateek/rootgc/graph"
)

const nilSlot = -1

// SlotAllocator hands out arena slot indices. *pool.Pool implements it.
type SlotAllocator interface {
	Allocate() (int, error)
	Deallocate(slot int) error
}

type slot struct {
	obj  object // nil while the slot is free
	next int
	gen  uint32
}

// registry owns every managed object from link until sweep unlinks it
type registry struct {
	slots []slot
	head  int
	live  int
	alloc SlotAllocator
}

func newRegistry(alloc SlotAllocator) *registry {
	return &registry{head: nilSlot, alloc: alloc}
}

// link prepends obj to the chain and returns its ID
func (r *registry) link(obj object) (graph.ObjID, error) {
	idx, err := r.alloc.Allocate()
	if err != nil {
		return 0, err
	}
	for idx >= len(r.slots) {
		r.slots = append(r.slots, slot{next: nilSlot})
	}

	s := &r.slots[idx]
	if s.obj != nil {
		ierr := &InconsistencyError{Op: "link", Slot: idx, State: s.obj.state()}
		if err := r.alloc.Deallocate(idx); err != nil {
			ierr.Err = err
		}
		return 0, ierr
	}

	s.obj = obj
	s.next = r.head
	r.head = idx
	r.live++
	return graph.MakeObjID(idx, s.gen), nil
}

// resolve returns the object an ID refers to, if it is still linked
func (r *registry) resolve(id graph.ObjID) (object, bool) {
	idx := id.Slot()
	if idx < 0 || idx >= len(r.slots) {
		return nil, false
	}
	s := &r.slots[idx]
	if s.obj == nil || s.gen != id.Generation() {
		return nil, false
	}
	return s.obj, true
}

// forEach walks the chain head to tail
func (r *registry) forEach(fn func(graph.ObjID, object)) {
	for i := r.head; i != nilSlot; i = r.slots[i].next {
		s := &r.slots[i]
		fn(graph.MakeObjID(i, s.gen), s.obj)
	}
}

// sweep makes one pass over the chain: marked objects are reset to Fresh,
// fresh ones are destroyed and unlinked. It stops at the first linked
// object that is already Reclaimed.
func (r *registry) sweep() (int, error) {
	reclaimed := 0
	prev := nilSlot
	cur := r.head

	for cur != nilSlot {
		s := &r.slots[cur]
		next := s.next

		switch st := s.obj.state(); st {
		case Marked:
			s.obj.setState(Fresh)
			prev = cur
		case Fresh:
			s.obj.destroy()
			if prev == nilSlot {
				r.head = next
			} else {
				r.slots[prev].next = next
			}
			if err := r.release(cur); err != nil {
				return reclaimed, err
			}
			reclaimed++
		default:
			return reclaimed, &InconsistencyError{Op: "sweep", Slot: cur, State: st}
		}

		cur = next
	}

	return reclaimed, nil
}

// unlinkHead destroys and removes the newest object. Used to roll back an
// allocation whose root push failed.
func (r *registry) unlinkHead(id graph.ObjID) error {
	idx := id.Slot()
	if r.head != idx {
		return &InconsistencyError{Op: "release", Slot: idx, State: Fresh}
	}
	s := &r.slots[idx]
	s.obj.destroy()
	r.head = s.next
	return r.release(idx)
}

// release frees an already unlinked slot and bumps its generation
func (r *registry) release(idx int) error {
	s := &r.slots[idx]
	s.obj = nil
	s.next = nilSlot
	s.gen++
	r.live--
	if err := r.alloc.Deallocate(idx); err != nil {
		return &InconsistencyError{Op: "release", Slot: idx, State: Reclaimed, Err: err}
	}
	return nil
}
