// ABOUTME: Managed object representation: life-cycle state plus a typed payload cell
// ABOUTME: One generic cell type per payload type acts as the registry's vtable

package gc

import "reflect"

// State is the life-cycle state of a managed object
type State uint8

const (
	// Fresh objects were not reached by the current mark phase (yet)
	Fresh State = iota
	// Marked objects were reached from the root stack in this cycle
	Marked
	// Reclaimed objects have been destroyed and unlinked
	Reclaimed
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Marked:
		return "marked"
	case Reclaimed:
		return "reclaimed"
	default:
		return "unknown"
	}
}

// Destroyer is implemented by payloads that release resources when reclaimed
type Destroyer interface {
	Destroy()
}

// object is what the registry and mark/sweep see of a managed value
type object interface {
	state() State
	setState(State)
	destroy()
	typeName() string
	size() uint64
}

// cell holds one payload of type T
type cell[T any] struct {
	st         State
	value      T
	destructor func(*T)
}

func newCell[T any](v T, destructor func(*T)) *cell[T] {
	return &cell[T]{st: Fresh, value: v, destructor: destructor}
}

func (c *cell[T]) state() State { return c.st }

func (c *cell[T]) setState(s State) { c.st = s }

// destroy runs the payload destructor at most once and zeroes the payload
func (c *cell[T]) destroy() {
	if c.st == Reclaimed {
		return
	}
	c.st = Reclaimed

	if c.destructor != nil {
		c.destructor(&c.value)
	} else if d, ok := any(&c.value).(Destroyer); ok {
		d.Destroy()
	}

	var zero T
	c.value = zero
}

func (c *cell[T]) typeName() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func (c *cell[T]) size() uint64 {
	return uint64(reflect.TypeOf((*T)(nil)).Elem().Size())
}
