// ABOUTME: Collector orchestrating allocation, mark, sweep and threshold growth
// ABOUTME: Single-threaded; a collection is a synchronous stop-the-world pass

package gc

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prateek/rootgc/graph"
	"github.com/prateek/rootgc/pool"
)

// Collector owns every managed object it allocates. It is not safe for
// concurrent use.
type Collector struct {
	id    uuid.UUID
	reg   *registry
	roots *RootStack[graph.ObjID]

	threshold         int
	initialThreshold  int
	autoCollect       bool
	retryOnExhaustion bool
	closed            bool
	collecting        bool

	log      zerolog.Logger
	observer Observer
}

// New creates a collector with an empty registry and root stack
func New(opts ...Option) *Collector {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.alloc == nil {
		o.alloc = pool.New(0)
	}

	id := uuid.New()
	return &Collector{
		id:                id,
		reg:               newRegistry(o.alloc),
		roots:             NewRootStack[graph.ObjID](o.rootCapacity),
		threshold:         o.initialThreshold,
		initialThreshold:  o.initialThreshold,
		autoCollect:       o.autoCollect,
		retryOnExhaustion: o.retryOnExhaustion,
		log:               o.logger.With().Str("collector", id.String()).Logger(),
		observer:          o.observer,
	}
}

// ID returns the collector's instance id, as used in log lines
func (c *Collector) ID() uuid.UUID { return c.id }

// LiveCount returns the number of objects not yet reclaimed
func (c *Collector) LiveCount() int { return c.reg.live }

// Threshold returns the current collection threshold
func (c *Collector) Threshold() int { return c.threshold }

// RootDepth returns the number of root stack entries
func (c *Collector) RootDepth() int { return c.roots.Len() }

// RootCapacity returns the root stack capacity
func (c *Collector) RootCapacity() int { return c.roots.Cap() }

// Closed reports whether Close has completed
func (c *Collector) Closed() bool { return c.closed }

// Allocate stores v as a new managed object, roots it and returns a handle
func Allocate[T any](c *Collector, v T) (*Handle[T], error) {
	return AllocateWith(c, v, nil)
}

// AllocateWith is Allocate with a destructor that runs exactly once when the
// object is reclaimed. A nil destructor falls back to Destroyer.
func AllocateWith[T any](c *Collector, v T, destructor func(*T)) (*Handle[T], error) {
	cl := newCell(v, destructor)
	id, err := c.allocate(cl)
	if err != nil {
		return nil, err
	}
	return &Handle[T]{
		handleState: handleState{c: c, id: id, obj: cl, rooted: 1},
		cell:        cl,
	}, nil
}

func (c *Collector) allocate(obj object) (graph.ObjID, error) {
	if c.closed {
		c.observer.ObserveAllocationFailure(FailureClosed)
		return 0, ErrClosed
	}
	if c.collecting {
		c.observer.ObserveAllocationFailure(FailureCollecting)
		return 0, ErrCollecting
	}

	if c.autoCollect && c.reg.live+1 > max(c.threshold, c.initialThreshold) {
		if _, err := c.CollectGarbage(); err != nil {
			return 0, err
		}
	}

	id, err := c.reg.link(obj)
	if errors.Is(err, pool.ErrExhausted) && c.retryOnExhaustion {
		c.log.Debug().Int("live", c.reg.live).Msg("slot pool exhausted, collecting before retry")
		if _, cerr := c.CollectGarbage(); cerr != nil {
			return 0, cerr
		}
		id, err = c.reg.link(obj)
	}
	if err != nil {
		if errors.Is(err, pool.ErrExhausted) {
			c.observer.ObserveAllocationFailure(FailurePoolExhausted)
		}
		return 0, fmt.Errorf("allocate %s: %w", obj.typeName(), err)
	}

	if err := c.roots.Push(id); err != nil {
		if rerr := c.reg.unlinkHead(id); rerr != nil {
			return 0, errors.Join(err, rerr)
		}
		c.observer.ObserveAllocationFailure(FailureRootOverflow)
		return 0, fmt.Errorf("allocate %s: %w", obj.typeName(), err)
	}

	c.observer.ObserveAllocation()
	c.observer.ObserveRootDepth(c.roots.Len())
	return id, nil
}

// Root adds another root entry for the handle's object
func (c *Collector) Root(r Ref) error {
	h, err := c.own(r)
	if err != nil {
		return err
	}
	if c.collecting {
		return ErrCollecting
	}
	if h.released {
		return ErrReleased
	}
	if h.obj.state() == Reclaimed {
		return fmt.Errorf("root %s: %w", h.id, ErrReclaimed)
	}
	if err := c.roots.Push(h.id); err != nil {
		return fmt.Errorf("root %s: %w", h.id, err)
	}
	h.rooted++
	c.observer.ObserveRootDepth(c.roots.Len())
	return nil
}

// Unroot removes the most recent root entry for the handle's object. The
// object becomes collectible once no entries remain.
func (c *Collector) Unroot(r Ref) error {
	h, err := c.own(r)
	if err != nil {
		return err
	}
	if c.collecting {
		return ErrCollecting
	}
	if h.obj.state() == Reclaimed {
		return fmt.Errorf("unroot %s: %w", h.id, ErrReclaimed)
	}
	if h.rooted == 0 {
		return fmt.Errorf("unroot %s: %w", h.id, ErrNotRooted)
	}
	if err := c.roots.Remove(h.id); err != nil {
		return &InconsistencyError{Op: "unroot", Slot: h.id.Slot(), State: h.obj.state(), Err: err}
	}
	h.rooted--
	c.observer.ObserveRootDepth(c.roots.Len())
	return nil
}

func (c *Collector) own(r Ref) (*handleState, error) {
	h := r.handle()
	if h.c != c {
		return nil, ErrForeignHandle
	}
	return h, nil
}

// Mark flags every object referenced from the root stack. A root entry
// whose object is gone is a bookkeeping bug.
func (c *Collector) Mark() error {
	if c.collecting {
		return ErrCollecting
	}
	return c.mark()
}

func (c *Collector) mark() error {
	var err error
	c.roots.ForEach(func(id graph.ObjID) {
		if err != nil {
			return
		}
		obj, ok := c.reg.resolve(id)
		if !ok {
			err = &InconsistencyError{Op: "mark", Slot: id.Slot(), State: Reclaimed}
			return
		}
		if obj.state() != Reclaimed {
			obj.setState(Marked)
		}
	})
	return err
}

// Sweep reclaims every object Mark did not reach and clears the marks on
// the survivors. It does not adjust the threshold.
func (c *Collector) Sweep() (int, error) {
	if c.collecting {
		return 0, ErrCollecting
	}
	c.collecting = true
	defer func() { c.collecting = false }()

	return c.reg.sweep()
}

// CollectGarbage runs a full mark and sweep, then sets the threshold to
// twice the number of survivors
func (c *Collector) CollectGarbage() (CollectStats, error) {
	if c.collecting {
		return CollectStats{}, ErrCollecting
	}
	c.collecting = true
	defer func() { c.collecting = false }()

	start := time.Now()

	if err := c.mark(); err != nil {
		c.log.Error().Err(err).Msg("mark failed")
		return CollectStats{}, err
	}
	reclaimed, err := c.reg.sweep()
	if err != nil {
		c.log.Error().Err(err).Int("reclaimed", reclaimed).Msg("sweep failed")
		return CollectStats{Reclaimed: reclaimed, Live: c.reg.live, Threshold: c.threshold}, err
	}

	c.threshold = c.reg.live * 2

	stats := CollectStats{
		Reclaimed: reclaimed,
		Live:      c.reg.live,
		Threshold: c.threshold,
		Duration:  time.Since(start),
	}
	c.log.Debug().
		Int("reclaimed", stats.Reclaimed).
		Int("live", stats.Live).
		Int("threshold", stats.Threshold).
		Dur("duration", stats.Duration).
		Msg("collected")
	c.observer.ObserveCollection(stats)

	return stats, nil
}

// Close clears the root stack and runs a final collection, destroying every
// remaining object. Allocation fails with ErrClosed afterwards. Calling
// Close again is a no-op.
func (c *Collector) Close() (CollectStats, error) {
	if c.closed {
		return CollectStats{Live: c.reg.live, Threshold: c.threshold}, nil
	}
	if c.collecting {
		return CollectStats{}, ErrCollecting
	}

	c.roots.Reset()
	c.observer.ObserveRootDepth(0)

	stats, err := c.CollectGarbage()
	if err != nil {
		return stats, fmt.Errorf("close: %w", err)
	}
	c.closed = true

	c.log.Info().Int("reclaimed", stats.Reclaimed).Msg("collector closed")
	return stats, nil
}

// Snapshot captures the registry and root stack as a graph. Objects carry
// no pointers since managed values are leaves.
func (c *Collector) Snapshot() *graph.MemGraph {
	g := graph.NewMemGraph()
	c.reg.forEach(func(id graph.ObjID, obj object) {
		g.AddObject(&graph.Object{
			ID:   id,
			Type: obj.typeName(),
			Size: obj.size(),
		})
	})

	seen := make(map[graph.ObjID]bool)
	roots := graph.Roots{IDs: []graph.ObjID{}}
	c.roots.ForEach(func(id graph.ObjID) {
		if !seen[id] {
			seen[id] = true
			roots.IDs = append(roots.IDs, id)
		}
	})
	g.SetRoots(roots)

	return g
}

// Explain returns the paths that keep the handle's object alive. An empty
// result means the next collection will reclaim it. Managed objects carry
// no pointers, so a rooted object yields the single path holding only its
// own ID.
func (c *Collector) Explain(r Ref) []graph.Path {
	if !c.roots.Contains(r.ID()) {
		return nil
	}
	snap := c.Snapshot()
	return graph.PathsToRoots(snap, r.ID(), max(1, len(snap.GetRoots().IDs)))
}
