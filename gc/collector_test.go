// ABOUTME: Tests for allocation, collection, threshold growth and teardown
// ABOUTME: Includes the end-to-end scenarios the collector must satisfy

package gc

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prateek/rootgc/graph"
	"github.com/prateek/rootgc/pool"
)

// destroyLog counts destructor runs per payload
type destroyLog map[string]int

func (d destroyLog) alloc(t *testing.T, c *Collector, name string) *Handle[string] {
	t.Helper()
	h, err := AllocateWith(c, name, func(v *string) { d[*v]++ })
	require.NoError(t, err)
	return h
}

type recordingObserver struct {
	allocations int
	failures    []string
	collections []CollectStats
	depth       int
}

func (o *recordingObserver) ObserveAllocation() { o.allocations++ }
func (o *recordingObserver) ObserveAllocationFailure(reason string) {
	o.failures = append(o.failures, reason)
}
func (o *recordingObserver) ObserveCollection(s CollectStats) {
	o.collections = append(o.collections, s)
}
func (o *recordingObserver) ObserveRootDepth(d int) { o.depth = d }

func TestScenarioUnrootedObjectReclaimed(t *testing.T) {
	c := New(WithAutoCollect(false))
	d := destroyLog{}

	a := d.alloc(t, c, "A")
	b := d.alloc(t, c, "B")
	require.NoError(t, c.Unroot(b))

	stats, err := c.CollectGarbage()
	require.NoError(t, err)

	assert.Equal(t, 1, c.LiveCount())
	assert.Equal(t, 1, stats.Reclaimed)
	assert.Equal(t, "A", a.Value())
	assert.Equal(t, 1, d["B"])
	assert.Zero(t, d["A"])
	assert.False(t, b.Alive())
}

func TestScenarioAllUnrooted(t *testing.T) {
	c := New(WithAutoCollect(false))
	d := destroyLog{}

	var hs []*Handle[string]
	for i := 0; i < 3; i++ {
		hs = append(hs, d.alloc(t, c, fmt.Sprintf("obj-%d", i)))
	}
	for _, h := range hs {
		require.NoError(t, c.Unroot(h))
	}

	stats, err := c.CollectGarbage()
	require.NoError(t, err)
	assert.Equal(t, 0, c.LiveCount())
	assert.Equal(t, 3, stats.Reclaimed)
	assert.Equal(t, 0, stats.Threshold)
	assert.Len(t, d, 3)
}

func TestScenarioRootOverflowRollsBack(t *testing.T) {
	obs := &recordingObserver{}
	c := New(WithRootCapacity(4), WithAutoCollect(false), WithObserver(obs))
	d := destroyLog{}

	for i := 0; i < 4; i++ {
		d.alloc(t, c, fmt.Sprintf("obj-%d", i))
	}
	before := c.Snapshot().GetRoots().IDs

	h, err := AllocateWith(c, "overflow", func(v *string) { d[*v]++ })
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrRootStackOverflow)

	assert.Equal(t, 4, c.RootDepth())
	assert.Equal(t, 4, c.LiveCount(), "failed allocation must not leak an unreachable object")
	assert.Equal(t, 1, d["overflow"])
	assert.Equal(t, before, c.Snapshot().GetRoots().IDs)
	assert.Equal(t, []string{FailureRootOverflow}, obs.failures)
}

func TestScenarioRepeatCollectIsStable(t *testing.T) {
	c := New(WithAutoCollect(false))
	_, err := Allocate(c, 42)
	require.NoError(t, err)

	first, err := c.CollectGarbage()
	require.NoError(t, err)
	assert.Equal(t, 2, first.Threshold)

	second, err := c.CollectGarbage()
	require.NoError(t, err)
	assert.Equal(t, 0, second.Reclaimed)
	assert.Equal(t, first.Threshold, second.Threshold)
	assert.Equal(t, first.Threshold, c.Threshold())
}

func TestScenarioTeardownDestroysRooted(t *testing.T) {
	c := New()
	d := destroyLog{}
	for i := 0; i < 5; i++ {
		d.alloc(t, c, fmt.Sprintf("obj-%d", i))
	}

	stats, err := c.Close()
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Reclaimed)
	assert.Equal(t, 0, c.LiveCount())
	assert.Equal(t, 0, c.RootDepth())
	assert.Len(t, d, 5)
	for name, n := range d {
		assert.Equal(t, 1, n, "destructor for %s", name)
	}

	again, err := c.Close()
	require.NoError(t, err)
	assert.Equal(t, 0, again.Reclaimed)
	for _, n := range d {
		assert.Equal(t, 1, n)
	}
}

func TestAllocateAfterClose(t *testing.T) {
	obs := &recordingObserver{}
	c := New(WithObserver(obs))
	_, err := c.Close()
	require.NoError(t, err)
	assert.True(t, c.Closed())

	_, err = Allocate(c, "late")
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, []string{FailureClosed}, obs.failures)
}

func TestThresholdDoublesLiveCount(t *testing.T) {
	c := New(WithAutoCollect(false))
	assert.Equal(t, DefaultInitialThreshold, c.Threshold())

	var hs []*Handle[int]
	for i := 0; i < 10; i++ {
		h, err := Allocate(c, i)
		require.NoError(t, err)
		hs = append(hs, h)
	}
	for _, h := range hs[:4] {
		require.NoError(t, h.Release())
	}

	stats, err := c.CollectGarbage()
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Live)
	assert.Equal(t, 12, c.Threshold())
	assert.LessOrEqual(t, c.LiveCount(), c.Threshold())
}

func TestAutoCollectAtThreshold(t *testing.T) {
	obs := &recordingObserver{}
	c := New(WithInitialThreshold(4), WithObserver(obs))
	d := destroyLog{}

	for i := 0; i < 4; i++ {
		h := d.alloc(t, c, fmt.Sprintf("tmp-%d", i))
		require.NoError(t, h.Release())
	}
	assert.Equal(t, 4, c.LiveCount())
	assert.Empty(t, obs.collections)

	keep := d.alloc(t, c, "keep")
	require.Len(t, obs.collections, 1)
	assert.Equal(t, 4, obs.collections[0].Reclaimed)
	assert.Equal(t, 1, c.LiveCount())
	assert.Len(t, d, 4)
	assert.True(t, keep.Alive())
}

func TestAutoCollectDisabled(t *testing.T) {
	c := New(WithInitialThreshold(2), WithAutoCollect(false))
	for i := 0; i < 20; i++ {
		h, err := Allocate(c, i)
		require.NoError(t, err)
		require.NoError(t, h.Release())
	}
	assert.Equal(t, 20, c.LiveCount())
}

func TestPoolExhaustionRetriesOnce(t *testing.T) {
	c := New(WithPoolCapacity(2), WithAutoCollect(false))
	d := destroyLog{}

	a := d.alloc(t, c, "a")
	b := d.alloc(t, c, "b")
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())

	h := d.alloc(t, c, "c")
	assert.Equal(t, "c", h.Value())
	assert.Equal(t, 1, c.LiveCount())
	assert.Equal(t, destroyLog{"a": 1, "b": 1}, d)
}

func TestPoolExhaustionFails(t *testing.T) {
	tests := []struct {
		name  string
		retry bool
		free  bool
	}{
		{name: "retry with live set full", retry: true, free: false},
		{name: "no retry", retry: false, free: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := &recordingObserver{}
			c := New(
				WithSlotAllocator(pool.New(1)),
				WithAutoCollect(false),
				WithRetryOnExhaustion(tt.retry),
				WithObserver(obs),
			)
			h, err := Allocate(c, 1)
			require.NoError(t, err)
			if tt.free {
				require.NoError(t, h.Release())
			}

			_, err = Allocate(c, 2)
			assert.ErrorIs(t, err, pool.ErrExhausted)
			assert.Equal(t, []string{FailurePoolExhausted}, obs.failures)
		})
	}
}

func TestRootAndUnroot(t *testing.T) {
	c := New(WithAutoCollect(false))
	h, err := Allocate(c, "pinned")
	require.NoError(t, err)

	require.NoError(t, c.Root(h))
	assert.Equal(t, 2, h.Rooted())
	assert.Equal(t, 2, c.RootDepth())

	require.NoError(t, c.Unroot(h))
	require.NoError(t, c.Unroot(h))
	assert.ErrorIs(t, c.Unroot(h), ErrNotRooted)

	_, err = c.CollectGarbage()
	require.NoError(t, err)
	assert.False(t, h.Alive())
	assert.ErrorIs(t, c.Root(h), ErrReclaimed)
}

func TestRootOverflow(t *testing.T) {
	c := New(WithRootCapacity(1), WithAutoCollect(false))
	h, err := Allocate(c, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, c.Root(h), ErrRootStackOverflow)
	assert.Equal(t, 1, h.Rooted())
	assert.Equal(t, 1, c.RootDepth())
}

func TestForeignHandle(t *testing.T) {
	c1 := New()
	c2 := New()
	h, err := Allocate(c1, 1)
	require.NoError(t, err)

	assert.ErrorIs(t, c2.Root(h), ErrForeignHandle)
	assert.ErrorIs(t, c2.Unroot(h), ErrForeignHandle)
	assert.NotEqual(t, c1.ID(), c2.ID())
}

func TestMarkThenSweep(t *testing.T) {
	c := New(WithAutoCollect(false))
	d := destroyLog{}

	kept := d.alloc(t, c, "kept")
	gone := d.alloc(t, c, "gone")
	require.NoError(t, c.Unroot(gone))

	require.NoError(t, c.Mark())
	obj, ok := c.reg.resolve(kept.ID())
	require.True(t, ok)
	assert.Equal(t, Marked, obj.state())
	obj, ok = c.reg.resolve(gone.ID())
	require.True(t, ok)
	assert.Equal(t, Fresh, obj.state())

	reclaimed, err := c.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, reclaimed)
	assert.Equal(t, 1, d["gone"])

	obj, ok = c.reg.resolve(kept.ID())
	require.True(t, ok)
	assert.Equal(t, Fresh, obj.state())
	assert.Equal(t, DefaultInitialThreshold, c.Threshold())
}

func TestDestructorCannotReenterCollector(t *testing.T) {
	c := New(WithAutoCollect(false))
	obs := &recordingObserver{}
	c.observer = obs

	kept, err := Allocate(c, 0)
	require.NoError(t, err)

	var allocErr, collectErr, closeErr, rootErr, unrootErr, markErr, sweepErr error
	outer, err := AllocateWith(c, 1, func(*int) {
		_, allocErr = Allocate(c, 2)
		_, collectErr = c.CollectGarbage()
		_, closeErr = c.Close()
		rootErr = c.Root(kept)
		unrootErr = c.Unroot(kept)
		markErr = c.Mark()
		_, sweepErr = c.Sweep()
	})
	require.NoError(t, err)
	require.NoError(t, c.Unroot(outer))

	stats, err := c.CollectGarbage()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Reclaimed)
	assert.Equal(t, 1, stats.Live)

	for name, err := range map[string]error{
		"allocate": allocErr, "collect": collectErr, "close": closeErr,
		"root": rootErr, "unroot": unrootErr, "mark": markErr, "sweep": sweepErr,
	} {
		assert.ErrorIs(t, err, ErrCollecting, name)
	}
	assert.Equal(t, []string{FailureCollecting}, obs.failures)

	var linked int
	c.reg.forEach(func(graph.ObjID, object) { linked++ })
	assert.Equal(t, c.LiveCount(), linked)
	assert.Equal(t, 1, kept.Rooted())
	assert.False(t, c.Closed())

	_, err = Allocate(c, 3)
	require.NoError(t, err)
	stats, err = c.Close()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Reclaimed)
	assert.Zero(t, c.LiveCount())
}

func TestMarkStaleRootIsInconsistent(t *testing.T) {
	c := New(WithAutoCollect(false))
	require.NoError(t, c.roots.Push(graph.MakeObjID(3, 0)))

	_, err := c.CollectGarbage()
	var ie *InconsistencyError
	require.True(t, errors.As(err, &ie), "got %v", err)
	assert.Equal(t, "mark", ie.Op)
	assert.Equal(t, 3, ie.Slot)
}

func TestSnapshotAndExplain(t *testing.T) {
	c := New(WithAutoCollect(false))
	s, err := Allocate(c, "hello")
	require.NoError(t, err)
	n, err := Allocate(c, int64(7))
	require.NoError(t, err)
	require.NoError(t, c.Root(s))
	require.NoError(t, c.Unroot(n))

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.NumObjects())
	assert.Equal(t, []graph.ObjID{s.ID()}, snap.GetRoots().IDs)

	obj := snap.GetObject(n.ID())
	require.NotNil(t, obj)
	assert.Equal(t, "int64", obj.Type)
	assert.Equal(t, uint64(8), obj.Size)
	assert.Empty(t, obj.Ptrs)

	assert.Equal(t, []graph.Path{{IDs: []graph.ObjID{s.ID()}}}, c.Explain(s))
	assert.Empty(t, c.Explain(n))
	assert.Equal(t, []graph.ObjID{n.ID()}, graph.Unreachable(snap))
}

func TestCollectLogs(t *testing.T) {
	var buf bytes.Buffer
	c := New(WithLogger(zerolog.New(&buf)), WithAutoCollect(false))
	h, err := Allocate(c, 1)
	require.NoError(t, err)
	require.NoError(t, h.Release())

	_, err = c.CollectGarbage()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"message":"collected"`)
	assert.Contains(t, out, `"reclaimed":1`)
	assert.Contains(t, out, `"collector":"`+c.ID().String()+`"`)
}

func TestObserverSeesAllocationsAndCollections(t *testing.T) {
	obs := &recordingObserver{}
	c := New(WithObserver(obs), WithAutoCollect(false))
	for i := 0; i < 3; i++ {
		_, err := Allocate(c, i)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, obs.allocations)
	assert.Equal(t, 3, obs.depth)

	_, err := c.Close()
	require.NoError(t, err)
	require.Len(t, obs.collections, 1)
	assert.Equal(t, 3, obs.collections[0].Reclaimed)
	assert.Equal(t, 0, obs.depth)
}
