// ABOUTME: Reachability closure over a heap snapshot
// ABOUTME: Computes which objects a collection would keep and which it would reclaim

package graph

import "sort"

// Reachable returns the set of objects reachable from the roots, following
// Ptrs. Roots that are not present in the graph are ignored.
func Reachable(g Graph) map[ObjID]bool {
	marked := make(map[ObjID]bool)
	var stack []ObjID

	for _, id := range g.GetRoots().IDs {
		if g.GetObject(id) == nil || marked[id] {
			continue
		}
		marked[id] = true
		stack = append(stack, id)
	}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, ptr := range g.GetObject(id).Ptrs {
			if marked[ptr] || g.GetObject(ptr) == nil {
				continue
			}
			marked[ptr] = true
			stack = append(stack, ptr)
		}
	}

	return marked
}

// Unreachable returns, in ascending order, the objects no root reaches
func Unreachable(g Graph) []ObjID {
	live := Reachable(g)
	var garbage []ObjID
	g.ForEachObject(func(obj *Object) {
		if !live[obj.ID] {
			garbage = append(garbage, obj.ID)
		}
	})
	sort.Slice(garbage, func(i, j int) bool { return garbage[i] < garbage[j] })
	return garbage
}

// TypeStats aggregates objects of one payload type
type TypeStats struct {
	Count int
	Bytes uint64
}

// Summary describes a snapshot at a glance
type Summary struct {
	Objects          int
	Roots            int
	Bytes            uint64
	ReachableObjects int
	ReachableBytes   uint64
	ByType           map[string]TypeStats
}

// Summarize totals a snapshot by reachability and payload type
func Summarize(g Graph) Summary {
	live := Reachable(g)
	s := Summary{
		Roots:  len(g.GetRoots().IDs),
		ByType: make(map[string]TypeStats),
	}

	g.ForEachObject(func(obj *Object) {
		s.Objects++
		s.Bytes += obj.Size
		if live[obj.ID] {
			s.ReachableObjects++
			s.ReachableBytes += obj.Size
		}
		ts := s.ByType[obj.Type]
		ts.Count++
		ts.Bytes += obj.Size
		s.ByType[obj.Type] = ts
	})

	return s
}
