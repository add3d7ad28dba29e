// ABOUTME: Graph interface and in-memory implementation
// ABOUTME: Holds a point-in-time view of the managed heap and its roots

package graph

import (
	"sort"
	"sync"
)

// Graph is a snapshot of managed objects and the roots that keep them alive
type Graph interface {
	// AddObject adds an object, replacing any object with the same ID
	AddObject(obj *Object)

	// GetObject retrieves an object by ID, nil if absent
	GetObject(id ObjID) *Object

	// NumObjects returns the total number of objects
	NumObjects() int

	// ForEachObject visits every object in ascending ID order
	ForEachObject(fn func(*Object))

	// SetRoots replaces the root set
	SetRoots(roots Roots)

	// GetRoots returns the root set
	GetRoots() Roots
}

// MemGraph is an in-memory implementation of Graph
type MemGraph struct {
	mu      sync.RWMutex
	objects map[ObjID]*Object
	roots   Roots
}

// NewMemGraph creates an empty in-memory graph
func NewMemGraph() *MemGraph {
	return &MemGraph{
		objects: make(map[ObjID]*Object),
	}
}

// AddObject adds an object to the graph
func (g *MemGraph) AddObject(obj *Object) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[obj.ID] = obj
}

// GetObject retrieves an object by ID
func (g *MemGraph) GetObject(id ObjID) *Object {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.objects[id]
}

// NumObjects returns the total number of objects
func (g *MemGraph) NumObjects() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.objects)
}

// IDs returns every object ID in ascending order
func (g *MemGraph) IDs() []ObjID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sortedIDs()
}

func (g *MemGraph) sortedIDs() []ObjID {
	ids := make([]ObjID, 0, len(g.objects))
	for id := range g.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ForEachObject iterates over all objects in ID order
func (g *MemGraph) ForEachObject(fn func(*Object)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, id := range g.sortedIDs() {
		fn(g.objects[id])
	}
}

// SetRoots sets the root set
func (g *MemGraph) SetRoots(roots Roots) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roots = roots
}

// GetRoots returns the root set
func (g *MemGraph) GetRoots() Roots {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.roots
}
