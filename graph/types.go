// ABOUTME: Core data types for the managed heap snapshot graph
// ABOUTME: Defines Object, ObjID, and Roots structures

package graph

import "fmt"

// ObjID identifies a managed object in a snapshot. Zero is never a valid ID.
type ObjID uint64

// String renders the ID as slot/generation, the way the collector packs it
func (id ObjID) String() string {
	return fmt.Sprintf("%d/%d", id.Slot(), id.Generation())
}

// Slot returns the arena slot encoded in the ID
func (id ObjID) Slot() int {
	return int(uint32(id)) - 1
}

// Generation returns the slot generation encoded in the ID
func (id ObjID) Generation() uint32 {
	return uint32(id >> 32)
}

// MakeObjID packs an arena slot and its generation into an ObjID
func MakeObjID(slot int, generation uint32) ObjID {
	return ObjID(uint64(generation)<<32 | uint64(uint32(slot+1)))
}

// Object is one managed object as seen by a snapshot
type Object struct {
	ID   ObjID   // Slot and generation
	Type string  // Payload type name (e.g. "string", "main.Buffer")
	Size uint64  // Payload size in bytes
	Ptrs []ObjID // Outgoing references to other managed objects
}

// Roots is the root set of a snapshot, in root stack order
type Roots struct {
	IDs []ObjID
}
