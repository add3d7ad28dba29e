// ABOUTME: Package documentation for the root-stack-driven collector
// ABOUTME: Describes the object life cycle, trigger policy and teardown

// Package gc implements a single-threaded mark-and-sweep collector for
// type-erased values.
//
// # Life cycle
//
// Every allocation creates a managed object in state [Fresh], links it at
// the head of the registry and pushes it onto the root stack:
//
//	h, err := gc.Allocate(c, "payload")
//	if err != nil {
//	    return err
//	}
//	defer h.Release()
//
// A collection marks every object referenced from the root stack, then
// sweeps the registry once: marked objects go back to Fresh, everything
// else is destroyed, unlinked and its slot returned to the pool. After
// each collection the threshold becomes twice the surviving object count.
//
// # Handles
//
// [Handle.Release] ends the handle's logical lifetime by removing the root
// entries it owns. The payload stays readable until the next sweep
// reclaims it; after that, accessors panic with [ErrReclaimed].
//
// # Triggering
//
// With auto-collect enabled (the default), an allocation first runs a
// collection when it would push the live count above
// max(threshold, initial threshold). [Collector.CollectGarbage] and
// [Collector.Close] always collect.
//
// Managed values are leaves: the mark phase does not follow references
// held inside one payload to another managed object.
package gc
