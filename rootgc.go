// ABOUTME: Root rootgc package providing version information and package documentation
// ABOUTME: The collector itself lives in the gc subpackage

// Package rootgc is an embeddable mark-and-sweep collector for type-erased
// values. Liveness is decided by a bounded root stack: anything on the stack
// when the mark phase runs survives, everything else is destroyed by the
// sweep. Subpackages provide the slot pool backing object storage, a heap
// snapshot graph for diagnostics, Prometheus metrics and YAML configuration.
package rootgc

// Version is the semantic version of the rootgc module
const Version = "0.1.0-dev"
