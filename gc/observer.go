// ABOUTME: Observer hook for collector telemetry
// ABOUTME: Collection statistics are reported here and never affect behavior

package gc

import "time"

// CollectStats describes one completed collection
type CollectStats struct {
	Reclaimed int
	Live      int
	Threshold int
	Duration  time.Duration
}

// Allocation failure reasons passed to Observer.ObserveAllocationFailure
const (
	FailureRootOverflow  = "root_overflow"
	FailurePoolExhausted = "pool_exhausted"
	FailureClosed        = "closed"
	FailureCollecting    = "collecting"
)

// Observer receives collector events
type Observer interface {
	ObserveAllocation()
	ObserveAllocationFailure(reason string)
	ObserveCollection(stats CollectStats)
	ObserveRootDepth(depth int)
}

type nopObserver struct{}

func (nopObserver) ObserveAllocation()              {}
func (nopObserver) ObserveAllocationFailure(string) {}
func (nopObserver) ObserveCollection(CollectStats)  {}
func (nopObserver) ObserveRootDepth(int)            {}
