// ABOUTME: Functional options for constructing a Collector
// ABOUTME: Root capacity, trigger policy, slot pool, logging and observation

package gc

import (
	"github.com/rs/zerolog"

	"github.com/prateek/rootgc/pool"
)

// DefaultInitialThreshold is the live-object count that triggers the first
// automatic collection
const DefaultInitialThreshold = 8

// Option configures a Collector
type Option func(*options)

type options struct {
	rootCapacity      int
	initialThreshold  int
	autoCollect       bool
	retryOnExhaustion bool
	alloc             SlotAllocator
	logger            zerolog.Logger
	observer          Observer
}

func defaultOptions() options {
	return options{
		rootCapacity:      DefaultRootCapacity,
		initialThreshold:  DefaultInitialThreshold,
		autoCollect:       true,
		retryOnExhaustion: true,
		logger:            zerolog.Nop(),
		observer:          nopObserver{},
	}
}

// WithRootCapacity sets the root stack capacity
func WithRootCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.rootCapacity = n
		}
	}
}

// WithInitialThreshold sets the threshold used before the first collection
// and as the floor of the automatic trigger
func WithInitialThreshold(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.initialThreshold = n
		}
	}
}

// WithAutoCollect enables or disables collecting from inside Allocate
func WithAutoCollect(enabled bool) Option {
	return func(o *options) { o.autoCollect = enabled }
}

// WithRetryOnExhaustion controls whether an allocation that finds the slot
// pool exhausted forces one collection and retries before failing
func WithRetryOnExhaustion(enabled bool) Option {
	return func(o *options) { o.retryOnExhaustion = enabled }
}

// WithSlotAllocator backs object storage with a custom slot allocator
func WithSlotAllocator(a SlotAllocator) Option {
	return func(o *options) { o.alloc = a }
}

// WithPoolCapacity bounds object storage to n slots (0 means unbounded)
func WithPoolCapacity(n int) Option {
	return func(o *options) { o.alloc = pool.New(n) }
}

// WithLogger sets the logger used for collection and teardown events
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver receives allocation and collection events, typically
// *metrics.CollectorMetrics
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}
