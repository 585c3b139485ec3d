// Package atomicstate generalizes the teacher's atomic_float.AtomicFloat64
// pattern (a CAS loop over an unsafe.Pointer-punned uint64) into the
// lock-free primitives the runtime needs for episode/step counters, running
// averages and status flags: a single value mutated by exactly one
// writer and read without locking by the periodic saver and dispatcher.
package atomicstate

import (
	"math"
	"sync/atomic"
)

// Float64 encapsulates a float64 for non-locking atomic operations.
type Float64 struct {
	bits uint64
}

// NewFloat64 constructs a Float64 initialized to val.
func NewFloat64(val float64) *Float64 {
	f := &Float64{}
	f.Set(val)
	return f
}

// Load atomically reads the float64.
func (f *Float64) Load() float64 {
	return math.Float64frombits(atomic.LoadUint64(&f.bits))
}

// Set atomically stores val, returning the previous value.
func (f *Float64) Set(val float64) (previous float64) {
	previous = math.Float64frombits(atomic.SwapUint64(&f.bits, math.Float64bits(val)))
	return
}

// Add atomically adds addend, retrying internally until the compare-and-swap
// succeeds. Unlike a naive spin that ignores interleaved writers, this
// returns the value actually installed, since the caller needs it for
// e.g. priority clamping.
func (f *Float64) Add(addend float64) (newVal float64) {
	for {
		old := f.Load()
		newVal = old + addend
		if atomic.CompareAndSwapUint64(&f.bits, math.Float64bits(old), math.Float64bits(newVal)) {
			return
		}
	}
}

// CompareAndSwap performs a single CAS attempt without retrying.
func (f *Float64) CompareAndSwap(old, new float64) bool {
	return atomic.CompareAndSwapUint64(&f.bits, math.Float64bits(old), math.Float64bits(new))
}

// Counter is a monotonically non-decreasing uint64 counter, used for the
// episodes/steps fields spec invariant 1 requires never to regress.
type Counter struct {
	val uint64
}

// Load atomically reads the counter.
func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.val)
}

// Add atomically increments the counter by delta and returns the new value.
func (c *Counter) Add(delta uint64) uint64 {
	return atomic.AddUint64(&c.val, delta)
}

// Bool is a small readability wrapper over atomic.Bool-style access,
// used for the coordinator's active/stopRequested flags (spec §4.8, §5).
type Bool struct {
	val uint32
}

// Load atomically reads the flag.
func (b *Bool) Load() bool {
	return atomic.LoadUint32(&b.val) != 0
}

// Store atomically sets the flag.
func (b *Bool) Store(v bool) {
	var i uint32
	if v {
		i = 1
	}
	atomic.StoreUint32(&b.val, i)
}
