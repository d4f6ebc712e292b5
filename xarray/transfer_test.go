package xarray

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/zeebo/assert"
	"github.com/zeebo/mwc"
)

// TestTransferLeftMigratesAllCells exercises the LEFT worker alone
// (no contending RIGHT helper): every slot of the old backing array
// must reappear, unchanged, at the same offset in the new one.
func TestTransferLeftMigratesAllCells(t *testing.T) {
	const n = 64
	a := New[int](n)
	for i := 0; i < n; i++ {
		a.Set(i, i*i)
	}
	a.Resize(n)
	for i := 0; i < n; i++ {
		assert.Equal(t, a.Get(i), i*i)
	}
}

// TestReadThroughMarkerDuringResize builds a resize descriptor by hand
// and never runs its LEFT worker: helpTransfer alone must migrate every
// cell. Get is then checked while the array still points at the old
// backing, so every read has to resolve a forwarding marker rather
// than ever returning one (spec.md §8 scenario 4), and again after the
// destination is published.
func TestReadThroughMarkerDuringResize(t *testing.T) {
	const n = 256
	a := New[int](n)
	for i := 0; i < n; i++ {
		a.Set(i, i+1)
	}

	prev := a.current.Load()
	next := newBacking(n)
	d := newDescriptor[int](prev, 0, next, 0)

	// Skip the LEFT worker entirely: a reader that only ever calls
	// helpTransfer (the RIGHT path) must still drive the descriptor to
	// completion on its own, exactly as a Get/Set through the façade
	// would when it first observes a forwarding marker mid-resize.
	helpTransfer(d)

	// a.current still points at prev, whose cells now all hold RIGHT
	// forwarding markers: Get must follow each one into next.
	for i := 0; i < n; i++ {
		assert.Equal(t, a.Get(i), i+1)
	}
	a.current.Store(next)

	for i := 0; i < n; i++ {
		assert.Equal(t, a.Get(i), i+1)
	}
}

// TestResizeUnderWriteLoad runs many writers racing Set against
// an array while a resize is in flight on another goroutine, then
// checks the final published array reflects a value consistent with
// at least one of the racing writes at every index (spec.md §8
// scenario 3: no write is lost or corrupted by a concurrent resize).
func TestResizeUnderWriteLoad(t *testing.T) {
	const n = 128
	a := New[int64](n)

	var wg sync.WaitGroup
	var stop atomic.Bool

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			rng := mwc.Rand()
			for !stop.Load() {
				idx := int(rng.Uint32n(uint32(n)))
				a.Set(idx, int64(id+1))
			}
		}(g)
	}

	a.Resize(n)
	stop.Store(true)
	wg.Wait()

	for i := 0; i < n; i++ {
		v := a.Get(i)
		assert.That(t, v >= 0 && v <= 8)
	}
}

// TestHelpTransferConvergesWithConcurrentHelpers drives several
// goroutines to all call helpTransfer on the same descriptor
// concurrently, confirming the lazily-created RIGHT helper converges
// exactly once regardless of how many goroutines race to create it.
func TestHelpTransferConvergesWithConcurrentHelpers(t *testing.T) {
	const n = 100
	a := New[int](n)
	for i := 0; i < n; i++ {
		a.Set(i, i)
	}

	prev := a.current.Load()
	next := newBacking(n)
	d := newDescriptor[int](prev, 0, next, 0)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			helpTransfer(d)
		}()
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		f := loadAcquire(next.cells, i)
		assert.That(t, f != nil)
		assert.Equal(t, unboxVal[int](f), i)
	}
}
