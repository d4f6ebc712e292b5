package enummap

import (
	"sync/atomic"
	"unsafe"
)

// A map slot is a single unsafe.Pointer cell holding either nil
// (absent) or a non-nil pointer to a *box[V], read/written with
// sync/atomic's pointer intrinsics the same way xarray's slot.go
// treats a backing array cell — the enum map just never needs the
// forwarding-marker tag bits xarray's cells carry, since its domain
// never resizes.
type box[V any] struct {
	v V
}

func boxVal[V any](v V) unsafe.Pointer {
	return unsafe.Pointer(&box[V]{v: v})
}

func unboxVal[V any](p unsafe.Pointer) V {
	return (*box[V])(p).v
}

func loadAcquire(c []unsafe.Pointer, i int) unsafe.Pointer {
	return atomic.LoadPointer(&c[i])
}

func casCell(c []unsafe.Pointer, i int, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&c[i], old, new)
}

// weakCasCell is a documented alias of casCell for the empty-slot
// claim sites spec.md §4.3 distinguishes from value-commit CAS, the
// same naming convention xarray/slot.go uses for the identical reason.
func weakCasCell(c []unsafe.Pointer, i int, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&c[i], old, new)
}

func exchangeCell(c []unsafe.Pointer, i int, v unsafe.Pointer) unsafe.Pointer {
	return atomic.SwapPointer(&c[i], v)
}
