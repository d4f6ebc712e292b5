package xarray

import (
	"sync/atomic"
	"unsafe"
)

// Each cell of a backing array is a single unsafe.Pointer, read and
// written with sync/atomic's pointer intrinsics exactly as
// ConcurrentArrayCopy.java's VarHandle does on its Object[]. A cell
// holds one of:
//
//   - nil, meaning EMPTY.
//   - a tag-free pointer to a *box[V], the user value.
//   - a tagged pointer (low bit set) encoding a forwarding marker;
//     masking the tag bits off recovers the owning *descriptor[V],
//     and a second bit records which worker (LEFT/RIGHT) installed
//     it.
//
// The tagging scheme is the same low-bit pointer tagging
// histdb's lfht.go uses to tell a chained node pointer from a
// sub-table pointer (tag/untag/tagged), generalized here to also
// carry a one-bit side flag. It relies on *descriptor[V] always being
// allocated with at least 4-byte alignment, true for any heap
// allocation of a type with pointer fields on every architecture Go
// targets.
const (
	fwdBit  = uintptr(1)
	sideBit = uintptr(2)
	tagMask = fwdBit | sideBit
)

// box is the one-field wrapper boxing a user value so that a cell
// pointer is always non-nil for a present value, never confusable
// with EMPTY (nil) regardless of what V's own zero value looks like.
type box[V any] struct {
	v V
}

func boxVal[V any](v V) unsafe.Pointer {
	return unsafe.Pointer(&box[V]{v: v})
}

func unboxVal[V any](p unsafe.Pointer) V {
	return (*box[V])(p).v
}

func markLeft[V any](d *descriptor[V]) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(d)) | fwdBit)
}

func markRight[V any](d *descriptor[V]) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(d)) | fwdBit | sideBit)
}

func isFwd(p unsafe.Pointer) bool {
	return p != nil && uintptr(p)&fwdBit != 0
}

func isRightMark(p unsafe.Pointer) bool {
	return uintptr(p)&sideBit != 0
}

func fwdDescriptor[V any](p unsafe.Pointer) *descriptor[V] {
	return (*descriptor[V])(unsafe.Pointer(uintptr(p) &^ tagMask))
}

// loadAcquire, storeRelease, casCell, weakCasCell and exchangeCell are
// the five atomic cell primitives spec.md §4.1 specifies. Go's
// CompareAndSwapPointer has no separate strong/weak form (there is a
// single intrinsic with no spurious-failure contract either way), so
// weakCasCell is a plain alias kept as its own name purely so call
// sites read the way spec.md's §4.5 prose distinguishes the two uses.
func loadAcquire(c []unsafe.Pointer, i int) unsafe.Pointer {
	return atomic.LoadPointer(&c[i])
}

func storeRelease(c []unsafe.Pointer, i int, v unsafe.Pointer) {
	atomic.StorePointer(&c[i], v)
}

func casCell(c []unsafe.Pointer, i int, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&c[i], old, new)
}

func weakCasCell(c []unsafe.Pointer, i int, old, new unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&c[i], old, new)
}

func exchangeCell(c []unsafe.Pointer, i int, v unsafe.Pointer) unsafe.Pointer {
	return atomic.SwapPointer(&c[i], v)
}
