// Package xarray implements a concurrent, indexed, resizable array
// whose resize is a nonblocking, cooperative migration: readers and
// writers that observe a resize in progress help it complete instead
// of blocking on it. It is the Go counterpart of
// zelva.utils.concurrent.ConcurrentArrayCopy, generalized from
// Object[] to a generic element type.
package xarray

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/ZelvaLea/MyConcurrencyWorld/internal/valeq"
	"github.com/zeebo/errs/v2"
)

// ErrNotComparable is the value Cae/Cas panic with when called on an
// Array[V] whose V the Go runtime cannot compare — mirroring
// llxisdsh-pb's documented panic for the same situation.
var ErrNotComparable = errs.Errorf("xarray: value type is not comparable")

// Array is a concurrent resizable array supporting Get/Set/Cae/Cas and
// a nonblocking Resize. The zero value is not usable; construct one
// with New.
type Array[V any] struct {
	current atomic.Pointer[backing]
	equal   valeq.Func
}

// New creates an Array of the given length. Every slot starts EMPTY
// (Get returns the zero value of V until Set).
func New[V any](length int) *Array[V] {
	a := &Array[V]{equal: valeq.Of[V]()}
	a.current.Store(newBacking(length))
	return a
}

// Size returns the length of the most recently published backing
// array (spec.md §4.4: "length of the currently-published backing
// array (semantics: most recent publish)").
func (a *Array[V]) Size() int {
	return len(a.current.Load().cells)
}

// Get returns the value at i, transparently chasing forwarding
// markers into the destination array of any resize in progress.
func (a *Array[V]) Get(i int) V {
	arr := a.current.Load()
	for {
		f := loadAcquire(arr.cells, i)
		if isFwd(f) {
			arr = fwdDescriptor[V](f).next
			continue
		}
		if f == nil {
			var zero V
			return zero
		}
		return unboxVal[V](f)
	}
}

// Set stores v at i and returns the prior value, helping any observed
// in-progress resize to completion before retrying against the
// published destination.
func (a *Array[V]) Set(i int, v V) V {
	arr := a.current.Load()
	nv := boxVal(v)
	for {
		f := loadAcquire(arr.cells, i)
		if isFwd(f) {
			arr = helpTransfer(fwdDescriptor[V](f))
			continue
		}
		if weakCasCell(arr.cells, i, f, nv) {
			if f == nil {
				var zero V
				return zero
			}
			return unboxVal[V](f)
		}
	}
}

// Cae is compare-and-exchange: if the value at i equals expected, it
// is replaced with newVal and (expected, true) is returned; otherwise
// the current value and false are returned. An EMPTY slot is treated
// as matching expected only when expected is itself a nil pointer or
// interface value (SPEC_FULL.md §4.4) — the Go-native analogue of the
// Java source comparing a boxed reference against literal null.
//
// Cae panics with ErrNotComparable if V's runtime equality
// function is unavailable (V is a slice, map, or func type and the
// caller never constrained it to something comparable upstream).
func (a *Array[V]) Cae(i int, expected, newVal V) (V, bool) {
	if a.equal == nil {
		panic(ErrNotComparable)
	}
	arr := a.current.Load()
	nv := boxVal(newVal)
	rv := reflect.ValueOf(any(expected))
	expectedIsNil := !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil())
	expBox := unsafe.Pointer(&box[V]{v: expected})
	for {
		f := loadAcquire(arr.cells, i)
		if isFwd(f) {
			arr = helpTransfer(fwdDescriptor[V](f))
			continue
		}
		if f == nil {
			if expectedIsNil {
				if weakCasCell(arr.cells, i, nil, nv) {
					return expected, true
				}
				continue
			}
			var zero V
			return zero, false
		}
		if a.equal(f, expBox) {
			if weakCasCell(arr.cells, i, f, nv) {
				return expected, true
			}
			continue
		}
		return unboxVal[V](f), false
	}
}

// Cas is Cae without the prior value: it reports only success.
func (a *Array[V]) Cas(i int, expected, newVal V) bool {
	_, ok := a.Cae(i, expected, newVal)
	return ok
}

// Resize grows or shrinks the array to newLen, migrating cells
// [0, min(oldLen, newLen)) from the old backing array; cells beyond
// the old length start EMPTY. It blocks the calling
// goroutine only until its own LEFT worker finishes its scan — other
// goroutines reading or writing through the array concurrently help
// rather than being blocked by this call.
func (a *Array[V]) Resize(newLen int) {
	a.ResizeAt(0, 0, newLen)
}

// ResizeAt is the general form of Resize, migrating length cells from
// srcOff in the current array to dstOff in a freshly allocated array
// of length newLen.
func (a *Array[V]) ResizeAt(srcOff, dstOff, newLen int) {
	prev := a.current.Load()
	next := newBacking(newLen)

	d := newDescriptor[V](prev, srcOff, next, dstOff)
	d.leftWorker.transfer()

	// d.leftWorker.transfer() happens-before every commit it made;
	// publishing next with a release store means any goroutine that
	// subsequently acquire-loads a.current observes every migrated
	// value (spec.md §4.5 "Publication").
	a.current.Store(next)
}

// String renders the array's current contents, following forwarding
// markers into next mid-traversal so a resize in progress never
// surfaces an internal marker to a caller — the Go counterpart of
// ConcurrentArrayCopy.java's toString().
func (a *Array[V]) String() string {
	arr := a.current.Load()
	if len(arr.cells) == 0 {
		return "[]"
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; ; {
		f := loadAcquire(arr.cells, i)
		for isFwd(f) {
			fd := fwdDescriptor[V](f)
			arr = fd.next
			f = loadAcquire(arr.cells, i)
		}
		if f == nil {
			sb.WriteString("<nil>")
		} else {
			sb.WriteString(stringify(unboxVal[V](f)))
		}
		i++
		if i == len(arr.cells) {
			sb.WriteByte(']')
			return sb.String()
		}
		sb.WriteString(", ")
	}
}

func stringify(v any) string {
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
