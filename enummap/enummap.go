// Package enummap implements a fixed-domain, array-backed concurrent
// map keyed by a statically known finite set of ordinals. It is the
// Go counterpart of zelva.concurrent.ConcurrentEnumMap, generalized
// from Java enum constants to any type supplying a stable Ordinal()
// index into its construction-time domain.
package enummap

import (
	"fmt"
	"hash/fnv"
	"reflect"
	"strings"
	"sync/atomic"
	"unsafe"

	"github.com/ZelvaLea/MyConcurrencyWorld/internal/valeq"
	"github.com/ZelvaLea/MyConcurrencyWorld/internal/xcounter"
	"github.com/zeebo/errs/v2"
)

// Ordinal is the domain contract a map key must satisfy: a stable
// index into the finite set of keys the map was constructed over.
// Go has no enum types with a runtime ordinal, so this is the
// Go-native replacement for ConcurrentEnumMap.java's reliance on
// Enum<K>.ordinal() and Class<K> domain checks (SPEC_FULL.md §4.3):
// static generics already reject a key of the wrong Go type at
// compile time, so the only runtime check left is bounds-checking
// Ordinal() against the domain size.
type Ordinal interface {
	comparable
	Ordinal() int
}

var (
	// ErrBadKey is returned by mutators when a key's Ordinal() falls
	// outside the map's domain. Non-mutating lookups (Get, Remove,
	// ContainsKey) treat an out-of-range ordinal as plain absence
	// instead, per spec.md §4.3.
	ErrBadKey = errs.Errorf("enummap: key outside map domain")
	// ErrNilValue is returned when a mutator that forbids a nil-like
	// value (any(value) == nil) is called with one.
	ErrNilValue = errs.Errorf("enummap: nil value")
	// ErrDomainMismatch is returned by PutAll when the source map's
	// domain size differs from the receiver's.
	ErrDomainMismatch = errs.Errorf("enummap: source map has a different domain size")
	// ErrNotComparable is panicked by any operation that must compare
	// values (ContainsValue, Remove2, Replace, Equal) when V's
	// runtime equality function is unavailable (V is a slice, map, or
	// func type), mirroring xarray.Array[V].Cae's identical guard.
	ErrNotComparable = errs.Errorf("enummap: value type is not comparable")
)

// Map is a concurrent map over a fixed domain of N keys, represented
// as an N-length array of atomic cells indexed by Ordinal(). The zero
// value is not usable; construct one with NewMap.
type Map[K Ordinal, V any] struct {
	keys    []K
	table   []unsafe.Pointer
	counter *xcounter.Counter
	equal   valeq.Func

	keysView    atomic.Pointer[KeySet[K, V]]
	valuesView  atomic.Pointer[Values[K, V]]
	entriesView atomic.Pointer[Entries[K, V]]
}

// NewMap constructs a Map whose domain is exactly the given keys in
// order; Ordinal() for domain[i] is expected (not verified beyond
// bounds-checking at call sites) to return i.
func NewMap[K Ordinal, V any](domain []K) (*Map[K, V], error) {
	if len(domain) == 0 {
		return nil, errs.Errorf("enummap: domain must be non-empty")
	}
	return &Map[K, V]{
		keys:    append([]K(nil), domain...),
		table:   make([]unsafe.Pointer, len(domain)),
		counter: xcounter.New(len(domain)),
		equal:   valeq.Of[V](),
	}, nil
}

func (m *Map[K, V]) mustComparable() {
	if m.equal == nil {
		panic(ErrNotComparable)
	}
}

func (m *Map[K, V]) ordinalOf(key K) (int, bool) {
	i := key.Ordinal()
	if i < 0 || i >= len(m.keys) {
		return 0, false
	}
	return i, true
}

// Domain returns the ordered key domain the map was constructed with.
func (m *Map[K, V]) Domain() []K {
	return m.keys
}

// Get returns the value mapped to key and whether it was present. An
// out-of-domain key reports absence rather than an error.
func (m *Map[K, V]) Get(key K) (V, bool) {
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	f := loadAcquire(m.table, i)
	if f == nil {
		var zero V
		return zero, false
	}
	return unboxVal[V](f), true
}

// ContainsKey reports whether key currently has a mapping.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// ContainsValue linearly scans for a slot holding a value equal to
// value. It rejects a nil-like probe the same way
// ConcurrentEnumMap.java's containsValue rejects a null argument.
func (m *Map[K, V]) ContainsValue(value V) (bool, error) {
	m.mustComparable()
	if any(value) == nil {
		return false, ErrNilValue
	}
	probe := unsafe.Pointer(&box[V]{v: value})
	for i := range m.table {
		if f := loadAcquire(m.table, i); f != nil && m.equal(f, probe) {
			return true, nil
		}
	}
	return false, nil
}

// Put unconditionally associates key with value, returning the prior
// value if one was present.
func (m *Map[K, V]) Put(key K, value V) (prior V, err error) {
	i, ok := m.ordinalOf(key)
	if !ok {
		return prior, ErrBadKey
	}
	if rv := reflect.ValueOf(any(value)); !rv.IsValid() || (rv.Kind() == reflect.Pointer && rv.IsNil()) {
		return prior, ErrNilValue
	}
	prev := exchangeCell(m.table, i, boxVal(value))
	if prev == nil {
		m.counter.Add(uintptr(i), 1)
		return prior, nil
	}
	return unboxVal[V](prev), nil
}

// ReplaceValue unconditionally associates key with value, the same
// way Put does. It exists to mirror ConcurrentEnumMap.java's
// replace(K,V) override, which (unlike the usual Map.replace(K,V)
// contract) never checks for a prior mapping before overwriting —
// callers wanting "replace only if present" should use Replace with
// an explicit expected value instead.
func (m *Map[K, V]) ReplaceValue(key K, value V) (prior V, err error) {
	return m.Put(key, value)
}

// Remove unconditionally removes key's mapping, if any, and reports
// the removed value. An out-of-domain key reports absence.
func (m *Map[K, V]) Remove(key K) (V, bool) {
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false
	}
	prev := exchangeCell(m.table, i, nil)
	if prev == nil {
		var zero V
		return zero, false
	}
	m.counter.Add(uintptr(i), -1)
	return unboxVal[V](prev), true
}

// Remove2 removes key's mapping only if it currently equals value.
// value must not be nil-like.
func (m *Map[K, V]) Remove2(key K, value V) (bool, error) {
	m.mustComparable()
	if any(value) == nil {
		return false, ErrNilValue
	}
	i, ok := m.ordinalOf(key)
	if !ok {
		return false, nil
	}
	probe := unsafe.Pointer(&box[V]{v: value})
	for {
		f := loadAcquire(m.table, i)
		if f == nil || !m.equal(f, probe) {
			return false, nil
		}
		if casCell(m.table, i, f, nil) {
			m.counter.Add(uintptr(i), -1)
			return true, nil
		}
	}
}

// Replace associates key with newValue only if it currently equals
// oldValue.
func (m *Map[K, V]) Replace(key K, oldValue, newValue V) (bool, error) {
	m.mustComparable()
	if any(oldValue) == nil || any(newValue) == nil {
		return false, ErrNilValue
	}
	i, ok := m.ordinalOf(key)
	if !ok {
		return false, ErrBadKey
	}
	nv := boxVal(newValue)
	probe := unsafe.Pointer(&box[V]{v: oldValue})
	for {
		f := loadAcquire(m.table, i)
		if f == nil || !m.equal(f, probe) {
			return false, nil
		}
		if casCell(m.table, i, f, nv) {
			return true, nil
		}
	}
}

// PutIfAbsent associates key with value only if key was unmapped,
// returning the prior value and whether one existed.
func (m *Map[K, V]) PutIfAbsent(key K, value V) (prior V, hadPrior bool, err error) {
	if any(value) == nil {
		return prior, false, ErrNilValue
	}
	i, ok := m.ordinalOf(key)
	if !ok {
		return prior, false, ErrBadKey
	}
	nv := boxVal(value)
	for {
		f := loadAcquire(m.table, i)
		if f != nil {
			return unboxVal[V](f), true, nil
		}
		if weakCasCell(m.table, i, nil, nv) {
			m.counter.Add(uintptr(i), 1)
			return prior, false, nil
		}
	}
}

// Compute applies fn to key's current value (present reports whether
// one exists) and installs fn's result, unless fn reports del, which
// removes the mapping. fn is retried only on a lost CAS race, never
// on mismatch, so it may be invoked more than once under contention.
func (m *Map[K, V]) Compute(key K, fn func(key K, prev V, present bool) (newVal V, del bool)) (V, bool, error) {
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false, ErrBadKey
	}
	for {
		f := loadAcquire(m.table, i)
		var prev V
		present := f != nil
		if present {
			prev = unboxVal[V](f)
		}
		newVal, del := fn(key, prev, present)
		if !present && del {
			var zero V
			return zero, false, nil
		}
		var newCell unsafe.Pointer
		if !del {
			newCell = boxVal(newVal)
		}
		if casCell(m.table, i, f, newCell) {
			switch {
			case !present && !del:
				m.counter.Add(uintptr(i), 1)
			case present && del:
				m.counter.Add(uintptr(i), -1)
			}
			if del {
				var zero V
				return zero, false, nil
			}
			return newVal, true, nil
		}
	}
}

// ComputeIfAbsent returns key's current value if present without
// calling fn; otherwise it calls fn once per contended attempt and,
// if fn reports ok, installs the result. Under a race between two
// callers that both observe absence, exactly one installs its value
// and both calls return that committed value (spec.md §8 scenario 5).
func (m *Map[K, V]) ComputeIfAbsent(key K, fn func(key K) (val V, ok bool)) (V, bool, error) {
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false, ErrBadKey
	}
	for {
		f := loadAcquire(m.table, i)
		if f != nil {
			return unboxVal[V](f), true, nil
		}
		newVal, provide := fn(key)
		if !provide {
			var zero V
			return zero, false, nil
		}
		if casCell(m.table, i, nil, boxVal(newVal)) {
			m.counter.Add(uintptr(i), 1)
			return newVal, true, nil
		}
	}
}

// ComputeIfPresent calls fn only if key currently has a mapping,
// installing its result or removing the mapping if fn reports !keep.
func (m *Map[K, V]) ComputeIfPresent(key K, fn func(key K, prev V) (newVal V, keep bool)) (V, bool, error) {
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false, ErrBadKey
	}
	for {
		f := loadAcquire(m.table, i)
		if f == nil {
			var zero V
			return zero, false, nil
		}
		newVal, keep := fn(key, unboxVal[V](f))
		var newCell unsafe.Pointer
		if keep {
			newCell = boxVal(newVal)
		}
		if casCell(m.table, i, f, newCell) {
			if !keep {
				m.counter.Add(uintptr(i), -1)
				var zero V
				return zero, false, nil
			}
			return newVal, true, nil
		}
	}
}

// Merge combines value into key's current mapping via fn(old, new);
// if key is unmapped, value is installed directly without calling
// fn. If fn reports !keep the mapping is removed.
func (m *Map[K, V]) Merge(key K, value V, fn func(old, new V) (merged V, keep bool)) (V, bool, error) {
	if any(value) == nil {
		var zero V
		return zero, false, ErrNilValue
	}
	i, ok := m.ordinalOf(key)
	if !ok {
		var zero V
		return zero, false, ErrBadKey
	}
	for {
		f := loadAcquire(m.table, i)
		if f == nil {
			if weakCasCell(m.table, i, nil, boxVal(value)) {
				m.counter.Add(uintptr(i), 1)
				return value, true, nil
			}
			continue
		}
		merged, keep := fn(unboxVal[V](f), value)
		var newCell unsafe.Pointer
		if keep {
			newCell = boxVal(merged)
		}
		if casCell(m.table, i, f, newCell) {
			if !keep {
				m.counter.Add(uintptr(i), -1)
				var zero V
				return zero, false, nil
			}
			return merged, true, nil
		}
	}
}

// Clear removes every mapping.
func (m *Map[K, V]) Clear() {
	for i := range m.table {
		if exchangeCell(m.table, i, nil) != nil {
			m.counter.Add(uintptr(i), -1)
		}
	}
}

// PutAll copies every present mapping from other into m, index-
// parallel. The two maps must share a domain of the same size.
func (m *Map[K, V]) PutAll(other *Map[K, V]) error {
	if other == nil {
		return nil
	}
	if len(other.table) != len(m.table) {
		return ErrDomainMismatch
	}
	for i := range m.table {
		if v := loadAcquire(other.table, i); v != nil {
			if exchangeCell(m.table, i, v) == nil {
				m.counter.Add(uintptr(i), 1)
			}
		}
	}
	return nil
}

// PutAllFrom copies every entry of a plain Go map into m by ordinal,
// skipping keys outside the domain and nil-like values, the
// Go-native counterpart of ConcurrentEnumMap.java's putAll(Map) when
// the argument is not itself a ConcurrentEnumMap of the same domain.
func (m *Map[K, V]) PutAllFrom(entries map[K]V) {
	for k, v := range entries {
		i, ok := m.ordinalOf(k)
		if !ok || any(v) == nil {
			continue
		}
		if exchangeCell(m.table, i, boxVal(v)) == nil {
			m.counter.Add(uintptr(i), 1)
		}
	}
}

// Size returns the saturated 32-bit cardinality.
func (m *Map[K, V]) Size() int {
	return int(m.counter.Size32())
}

// IsEmpty reports whether the map currently holds no mappings.
func (m *Map[K, V]) IsEmpty() bool {
	return m.counter.Sum() == 0
}

// Equal reports whether m and other hold the same (key, value) pairs,
// comparing values with the runtime equality function for V. It is
// weakly consistent against concurrent mutation of either map.
func (m *Map[K, V]) Equal(other *Map[K, V]) bool {
	if m == other {
		return true
	}
	if other == nil || len(m.table) != len(other.table) {
		return false
	}
	m.mustComparable()
	for i := range m.table {
		a := loadAcquire(m.table, i)
		b := loadAcquire(other.table, i)
		if (a == nil) != (b == nil) {
			return false
		}
		if a != nil && !m.equal(a, b) {
			return false
		}
	}
	return true
}

// Hash returns a content hash over observed (key, value) pairs.
// There is no runtime-supplied equivalent of Java's Object.hashCode
// for an unconstrained Go type, so this falls back to hashing each
// pair's fmt.Sprint representation through hash/fnv — a stdlib-only
// choice (DESIGN.md, enummap/enummap.go entry) since no pack dependency addresses hashing
// an arbitrary generic (K, V) pair, and no testable property in
// spec.md §8 depends on a specific hash value.
func (m *Map[K, V]) Hash() uint64 {
	h := fnv.New64a()
	for i, k := range m.keys {
		f := loadAcquire(m.table, i)
		if f == nil {
			continue
		}
		fmt.Fprintf(h, "%v:%v", k, unboxVal[V](f))
	}
	return h.Sum64()
}

// String renders the map's currently observed entries.
func (m *Map[K, V]) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	first := true
	for i, k := range m.keys {
		f := loadAcquire(m.table, i)
		if f == nil {
			continue
		}
		if !first {
			sb.WriteString(", ")
		}
		first = false
		fmt.Fprintf(&sb, "%v=%v", k, unboxVal[V](f))
	}
	sb.WriteByte('}')
	return sb.String()
}
