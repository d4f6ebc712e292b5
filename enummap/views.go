package enummap

import "unsafe"

// Keys, Values and Entries each return a cached view over m, the same
// KeySetView/ValuesView/EntrySetView split ConcurrentEnumMap.java
// makes. Java caches these in a plain field with a deliberately racy
// double-checked read ("the race that is here will not destroy
// anything for us") since the field is only ever assigned an
// idempotently-constructed pointer; this implementation keeps that
// exact toleration but publishes through atomic.Pointer so the
// unsynchronized construction race is well-defined under the Go
// memory model rather than merely harmless in practice.
func (m *Map[K, V]) Keys() *KeySet[K, V] {
	if v := m.keysView.Load(); v != nil {
		return v
	}
	m.keysView.CompareAndSwap(nil, &KeySet[K, V]{m: m})
	return m.keysView.Load()
}

func (m *Map[K, V]) Values() *Values[K, V] {
	if v := m.valuesView.Load(); v != nil {
		return v
	}
	m.valuesView.CompareAndSwap(nil, &Values[K, V]{m: m})
	return m.valuesView.Load()
}

func (m *Map[K, V]) Entries() *Entries[K, V] {
	if v := m.entriesView.Load(); v != nil {
		return v
	}
	m.entriesView.CompareAndSwap(nil, &Entries[K, V]{m: m})
	return m.entriesView.Load()
}

// cursor is the shared index-advance logic behind every iterator:
// scan forward from the current index for the next non-empty slot,
// skipping EMPTY without side effects, per spec.md §4.6.
type cursor[K Ordinal, V any] struct {
	m     *Map[K, V]
	index int
}

func newCursor[K Ordinal, V any](m *Map[K, V]) cursor[K, V] {
	return cursor[K, V]{m: m, index: -1}
}

func (c *cursor[K, V]) advance() bool {
	for i := c.index + 1; i < len(c.m.table); i++ {
		if loadAcquire(c.m.table, i) != nil {
			c.index = i
			return true
		}
	}
	c.index = len(c.m.table)
	return false
}

// Remove exchanges the slot the cursor last stopped on with EMPTY. It
// is a no-op, reporting false, if the slot is already empty or the
// cursor has not yet advanced onto a valid slot.
func (c *cursor[K, V]) remove() bool {
	if c.index < 0 || c.index >= len(c.m.table) {
		return false
	}
	if exchangeCell(c.m.table, c.index, nil) == nil {
		return false
	}
	c.m.counter.Add(uintptr(c.index), -1)
	return true
}

// KeySet is a cached view over the keys currently present in a Map.
type KeySet[K Ordinal, V any] struct {
	m *Map[K, V]
}

func (ks *KeySet[K, V]) Size() int            { return ks.m.Size() }
func (ks *KeySet[K, V]) Contains(key K) bool  { return ks.m.ContainsKey(key) }
func (ks *KeySet[K, V]) Remove(key K) bool    { _, ok := ks.m.Remove(key); return ok }
func (ks *KeySet[K, V]) Clear()               { ks.m.Clear() }
func (ks *KeySet[K, V]) Iterator() *KeyIterator[K, V] {
	c := newCursor(ks.m)
	return &KeyIterator[K, V]{cursor: c}
}

// KeyIterator is a weakly consistent iterator over a KeySet.
type KeyIterator[K Ordinal, V any] struct {
	cursor[K, V]
}

func (it *KeyIterator[K, V]) Next() bool   { return it.advance() }
func (it *KeyIterator[K, V]) Key() K       { return it.m.keys[it.index] }
func (it *KeyIterator[K, V]) Remove() bool { return it.remove() }

// Values is a cached view over the values currently present in a Map.
type Values[K Ordinal, V any] struct {
	m *Map[K, V]
}

func (vs *Values[K, V]) Size() int { return vs.m.Size() }
func (vs *Values[K, V]) Clear()    { vs.m.Clear() }

// Contains reports whether any slot holds a value equal to value. It
// ignores the bad-argument error ContainsValue reports for a nil-like
// probe, reporting false instead, to match the collection-view
// contract of a plain boolean test.
func (vs *Values[K, V]) Contains(value V) bool {
	ok, _ := vs.m.ContainsValue(value)
	return ok
}

// Remove removes the first slot found holding a value equal to
// value, the Go counterpart of ConcurrentEnumMap.java's
// ValuesView.remove, which scans and weakly-CASes rather than going
// through a key.
func (vs *Values[K, V]) Remove(value V) bool {
	vs.m.mustComparable()
	if any(value) == nil {
		return false
	}
	probe := unsafe.Pointer(&box[V]{v: value})
	for i := range vs.m.table {
		f := loadAcquire(vs.m.table, i)
		if f != nil && vs.m.equal(f, probe) && weakCasCell(vs.m.table, i, f, nil) {
			vs.m.counter.Add(uintptr(i), -1)
			return true
		}
	}
	return false
}

func (vs *Values[K, V]) Iterator() *ValueIterator[K, V] {
	return &ValueIterator[K, V]{cursor: newCursor(vs.m)}
}

// ValueIterator is a weakly consistent iterator over a Values view.
type ValueIterator[K Ordinal, V any] struct {
	cursor[K, V]
}

func (it *ValueIterator[K, V]) Next() bool   { return it.advance() }
func (it *ValueIterator[K, V]) Value() V     { return unboxVal[V](loadAcquire(it.m.table, it.index)) }
func (it *ValueIterator[K, V]) Remove() bool { return it.remove() }

// Entries is a cached view over the (key, value) pairs currently
// present in a Map.
type Entries[K Ordinal, V any] struct {
	m *Map[K, V]
}

func (es *Entries[K, V]) Size() int  { return es.m.Size() }
func (es *Entries[K, V]) Clear()     { es.m.Clear() }
func (es *Entries[K, V]) Contains(key K) bool { return es.m.ContainsKey(key) }

// Remove removes key's mapping only if it currently equals value, the
// view-level counterpart of Map.Remove2.
func (es *Entries[K, V]) Remove(key K, value V) bool {
	ok, _ := es.m.Remove2(key, value)
	return ok
}

func (es *Entries[K, V]) Iterator() *EntryIterator[K, V] {
	return &EntryIterator[K, V]{cursor: newCursor(es.m)}
}

// EntryIterator is a weakly consistent iterator over an Entries view.
type EntryIterator[K Ordinal, V any] struct {
	cursor[K, V]
}

func (it *EntryIterator[K, V]) Next() bool { return it.advance() }
func (it *EntryIterator[K, V]) Key() K     { return it.m.keys[it.index] }
func (it *EntryIterator[K, V]) Value() V   { return unboxVal[V](loadAcquire(it.m.table, it.index)) }
func (it *EntryIterator[K, V]) Remove() bool { return it.remove() }

// SetValue overwrites the entry the iterator last stopped on,
// mirroring ConcurrentEnumMap.java's MapEntry.setValue, which writes
// through to the backing map rather than just the iterator's local
// copy.
func (it *EntryIterator[K, V]) SetValue(value V) (V, error) {
	return it.m.Put(it.m.keys[it.index], value)
}
