// Package valeq extracts the Go runtime's own built-in equality
// function for a type parameter constrained only `any`, the way
// _examples/llxisdsh-pb/mapof.go's defaultHasherUsingBuiltIn obtains
// its valEqual: declare a throwaway map keyed by the type, recover its
// runtime *maptype through the empty interface header, and read off
// the element-equality function it already carries.
//
// Both xarray's Cae/Cas family and enummap's value-comparing methods
// (ContainsValue, Remove2, Replace, Equal, Values.Remove) need this for an unconstrained value type, so it lives here
// once rather than being duplicated per package.
package valeq

import "unsafe"

// Func reports whether the values behind two *box[V]-shaped pointers
// are equal. It is nil when V is not a comparable type (slice, map,
// func); callers panic on first use rather than silently misbehaving,
// mirroring mapof.go's own documented "called CompareAndSwap when
// value is not of comparable type" behavior.
type Func func(unsafe.Pointer, unsafe.Pointer) bool

// Of returns the runtime equality function for V.
func Of[V any]() Func {
	var m map[int]V
	return iTypeOf(m).mapType().Elem.Equal
}

//go:nosplit
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

type iEmptyInterface struct {
	Type *iType
	Data unsafe.Pointer
}

type iTFlag uint8
type iKind uint8
type iNameOff int32
type iTypeOff int32

// iType mirrors the stable prefix of runtime._type.
type iType struct {
	Size_       uintptr
	PtrBytes    uintptr
	Hash        uint32
	TFlag       iTFlag
	Align_      uint8
	FieldAlign_ uint8
	Kind_       iKind
	Equal       func(unsafe.Pointer, unsafe.Pointer) bool
	GCData      *byte
	Str         iNameOff
	PtrToThis   iTypeOff
}

// iMapType mirrors the stable prefix of runtime.maptype.
type iMapType struct {
	iType
	Key    *iType
	Elem   *iType
	Group  *iType
	Hasher func(unsafe.Pointer, uintptr) uintptr
}

func (t *iType) mapType() *iMapType {
	return (*iMapType)(unsafe.Pointer(t))
}

func iTypeOf(a any) *iType {
	eface := *(*iEmptyInterface)(unsafe.Pointer(&a))
	return (*iType)(noescape(unsafe.Pointer(eface.Type)))
}
