// Package cacheline computes the cache line padding used to keep
// contended striped counters and hot container headers from sharing a
// cache line with their neighbors.
package cacheline

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Size is the padding unit used throughout this module to avoid false
// sharing. It is derived the same way llxisdsh-pb's CacheLineSize is:
// from the size of golang.org/x/sys/cpu's platform-detected pad type.
const Size = unsafe.Sizeof(cpu.CacheLinePad{})

// Pad returns the number of trailing bytes a struct of size sz needs
// to round up to a full cache line. It never returns a negative value
// if sz already exceeds Size, since that just means no padding helps.
func Pad(sz uintptr) uintptr {
	if sz >= Size {
		return 0
	}
	return Size - sz
}
