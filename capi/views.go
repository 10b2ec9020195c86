package capi

import "unsafe"

// Floats rebuilds a view of n samples starting at p. A zero count yields an
// empty view whatever p is; a null p with samples, or a negative count, is a
// caller contract violation and panics.
func Floats(p unsafe.Pointer, n int) []float32 {
	switch {
	case n < 0:
		panic("aa: negative frame count")
	case n == 0:
		return nil
	case p == nil:
		panic("aa: null sample buffer")
	}
	return unsafe.Slice((*float32)(p), n)
}
