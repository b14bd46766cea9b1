// Package unsafer reinterprets Go values as raw bytes for upload to GPU memory.
package unsafer

import (
	"unsafe"
)

// SliceToBytes interprets an arbitrary input slice as a byte slice.
//
// Note that the returned slice points to the same underlying data in memory. It
// does not make a copy.
func SliceToBytes[T any](input []T) []byte {
	if len(input) == 0 {
		return nil
	}

	size := int(unsafe.Sizeof(input[0])) * len(input)
	return unsafe.Slice((*byte)(unsafe.Pointer(&input[0])), size)
}

// StructToBytes interprets the value v points to as a byte slice. As with
// SliceToBytes no copy is made.
func StructToBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// SliceBytesToUint32 copies code into a freshly allocated, properly aligned
// word slice. Trailing bytes which do not form a whole word are dropped.
func SliceBytesToUint32(code []byte) []uint32 {
	words := make([]uint32, len(code)/4)
	if len(words) == 0 {
		return words
	}

	copy(SliceToBytes(words), code)
	return words
}
