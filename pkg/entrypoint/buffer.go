package entrypoint

import "unsafe"

// AlignedBuffer returns a zeroed n-byte slice whose first byte is 8-byte
// aligned, as hosts must provide for the input region. Typed account casts
// depend on that alignment.
func AlignedBuffer(n int) []byte {
	words := make([]uint64, (n+7)/8)
	if len(words) == 0 {
		return []byte{}
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// IsAligned reports whether b starts on an 8-byte boundary.
func IsAligned(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	return uintptr(unsafe.Pointer(&b[0]))%bpfAlign == 0
}
