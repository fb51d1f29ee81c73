// Package alloc implements the bump allocator used for a program's heap
// region.
//
// The region is lent by the host for one invocation. Its first 8 bytes hold
// the current position so the allocator itself is stateless apart from the
// region bounds; addresses are virtual and start at HeapStartAddress.
package alloc

import (
	"encoding/binary"
	"unsafe"

	aerrors "github.com/lugondev/go-anvil/pkg/errors"
)

const (
	// HeapStartAddress is the virtual address of the first heap byte.
	HeapStartAddress uint64 = 0x300000000

	// MaxHeapLength is the largest heap region a host may lend.
	MaxHeapLength = 256 * 1024

	// DefaultHeapLength is the heap size granted when none is requested.
	DefaultHeapLength = 32 * 1024

	posWordLen = 8
)

// Allocator hands out aligned blocks of a heap region. A zero address means
// the request could not be satisfied.
type Allocator interface {
	Alloc(size, align uint64) uint64
	Dealloc(addr, size, align uint64)
}

// BumpAllocator allocates monotonically from a fixed region and never frees.
type BumpAllocator struct {
	region   []byte
	start    uint64
	maxAlloc uint64
}

// New creates an allocator over region. maxAlloc caps a single request; pass
// zero to use the region length.
func New(region []byte, maxAlloc int) *BumpAllocator {
	if maxAlloc <= 0 {
		maxAlloc = len(region)
	}
	return &BumpAllocator{
		region:   region,
		start:    HeapStartAddress,
		maxAlloc: uint64(maxAlloc),
	}
}

// NewDefault creates an allocator over a freshly zeroed region of the
// default size.
func NewDefault() *BumpAllocator {
	return New(make([]byte, DefaultHeapLength), MaxHeapLength)
}

func (a *BumpAllocator) pos() uint64 {
	return binary.LittleEndian.Uint64(a.region)
}

func (a *BumpAllocator) end() uint64 {
	return a.start + uint64(len(a.region))
}

// Alloc returns the address of size bytes aligned to align, or zero when
// the request exceeds the per-allocation cap or the region. align must be a
// power of two. A failed request leaves the allocator unchanged.
func (a *BumpAllocator) Alloc(size, align uint64) uint64 {
	if len(a.region) < posWordLen || size > a.maxAlloc {
		return 0
	}
	pos := a.pos()
	if pos == 0 {
		pos = a.start + posWordLen
	}
	if align == 0 {
		align = 1
	}
	addr := (pos + align - 1) &^ (align - 1)
	if addr < pos || a.end() < addr || a.end()-addr < size {
		return 0
	}
	binary.LittleEndian.PutUint64(a.region, addr+size)
	return addr
}

// Dealloc is a no-op. Memory is reclaimed when the invocation ends.
func (a *BumpAllocator) Dealloc(addr, size, align uint64) {}

// Bytes translates an address returned by Alloc into the backing slice.
func (a *BumpAllocator) Bytes(addr, size uint64) []byte {
	off := addr - a.start
	return a.region[off : off+size : off+size]
}

// AllocBytes allocates size bytes and returns them as a slice, or nil when
// the allocator is exhausted.
func (a *BumpAllocator) AllocBytes(size, align uint64) []byte {
	addr := a.Alloc(size, align)
	if addr == 0 {
		return nil
	}
	return a.Bytes(addr, size)
}

// MustAlloc is Alloc that aborts the invocation with AllocationExhausted.
func (a *BumpAllocator) MustAlloc(size, align uint64) uint64 {
	addr := a.Alloc(size, align)
	if addr == 0 {
		panic(aerrors.ErrAllocationExhausted.WithDetails(map[string]any{
			"size":      size,
			"align":     align,
			"remaining": a.Remaining(),
		}))
	}
	return addr
}

// Used returns the number of bytes consumed, including the position word.
func (a *BumpAllocator) Used() uint64 {
	pos := a.pos()
	if pos == 0 {
		return 0
	}
	return pos - a.start
}

// Remaining returns the bytes left before the region end.
func (a *BumpAllocator) Remaining() uint64 {
	pos := a.pos()
	if pos == 0 {
		pos = a.start + posWordLen
	}
	if pos > a.end() {
		return 0
	}
	return a.end() - pos
}

// Allocate places a zeroed T on the heap. T must not contain Go pointers;
// the region is plain bytes the garbage collector does not scan for them.
func Allocate[T any](a *BumpAllocator) *T {
	var zero T
	size := uint64(unsafe.Sizeof(zero))
	buf := a.AllocBytes(size, uint64(unsafe.Alignof(zero)))
	if buf == nil {
		return nil
	}
	clear(buf)
	return (*T)(unsafe.Pointer(unsafe.SliceData(buf)))
}

// NoAllocator is an Allocator for programs that declare they never use the
// heap. Every request fails.
type NoAllocator struct{}

func (NoAllocator) Alloc(size, align uint64) uint64 { return 0 }

func (NoAllocator) Dealloc(addr, size, align uint64) {}

var (
	_ Allocator = (*BumpAllocator)(nil)
	_ Allocator = NoAllocator{}
)
