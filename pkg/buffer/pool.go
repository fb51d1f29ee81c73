// Package buffer pools zeroed, 8-byte aligned byte regions used as
// per-invocation program heaps.
package buffer

import (
	"math/bits"
	"sync"
	"unsafe"
)

const (
	minShift = 10 // 1 KiB
	maxShift = 18 // 256 KiB

	numClasses = maxShift - minShift + 1
)

// Pool hands out aligned regions grouped by power-of-two size class.
// Requests above the largest class are allocated directly and never pooled.
type Pool struct {
	classes [numClasses]sync.Pool
}

var globalPool = NewPool()

func NewPool() *Pool {
	p := &Pool{}
	for i := range p.classes {
		size := 1 << (minShift + i)
		p.classes[i].New = func() any {
			region := aligned(size)
			return &region
		}
	}
	return p
}

// classOf returns the class index serving n bytes, or -1.
func classOf(n int) int {
	shift := max(bits.Len(uint(n-1)), minShift)
	if shift > maxShift {
		return -1
	}
	return shift - minShift
}

// Get returns a zeroed region of exactly size bytes starting on an 8-byte
// boundary.
func (p *Pool) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	c := classOf(size)
	if c < 0 {
		return aligned(size)
	}
	region := *p.classes[c].Get().(*[]byte)
	return region[:size]
}

// Put clears region and returns it to its class. Regions whose capacity is
// not exactly a class size did not come from the pool and are dropped.
func (p *Pool) Put(region []byte) {
	n := cap(region)
	if n == 0 {
		return
	}
	c := classOf(n)
	if c < 0 || n != 1<<(minShift+c) {
		return
	}
	region = region[:n]
	clear(region)
	p.classes[c].Put(&region)
}

func aligned(n int) []byte {
	words := make([]uint64, (n+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), n)
}

// GetBuffer takes a region from the shared pool.
func GetBuffer(size int) []byte {
	return globalPool.Get(size)
}

// PutBuffer returns a region to the shared pool.
func PutBuffer(region []byte) {
	globalPool.Put(region)
}
