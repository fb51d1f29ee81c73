package buffer

import (
	"fmt"
	"testing"
	"unsafe"
)

func TestClassOf(t *testing.T) {
	tests := []struct {
		size  int
		class int
	}{
		{1, 0},
		{1024, 0},
		{1025, 1},
		{32 * 1024, 5},
		{33 * 1024, 6},
		{256 * 1024, numClasses - 1},
		{256*1024 + 1, -1},
	}

	for _, tt := range tests {
		if got := classOf(tt.size); got != tt.class {
			t.Errorf("classOf(%d) = %d; want %d", tt.size, got, tt.class)
		}
	}
}

func TestPoolDropsForeignRegions(t *testing.T) {
	pool := NewPool()

	pool.Put(make([]byte, 3000))
	pool.Put(make([]byte, 512))
	pool.Put(nil)

	if buf := pool.Get(3000); cap(buf) != 4096 {
		t.Errorf("expected a pooled 4096-byte region, got cap %d", cap(buf))
	}
}

func TestPoolGetPut(t *testing.T) {
	pool := NewPool()

	sizes := []int{8, 1024, 3 * 1024, 32 * 1024, 256 * 1024, 300 * 1024}

	for _, size := range sizes {
		buf := pool.Get(size)
		if len(buf) != size {
			t.Errorf("Get(%d) returned buffer of length %d", size, len(buf))
		}
		if uintptr(unsafe.Pointer(&buf[0]))%8 != 0 {
			t.Errorf("Get(%d) returned unaligned buffer", size)
		}

		pool.Put(buf)
	}
}

func TestPoolReturnsZeroedRegions(t *testing.T) {
	pool := NewPool()

	for i := 0; i < 20; i++ {
		buf := pool.Get(2048)
		for j, b := range buf {
			if b != 0 {
				t.Fatalf("byte %d not zeroed: %d", j, b)
			}
		}
		for j := range buf {
			buf[j] = 0xAA
		}
		pool.Put(buf)
	}
}

func TestPoolConcurrency(t *testing.T) {
	pool := NewPool()
	done := make(chan bool)
	workers := 10
	iterations := 1000

	for i := 0; i < workers; i++ {
		go func() {
			for j := 0; j < iterations; j++ {
				buf := pool.Get(32 * 1024)
				buf[0] = byte(j)
				pool.Put(buf)
			}
			done <- true
		}()
	}

	for i := 0; i < workers; i++ {
		<-done
	}
}

func BenchmarkPoolGetPut(b *testing.B) {
	pool := NewPool()

	sizes := []int{1024, 4096, 32 * 1024, 256 * 1024}

	for _, size := range sizes {
		b.Run(fmt.Sprintf("Size_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				buf := pool.Get(size)
				pool.Put(buf)
			}
		})
	}
}
