package buf

// Inspired by https://github.com/xtaci/smux/blob/master/alloc.go

import (
	"errors"
	"math/bits"
	"sync"
)

const (
	minPooledBits = 6
	maxPooledBits = 16
)

var DefaultAllocator = newDefaultAllocator()

type Allocator interface {
	Get(size int) []byte
	Put(buf []byte) error
}

// defaultAllocator hands out power-of-two slices from 64B to 64K.
// Larger requests are allocated directly and never pooled.
type defaultAllocator struct {
	buffers [maxPooledBits - minPooledBits + 1]sync.Pool
}

func newDefaultAllocator() Allocator {
	alloc := new(defaultAllocator)
	for i := range alloc.buffers {
		size := 1 << (i + minPooledBits)
		alloc.buffers[i].New = func() any {
			buffer := make([]byte, size)
			return &buffer
		}
	}
	return alloc
}

func (alloc *defaultAllocator) Get(size int) []byte {
	if size <= 0 {
		return nil
	}
	if size > 1<<maxPooledBits {
		return make([]byte, size)
	}
	var index int
	if size > 1<<minPooledBits {
		index = msb(size)
		if size != 1<<index {
			index++
		}
		index -= minPooledBits
	}
	buffer := alloc.buffers[index].Get().(*[]byte)
	return (*buffer)[:size]
}

// Put returns a slice obtained from Get; its capacity must be exactly 2^n within the pooled range.
func (alloc *defaultAllocator) Put(buf []byte) error {
	capacity := cap(buf)
	index := msb(capacity)
	if capacity < 1<<minPooledBits || capacity > 1<<maxPooledBits || capacity != 1<<index {
		return errors.New("allocator Put() incorrect buffer size")
	}
	buf = buf[:capacity]
	alloc.buffers[index-minPooledBits].Put(&buf)
	return nil
}

func Get(size int) []byte {
	return DefaultAllocator.Get(size)
}

// Put recycles buf when it came from the pooled range and drops it otherwise.
func Put(buf []byte) {
	_ = DefaultAllocator.Put(buf)
}

func msb(size int) int {
	return bits.Len(uint(size)) - 1
}
