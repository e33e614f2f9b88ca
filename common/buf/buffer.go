package buf

import "strconv"

const BufferSize = 4096

// Buffer is a FIFO byte queue: Write appends at the tail, Advance discards from the head.
// Storage grows on demand and is compacted before it grows.
type Buffer struct {
	data  []byte
	start int
	end   int
}

func NewSize(size int) *Buffer {
	data := Get(size)
	return &Buffer{data: data[:cap(data)]}
}

func (b *Buffer) Write(data []byte) (n int, err error) {
	if len(data) == 0 {
		return
	}
	b.ensure(len(data))
	n = copy(b.data[b.end:], data)
	b.end += n
	return
}

func (b *Buffer) ensure(n int) {
	if b.end+n <= len(b.data) {
		return
	}
	length := b.Len()
	if length+n <= len(b.data) {
		copy(b.data, b.data[b.start:b.end])
		b.start = 0
		b.end = length
		return
	}
	size := len(b.data) * 2
	if size < length+n {
		size = length + n
	}
	data := Get(size)
	data = data[:cap(data)]
	copy(data, b.data[b.start:b.end])
	Put(b.data)
	b.data = data
	b.start = 0
	b.end = length
}

// Advance discards n bytes from the head.
func (b *Buffer) Advance(n int) {
	if n < 0 || n > b.Len() {
		panic("buffer advance out of range: length " + strconv.Itoa(b.Len()) + ", advance " + strconv.Itoa(n))
	}
	b.start += n
	if b.start == b.end {
		b.start = 0
		b.end = 0
	}
}

func (b *Buffer) Start() int {
	return b.start
}

func (b *Buffer) Len() int {
	return b.end - b.start
}

func (b *Buffer) Cap() int {
	return len(b.data)
}

func (b *Buffer) Bytes() []byte {
	return b.data[b.start:b.end]
}

func (b *Buffer) IsEmpty() bool {
	return b.end == b.start
}

func (b *Buffer) Release() {
	if b == nil || b.data == nil {
		return
	}
	Put(b.data)
	*b = Buffer{}
}
