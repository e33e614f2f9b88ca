package buf

const (
	DefaultChunkSize  = 4096
	DefaultChunkCount = 128
)

// ChunkList accumulates bytes in fixed-size chunks until Concat joins them once.
type ChunkList struct {
	chunkSize int
	chunks    [][]byte
	used      int
}

// NewChunkList reserves room for chunkCount chunks; chunk memory is taken lazily.
func NewChunkList(chunkSize int, chunkCount int) *ChunkList {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkCount <= 0 {
		chunkCount = 1
	}
	return &ChunkList{
		chunkSize: chunkSize,
		chunks:    make([][]byte, 0, chunkCount),
	}
}

func (l *ChunkList) Write(data []byte) (n int, err error) {
	for len(data) > 0 {
		offset := l.used % l.chunkSize
		if offset == 0 {
			l.chunks = append(l.chunks, Get(l.chunkSize))
		}
		chunk := l.chunks[len(l.chunks)-1]
		written := copy(chunk[offset:], data)
		data = data[written:]
		l.used += written
		n += written
	}
	return
}

func (l *ChunkList) Len() int {
	return l.used
}

func (l *ChunkList) Chunks() int {
	return len(l.chunks)
}

// Concat returns the accumulated bytes as one slice owned by the caller and empties the list.
func (l *ChunkList) Concat() []byte {
	if l.used == 0 {
		return nil
	}
	data := make([]byte, l.used)
	var offset int
	for _, chunk := range l.chunks {
		offset += copy(data[offset:], chunk)
	}
	l.Release()
	return data
}

// Release returns all chunks to the allocator; the list stays usable.
func (l *ChunkList) Release() {
	for i, chunk := range l.chunks {
		Put(chunk)
		l.chunks[i] = nil
	}
	l.chunks = l.chunks[:0]
	l.used = 0
}
