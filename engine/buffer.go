package engine

import (
	"sync"
)

// DefaultChunkSize is the block size for streaming copies and digests.
// 4MB bounds peak memory per stream while keeping syscall counts low.
const DefaultChunkSize = 4 * 1024 * 1024

// BufferPool manages reusable byte buffers so concurrent transfers do not
// churn the garbage collector.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a new BufferPool that allocates buffers of the
// specified size. If size is <= 0, DefaultChunkSize is used.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a reusable byte buffer from the pool.
// The caller should defer calling Put on this buffer once finished.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns the byte buffer to the pool so it can be reused.
// The caller should not hold onto or read/write the buffer after calling Put.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}

// Size returns the chunk size of buffers handed out by the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}
