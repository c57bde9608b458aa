package protocol

import "github.com/valyala/bytebufferpool"

// BufferPool rents scratch byte buffers. Buffers come from a
// bytebufferpool.Pool, which calibrates its default size to what callers
// actually use, so steady-state encoding does not grow buffers at all.
//
// BufferPool is safe for concurrent use.
type BufferPool struct {
	pool bytebufferpool.Pool
}

// NewBufferPool creates an empty BufferPool.
func NewBufferPool() *BufferPool {
	return &BufferPool{}
}

// Get returns an empty buffer.
func (p *BufferPool) Get() *bytebufferpool.ByteBuffer {
	return p.pool.Get()
}

// Put returns b to the pool. b must not be used afterwards.
func (p *BufferPool) Put(b *bytebufferpool.ByteBuffer) {
	p.pool.Put(b)
}

var defaultBufferPool = NewBufferPool()
