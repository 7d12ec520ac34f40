package reactor

import "sync"

// bufferPool hands out fixed-size read buffers. Each receive pump holds
// one buffer for its whole lifetime.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	p := &bufferPool{size: size}
	p.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}
	return p
}

func (p *bufferPool) get() *[]byte {
	return p.pool.Get().(*[]byte)
}

func (p *bufferPool) put(buf *[]byte) {
	if cap(*buf) != p.size {
		return
	}
	*buf = (*buf)[:p.size]
	p.pool.Put(buf)
}
