package usb

import (
	"fmt"

	"github.com/ardnew/sdhost/pkg"
)

// Pool is a fixed set of equally sized bounce buffers.
type Pool struct {
	size int
	free chan []byte
}

// NewPool allocates count buffers of size bytes each.
func NewPool(count, size int) *Pool {
	p := &Pool{size: size, free: make(chan []byte, count)}
	for i := 0; i < count; i++ {
		p.free <- make([]byte, size)
	}
	return p
}

// Get takes a buffer without waiting. It fails with
// [pkg.ErrResourceUnavailable] when n exceeds the buffer size or the pool
// is exhausted.
func (p *Pool) Get(n int) ([]byte, error) {
	if n > p.size {
		return nil, fmt.Errorf("%w: %d bytes exceed %d byte bounce buffer",
			pkg.ErrResourceUnavailable, n, p.size)
	}
	select {
	case b := <-p.free:
		return b[:n], nil
	default:
		return nil, fmt.Errorf("%w: bounce buffers exhausted", pkg.ErrResourceUnavailable)
	}
}

// Put returns b to the pool.
func (p *Pool) Put(b []byte) {
	clear(b[:cap(b)])
	select {
	case p.free <- b[:cap(b)]:
	default:
		pkg.LogWarn(pkg.ComponentRequest, "bounce buffer returned to full pool")
	}
}

// Size returns the size of each buffer.
func (p *Pool) Size() int {
	return p.size
}

// Cap returns the number of buffers the pool holds.
func (p *Pool) Cap() int {
	return cap(p.free)
}

// Available returns the number of idle buffers.
func (p *Pool) Available() int {
	return len(p.free)
}
