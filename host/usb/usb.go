package usb

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/pkg"
)

// Bounce is a bounce buffer attached to one request.
type Bounce struct {
	pool *Pool
	buf  []byte
}

// Bytes returns the staged data. The controller transfers to and from
// this slice.
func (b *Bounce) Bytes() []byte {
	return b.buf
}

// Release returns the buffer to its pool. Releasing twice is a no-op.
func (b *Bounce) Release() error {
	if b.buf == nil {
		return nil
	}
	b.pool.Put(b.buf)
	b.buf = nil
	return nil
}

// BounceOf returns the bounce buffer attached to req.
func BounceOf(req *host.Request) (*Bounce, bool) {
	for _, res := range req.Resources() {
		if b, ok := res.(*Bounce); ok {
			return b, true
		}
	}
	return nil, false
}

// Processor stages request data through bounce buffers.
type Processor struct {
	pool *Pool
}

// NewProcessor creates a processor drawing from pool.
func NewProcessor(pool *Pool) *Processor {
	return &Processor{pool: pool}
}

// PreprocessRequest takes a bounce buffer for the request and, for
// writes, gathers the caller's buffers into it.
func (p *Processor) PreprocessRequest(ctx context.Context, req *host.Request) error {
	if req.Data == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := req.Data.Validate(); err != nil {
		return err
	}

	n := req.Data.Len()
	buf, err := p.pool.Get(n)
	if err != nil {
		return err
	}
	b := &Bounce{pool: p.pool, buf: buf}
	req.Attach(b)

	if req.Data.Direction == host.DirWrite {
		off := 0
		for _, src := range req.Data.Buffers {
			off += copy(buf[off:], src)
		}
	}

	pkg.LogDebug(pkg.ComponentRequest, "bounce buffer staged",
		"request", req.ID,
		"direction", req.Data.Direction,
		"size", humanize.IBytes(uint64(n)))
	return nil
}

// PostprocessRequest scatters read data back to the caller when the
// transfer succeeded, then releases the bounce buffer.
func (p *Processor) PostprocessRequest(ctx context.Context, req *host.Request) error {
	if req.Data != nil && req.Data.Direction == host.DirRead && req.Succeeded() {
		if b, ok := BounceOf(req); ok && b.buf != nil {
			off := 0
			for _, dst := range req.Data.Buffers {
				off += copy(dst, b.buf[off:])
			}
		}
	}
	if err := req.ReleaseAll(); err != nil {
		return fmt.Errorf("release %s: %w", req.ID, err)
	}
	return nil
}

// NewDevice creates a USB host device that stages transfers through pool.
func NewDevice(name string, driver host.Driver, pool *Pool, opts ...host.Option) *host.BaseDevice {
	opts = append([]host.Option{host.WithProcessor(NewProcessor(pool))}, opts...)
	return host.New(name, driver, opts...)
}
