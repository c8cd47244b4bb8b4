package pcie

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/pkg"
)

// Table is the scatter-gather table of one request.
type Table struct {
	mapper Mapper
	segs   []Segment
}

// Segments returns the mapped segments in buffer order.
func (t *Table) Segments() []Segment {
	return t.segs
}

// Len returns the number of mapped bytes.
func (t *Table) Len() int {
	n := 0
	for _, s := range t.segs {
		n += s.Len
	}
	return n
}

// Release unmaps every segment in reverse order and returns the first
// failure. The table is empty afterwards.
func (t *Table) Release() error {
	var first error
	for i := len(t.segs) - 1; i >= 0; i-- {
		if err := t.mapper.Unmap(t.segs[i]); err != nil && first == nil {
			first = err
		}
	}
	t.segs = t.segs[:0]
	return first
}

// TableOf returns the scatter-gather table attached to req.
func TableOf(req *host.Request) (*Table, bool) {
	for _, res := range req.Resources() {
		if t, ok := res.(*Table); ok {
			return t, true
		}
	}
	return nil, false
}

// Processor builds a scatter-gather table in preprocess and tears it down
// in postprocess.
type Processor struct {
	mapper      Mapper
	maxSegments int
}

// NewProcessor creates a processor that maps through m into tables of at
// most maxSegments entries.
func NewProcessor(m Mapper, maxSegments int) *Processor {
	return &Processor{mapper: m, maxSegments: maxSegments}
}

// PreprocessRequest maps the request's buffers. Commands without a data
// phase are left untouched. If a mapping fails the segments mapped so far
// stay attached and the error wraps [pkg.ErrResourceUnavailable].
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

	bufs := req.Data.Buffers
	if len(bufs) > p.maxSegments {
		return fmt.Errorf("%w: %d buffers exceed %d table entries",
			pkg.ErrResourceUnavailable, len(bufs), p.maxSegments)
	}

	t := &Table{mapper: p.mapper, segs: make([]Segment, 0, len(bufs))}
	req.Attach(t)

	for i, buf := range bufs {
		seg, err := p.mapper.Map(buf, req.Data.Direction)
		if err != nil {
			return fmt.Errorf("%w: map buffer %d: %v", pkg.ErrResourceUnavailable, i, err)
		}
		t.segs = append(t.segs, seg)
	}

	pkg.LogDebug(pkg.ComponentRequest, "scatter-gather table mapped",
		"request", req.ID,
		"segments", len(t.segs),
		"size", humanize.IBytes(uint64(t.Len())))
	return nil
}

// PostprocessRequest unmaps whatever preprocess attached.
func (p *Processor) PostprocessRequest(ctx context.Context, req *host.Request) error {
	if err := req.ReleaseAll(); err != nil {
		return fmt.Errorf("release %s: %w", req.ID, err)
	}
	return nil
}

// NewDevice creates a PCIe host device whose request hooks map buffers
// through m.
func NewDevice(name string, driver host.Driver, m Mapper, maxSegments int, opts ...host.Option) *host.BaseDevice {
	opts = append([]host.Option{host.WithProcessor(NewProcessor(m, maxSegments))}, opts...)
	return host.New(name, driver, opts...)
}
