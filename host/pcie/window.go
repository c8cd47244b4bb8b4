package pcie

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/pkg"
)

// PageSize is the mapping granularity of a Window.
const PageSize = 4096

// ErrNotMapped indicates an unmap of an address that is not mapped.
var ErrNotMapped = errors.New("segment not mapped")

// Segment is one entry of a scatter-gather table.
type Segment struct {
	Addr uint64 // Bus address
	Len  int    // Length in bytes
}

// Mapper maps caller buffers into bus address space.
type Mapper interface {
	Map(buf []byte, dir host.Direction) (Segment, error)
	Unmap(seg Segment) error
}

// span is a free range of a Window.
type span struct {
	addr uint64
	size uint64
}

// Window allocates bus addresses from the aperture [base, base+size).
type Window struct {
	mu     sync.Mutex
	base   uint64
	size   uint64
	free   []span            // Sorted by address, coalesced
	mapped map[uint64]uint64 // Address to allocated size
}

// NewWindow creates a window over [base, base+size). Both are rounded to
// PageSize.
func NewWindow(base, size uint64) *Window {
	base = alignUp(base)
	size &^= PageSize - 1
	return &Window{
		base:   base,
		size:   size,
		free:   []span{{addr: base, size: size}},
		mapped: make(map[uint64]uint64),
	}
}

func alignUp(n uint64) uint64 {
	return (n + PageSize - 1) &^ (PageSize - 1)
}

// Map allocates a page-aligned range for buf using first fit.
func (w *Window) Map(buf []byte, dir host.Direction) (Segment, error) {
	if len(buf) == 0 {
		return Segment{}, fmt.Errorf("%w: empty buffer", pkg.ErrInvalidRequest)
	}
	need := alignUp(uint64(len(buf)))

	w.mu.Lock()
	defer w.mu.Unlock()

	for i, s := range w.free {
		if s.size < need {
			continue
		}
		addr := s.addr
		if s.size == need {
			w.free = append(w.free[:i], w.free[i+1:]...)
		} else {
			w.free[i] = span{addr: s.addr + need, size: s.size - need}
		}
		w.mapped[addr] = need
		return Segment{Addr: addr, Len: len(buf)}, nil
	}
	return Segment{}, fmt.Errorf("%w: no %d byte range in DMA window", pkg.ErrResourceUnavailable, need)
}

// Unmap returns seg's range to the window.
func (w *Window) Unmap(seg Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	size, ok := w.mapped[seg.Addr]
	if !ok {
		return fmt.Errorf("%w: %#x", ErrNotMapped, seg.Addr)
	}
	delete(w.mapped, seg.Addr)

	// Insert in address order, then merge with neighbours.
	i := 0
	for i < len(w.free) && w.free[i].addr < seg.Addr {
		i++
	}
	w.free = append(w.free, span{})
	copy(w.free[i+1:], w.free[i:])
	w.free[i] = span{addr: seg.Addr, size: size}

	if i+1 < len(w.free) && w.free[i].addr+w.free[i].size == w.free[i+1].addr {
		w.free[i].size += w.free[i+1].size
		w.free = append(w.free[:i+1], w.free[i+2:]...)
	}
	if i > 0 && w.free[i-1].addr+w.free[i-1].size == w.free[i].addr {
		w.free[i-1].size += w.free[i].size
		w.free = append(w.free[:i], w.free[i+1:]...)
	}
	return nil
}

// Mapped returns the number of live mappings.
func (w *Window) Mapped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.mapped)
}

// Available returns the number of unmapped bytes.
func (w *Window) Available() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	var n uint64
	for _, s := range w.free {
		n += s.size
	}
	return n
}

// Size returns the aperture size.
func (w *Window) Size() uint64 {
	return w.size
}
