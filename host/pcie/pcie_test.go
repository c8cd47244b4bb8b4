package pcie

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/pkg"
)

func readRequest(blocks int, bufs ...[]byte) *host.Request {
	return host.NewRequest(
		host.Command{Opcode: host.CmdReadMultipleBlock, Response: host.RespR1},
		&host.Data{Direction: host.DirRead, BlockSize: 512, Blocks: blocks, Buffers: bufs},
	)
}

func TestProcessorNoData(t *testing.T) {
	w := NewWindow(0, 16*PageSize)
	p := NewProcessor(w, 4)
	req := host.NewRequest(host.Command{Opcode: host.CmdGoIdleState}, nil)

	require.NoError(t, p.PreprocessRequest(context.Background(), req))
	assert.Zero(t, req.Attached())
	require.NoError(t, p.PostprocessRequest(context.Background(), req))
}

func TestProcessorMapsEveryBuffer(t *testing.T) {
	w := NewWindow(0, 16*PageSize)
	p := NewProcessor(w, 4)
	req := readRequest(3, make([]byte, 512), make([]byte, 1024))

	require.NoError(t, p.PreprocessRequest(context.Background(), req))

	tbl, ok := TableOf(req)
	require.True(t, ok)
	assert.Len(t, tbl.Segments(), 2)
	assert.Equal(t, 1536, tbl.Len())
	assert.Equal(t, 2, w.Mapped())

	require.NoError(t, p.PostprocessRequest(context.Background(), req))
	assert.Zero(t, w.Mapped())
	assert.Zero(t, req.Attached())
	assert.Equal(t, uint64(16*PageSize), w.Available())
}

func TestProcessorTooManySegments(t *testing.T) {
	w := NewWindow(0, 16*PageSize)
	p := NewProcessor(w, 1)
	req := readRequest(2, make([]byte, 512), make([]byte, 512))

	err := p.PreprocessRequest(context.Background(), req)
	assert.ErrorIs(t, err, pkg.ErrResourceUnavailable)
	assert.Zero(t, req.Attached())
	assert.Zero(t, w.Mapped())
}

func TestProcessorInvalidData(t *testing.T) {
	p := NewProcessor(NewWindow(0, 16*PageSize), 4)
	req := readRequest(2, make([]byte, 512))

	err := p.PreprocessRequest(context.Background(), req)
	assert.ErrorIs(t, err, pkg.ErrInvalidRequest)
}

func TestProcessorCancelled(t *testing.T) {
	p := NewProcessor(NewWindow(0, 16*PageSize), 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PreprocessRequest(ctx, readRequest(1, make([]byte, 512)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessorPartialMappingReleased(t *testing.T) {
	// Room for the first buffer only.
	w := NewWindow(0, PageSize)
	p := NewProcessor(w, 4)
	req := readRequest(2, make([]byte, 512), make([]byte, 512))

	transferred := false
	err := host.ProcessRequest(context.Background(), p, req, func(context.Context, *host.Request) error {
		transferred = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrResourceUnavailable)
	stage, ok := host.StageOf(err)
	require.True(t, ok)
	assert.Equal(t, pkg.StagePreprocess, stage)

	assert.False(t, transferred)
	assert.Zero(t, w.Mapped(), "partial mapping leaked")
	assert.Zero(t, req.Attached())
	assert.Equal(t, uint64(PageSize), w.Available())
}

// failingMapper maps normally but refuses to unmap.
type failingMapper struct {
	*Window
	unmaps int
}

var errUnmap = errors.New("unmap refused")

func (f *failingMapper) Unmap(seg Segment) error {
	f.unmaps++
	return errUnmap
}

func TestProcessorReleaseFailure(t *testing.T) {
	m := &failingMapper{Window: NewWindow(0, 16*PageSize)}
	p := NewProcessor(m, 4)
	req := readRequest(2, make([]byte, 512), make([]byte, 512))

	require.NoError(t, p.PreprocessRequest(context.Background(), req))
	err := p.PostprocessRequest(context.Background(), req)
	assert.ErrorIs(t, err, errUnmap)
	assert.Equal(t, 2, m.unmaps, "every segment is unmapped")

	// The slot is cleared, so a second pass has nothing to free.
	require.NoError(t, p.PostprocessRequest(context.Background(), req))
	assert.Equal(t, 2, m.unmaps)
}

type nopDriver struct{}

func (nopDriver) OnSDCardInsertedGated(context.Context) {}
func (nopDriver) OnSDCardRemovedGated(context.Context)  {}

func TestNewDevice(t *testing.T) {
	w := NewWindow(0, 16*PageSize)
	dev := NewDevice("pcie0", nopDriver{}, w, 4)
	require.NoError(t, dev.Initialize(nil))
	assert.Equal(t, "pcie0", dev.Name())

	req := readRequest(1, make([]byte, 512))
	var mappedDuringTransfer int
	err := host.ProcessRequest(context.Background(), dev, req, func(ctx context.Context, r *host.Request) error {
		tbl, ok := TableOf(r)
		if ok {
			mappedDuringTransfer = len(tbl.Segments())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, mappedDuringTransfer)
	assert.Zero(t, w.Mapped())
}
