package fifo

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/sdhost/host/hal"
)

// countingSink counts gated events.
type countingSink struct {
	mu       sync.Mutex
	inserted int
	removed  int
	order    []hal.Event
}

func (s *countingSink) OnCardInsertedGated(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted++
	s.order = append(s.order, hal.EventInserted)
}

func (s *countingSink) OnCardRemovedGated(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed++
	s.order = append(s.order, hal.EventRemoved)
}

func (s *countingSink) snapshot() (int, int, []hal.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserted, s.removed, append([]hal.Event(nil), s.order...)
}

var _ hal.Controller = (*Controller)(nil)

func TestController_Reader(t *testing.T) {
	src := bytes.NewReader([]byte{SigInserted, SigRemoved, 0x7f, SigInserted, SigInserted})
	c := NewReader("sim", src)
	sink := &countingSink{}
	require.NoError(t, c.Attach(sink))

	require.NoError(t, c.Run(context.Background()))

	inserted, removed, order := sink.snapshot()
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []hal.Event{hal.EventInserted, hal.EventRemoved, hal.EventInserted}, order)
	assert.Equal(t, "sim", c.Name())
	assert.Empty(t, c.Path())
}

func TestController_ReaderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewReader("sim", bytes.NewReader([]byte{SigInserted}))
	sink := &countingSink{}
	require.NoError(t, c.Attach(sink))

	require.NoError(t, c.Run(ctx))
	inserted, _, _ := sink.snapshot()
	assert.Zero(t, inserted)
}

func TestCreate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bus", "card")
	require.NoError(t, Create(path))
	require.NoError(t, Create(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeNamedPipe)
}

func TestSignal_NoReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card")
	require.NoError(t, Create(path))
	assert.ErrorIs(t, Signal(path, true), ErrNoReader)
}

func TestSignal_Missing(t *testing.T) {
	assert.ErrorIs(t, Signal(filepath.Join(t.TempDir(), "missing"), true), ErrFIFOOpen)
}

func TestController_FIFO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "card")
	c := New("rtsx", path)
	sink := &countingSink{}
	require.NoError(t, c.Attach(sink))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Wait for the controller to open the FIFO.
	require.Eventually(t, func() bool {
		return Signal(path, true) == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		inserted, _, _ := sink.snapshot()
		return inserted == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, Signal(path, false))
	require.Eventually(t, func() bool {
		_, removed, _ := sink.snapshot()
		return removed == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
