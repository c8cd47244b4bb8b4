package fifo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"github.com/ardnew/sdhost/host/gate"
	"github.com/ardnew/sdhost/host/hal"
	"github.com/ardnew/sdhost/pkg"
)

// Signal bytes.
const (
	SigInserted = 0x01 // Card inserted
	SigRemoved  = 0x00 // Card removed
)

// Timing constants.
const (
	readTimeout = 100 * time.Millisecond // Read deadline between ctx checks
)

// Errors.
var (
	ErrFIFOCreate = errors.New("failed to create FIFO")
	ErrFIFOOpen   = errors.New("failed to open FIFO")
	ErrNoReader   = errors.New("no controller reading FIFO")
)

// Controller is a card reader controller fed by signal bytes.
type Controller struct {
	*hal.Notifier

	name string
	path string    // FIFO path, empty when reading src
	src  io.Reader // Signal source when not using a FIFO
}

// New creates a controller that reads signals from the FIFO at path.
func New(name, path string, opts ...gate.Option) *Controller {
	return &Controller{
		Notifier: hal.NewNotifier(gate.New(name, opts...)),
		name:     name,
		path:     path,
	}
}

// NewReader creates a controller that reads signals from r until EOF.
func NewReader(name string, r io.Reader, opts ...gate.Option) *Controller {
	return &Controller{
		Notifier: hal.NewNotifier(gate.New(name, opts...)),
		name:     name,
		src:      r,
	}
}

// Name returns the controller name.
func (c *Controller) Name() string {
	return c.name
}

// Path returns the FIFO path, or "" for a reader-backed controller.
func (c *Controller) Path() string {
	return c.path
}

// Run reads signals until ctx is cancelled. A reader-backed controller also
// returns nil when its reader is exhausted.
func (c *Controller) Run(ctx context.Context) error {
	if c.src != nil {
		return c.runReader(ctx, c.src)
	}

	if err := Create(c.path); err != nil {
		return err
	}

	// Open with O_RDWR so the open does not wait for a writer and reads
	// never see EOF when a writer goes away.
	f, err := os.OpenFile(c.path, os.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFIFOOpen, err)
	}
	defer f.Close()

	pkg.LogInfo(pkg.ComponentHAL, "fifo controller started", "controller", c.name, "path", c.path)

	var buf [1]byte
	for {
		select {
		case <-ctx.Done():
			pkg.LogInfo(pkg.ComponentHAL, "fifo controller stopped", "controller", c.name)
			return nil
		default:
		}

		f.SetReadDeadline(time.Now().Add(readTimeout))
		n, err := f.Read(buf[:])
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			return fmt.Errorf("read %s: %w", c.path, err)
		}
		if n > 0 {
			c.dispatch(ctx, buf[0])
		}
	}
}

// runReader reads signals from r until EOF or cancellation.
func (c *Controller) runReader(ctx context.Context, r io.Reader) error {
	var buf [64]byte
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		n, err := r.Read(buf[:])
		for _, b := range buf[:n] {
			c.dispatch(ctx, b)
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}
	}
}

// dispatch delivers the event encoded by sig.
func (c *Controller) dispatch(ctx context.Context, sig byte) {
	var ev hal.Event
	switch sig {
	case SigInserted:
		ev = hal.EventInserted
	case SigRemoved:
		ev = hal.EventRemoved
	default:
		pkg.LogWarn(pkg.ComponentHAL, "unknown signal", "controller", c.name, "signal", sig)
		return
	}
	if c.Notify(ctx, ev) {
		pkg.LogDebug(pkg.ComponentHAL, "card event delivered", "controller", c.name, "event", ev)
	}
}

// Create makes the FIFO at path and its parent directory if they do not
// exist.
func Create(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrFIFOCreate, err)
	}
	if err := unix.Mkfifo(path, 0o600); err != nil && !errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("%w: %v", ErrFIFOCreate, err)
	}
	return nil
}

// Signal writes a single insert or remove signal to the FIFO at path.
// It fails with [ErrNoReader] if no controller has the FIFO open.
func Signal(path string, inserted bool) error {
	f, err := os.OpenFile(path, os.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return fmt.Errorf("%w: %s", ErrNoReader, path)
		}
		return fmt.Errorf("%w: %v", ErrFIFOOpen, err)
	}
	defer f.Close()

	sig := byte(SigRemoved)
	if inserted {
		sig = SigInserted
	}
	if _, err := f.Write([]byte{sig}); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
