package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/ardnew/sdhost/host"
	"github.com/ardnew/sdhost/host/pcie"
	"github.com/ardnew/sdhost/host/usb"
	"github.com/ardnew/sdhost/pkg"
)

// cardDriver is the host driver run by sdhostctl. Its gated handlers only
// record the latest presence and wake the worker; the worker logs the
// change and probes a newly inserted card.
type cardDriver struct {
	present atomic.Bool
	wake    chan struct{}

	dev    host.RequestProcessor
	probes atomic.Uint64
}

func newCardDriver() *cardDriver {
	return &cardDriver{wake: make(chan struct{}, 1)}
}

// OnSDCardInsertedGated records an insertion.
func (d *cardDriver) OnSDCardInsertedGated(ctx context.Context) {
	d.present.Store(true)
	d.notify()
}

// OnSDCardRemovedGated records a removal.
func (d *cardDriver) OnSDCardRemovedGated(ctx context.Context) {
	d.present.Store(false)
	d.notify()
}

func (d *cardDriver) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Probes returns the number of completed card probes.
func (d *cardDriver) Probes() uint64 {
	return d.probes.Load()
}

// serve handles presence changes until ctx is done. Changes that cancel
// out before the worker wakes are not reported.
func (d *cardDriver) serve(ctx context.Context) error {
	seen := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		}

		present := d.present.Load()
		if present == seen {
			continue
		}
		seen = present

		if !present {
			pkg.LogInfo(pkg.ComponentDriver, "card removed")
			continue
		}
		pkg.LogInfo(pkg.ComponentDriver, "card inserted")
		if err := d.probe(ctx); err != nil {
			pkg.LogWarn(pkg.ComponentDriver, "card probe failed", "error", err)
		}
	}
}

// probe issues a status command and a single block read.
func (d *cardDriver) probe(ctx context.Context) error {
	status := host.NewRequest(host.Command{Opcode: host.CmdSendStatus, Response: host.RespR1}, nil)
	if err := host.ProcessRequest(ctx, d.dev, status, loopbackTransfer); err != nil {
		return fmt.Errorf("send status: %w", err)
	}

	block := make([]byte, host.DefaultBlockSize)
	read := host.NewRequest(
		host.Command{Opcode: host.CmdReadSingleBlock, Response: host.RespR1},
		&host.Data{
			Direction: host.DirRead,
			BlockSize: host.DefaultBlockSize,
			Blocks:    1,
			Buffers:   [][]byte{block},
		},
	)
	if err := host.ProcessRequest(ctx, d.dev, read, loopbackTransfer); err != nil {
		return fmt.Errorf("read block 0: %w", err)
	}

	d.probes.Add(1)
	pkg.LogInfo(pkg.ComponentDriver, "card probed", "request", read.ID)
	return nil
}

// loopbackTransfer stands in for a controller without a data path. It
// reports what the request hooks prepared and succeeds.
func loopbackTransfer(ctx context.Context, req *host.Request) error {
	attrs := []any{"request", req}
	if t, ok := pcie.TableOf(req); ok {
		attrs = append(attrs, "segments", len(t.Segments()))
	}
	if b, ok := usb.BounceOf(req); ok {
		attrs = append(attrs, "bounce", humanize.IBytes(uint64(len(b.Bytes()))))
	}
	pkg.LogDebug(pkg.ComponentDriver, "transfer", attrs...)
	return ctx.Err()
}
