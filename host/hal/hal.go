package hal

import (
	"context"
	"sync/atomic"

	"github.com/ardnew/sdhost/host/gate"
	"github.com/ardnew/sdhost/pkg"
)

// Event is a card event detected by a controller.
type Event uint8

// Card events.
const (
	EventNone     Event = iota // No event delivered yet
	EventInserted              // A card was inserted
	EventRemoved               // The card was removed
)

// String returns a human-readable event name.
func (e Event) String() string {
	switch e {
	case EventInserted:
		return "inserted"
	case EventRemoved:
		return "removed"
	default:
		return "none"
	}
}

// CardEventSink receives card events from a controller.
//
// Both methods are invoked strictly from within the controller's gate and
// must not block: no I/O, no sleeping locks, no allocation that may retry.
type CardEventSink interface {
	OnCardInsertedGated(ctx context.Context)
	OnCardRemovedGated(ctx context.Context)
}

// Controller is a card reader controller that provides card events.
type Controller interface {
	// Name identifies the controller in the power tree and in logs.
	Name() string

	// Attach binds sink as the receiver of card events.
	Attach(sink CardEventSink) error

	// Detach releases sink. No event is delivered to sink after Detach
	// returns.
	Detach(sink CardEventSink) error

	// Run detects card events until ctx is cancelled or the event source
	// is exhausted.
	Run(ctx context.Context) error
}

// Notifier delivers card events to an attached sink under a gate.
//
// The sink and the last delivered event are only accessed while holding the
// gate. Repeated identical events are collapsed into one.
type Notifier struct {
	gate *gate.Gate

	sink CardEventSink
	last Event

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewNotifier creates a notifier that dispatches under g.
func NewNotifier(g *gate.Gate) *Notifier {
	return &Notifier{gate: g}
}

// Gate returns the gate events are delivered under.
func (n *Notifier) Gate() *gate.Gate {
	return n.gate
}

// Attach binds sink. Attach must not be called from a gated action.
func (n *Notifier) Attach(sink CardEventSink) error {
	var err error
	n.gate.RunAction(context.Background(), func(context.Context) {
		if n.sink != nil {
			err = pkg.ErrAlreadyAttached
			return
		}
		n.sink = sink
		n.last = EventNone
	})
	return err
}

// Detach releases sink. Detach must not be called from a gated action.
func (n *Notifier) Detach(sink CardEventSink) error {
	var err error
	n.gate.RunAction(context.Background(), func(context.Context) {
		if n.sink == nil || n.sink != sink {
			err = pkg.ErrNotAttached
			return
		}
		n.sink = nil
	})
	return err
}

// Notify enters the gate and delivers ev to the attached sink. It reports
// whether the sink was called.
func (n *Notifier) Notify(ctx context.Context, ev Event) bool {
	called := false
	n.gate.RunAction(ctx, func(ctx context.Context) {
		if n.sink == nil {
			n.dropped.Add(1)
			return
		}
		if ev == n.last {
			return
		}
		switch ev {
		case EventInserted:
			n.sink.OnCardInsertedGated(ctx)
		case EventRemoved:
			n.sink.OnCardRemovedGated(ctx)
		default:
			return
		}
		n.last = ev
		n.delivered.Add(1)
		called = true
	})
	return called
}

// Delivered returns the number of events delivered to a sink.
func (n *Notifier) Delivered() uint64 {
	return n.delivered.Load()
}

// Dropped returns the number of events that arrived with no sink attached.
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}
