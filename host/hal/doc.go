// Package hal defines the contract between a card reader controller and the
// host device abstraction.
//
// A controller is the provider a host device is started on. It detects card
// insertion and removal in its own execution context, enters its gate and
// delivers the event to the attached [CardEventSink]. The sink runs under
// the gate and must not block.
//
// # Implementing a Controller
//
// To implement a controller for a new platform:
//  1. Create a type that implements [Controller]
//  2. Embed a [Notifier] to get Attach, Detach and gated dispatch
//  3. Detect card events in Run and report them with [Notifier.Notify]
//
// # Example
//
//	type MyController struct {
//	    *hal.Notifier
//	}
//
//	func (c *MyController) Run(ctx context.Context) error {
//	    for ev := range c.events {
//	        c.Notify(ctx, ev)
//	    }
//	    return nil
//	}
//
// Controllers are available in [github.com/ardnew/sdhost/host/hal/fifo] and
// [github.com/ardnew/sdhost/host/hal/linux].
package hal
