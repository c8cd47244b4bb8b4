// Package host implements the host device abstraction of an SD card reader.
//
// The abstraction sits between a card reader controller (a [hal.Controller])
// and the generic SD host driver (a [Driver]). It has three concerns:
//
//   - Card presence: the controller delivers insert and remove upcalls from
//     inside its gate; the device forwards them to the driver and then
//     updates its [Presence].
//   - Power: the platform power subsystem changes the device's
//     [power.Posture] through SetPowerState, which is always acknowledged
//     immediately.
//   - Request hooks: the driver brackets every SD command with
//     PreprocessRequest and PostprocessRequest, where concrete variants
//     prepare and tear down DMA resources.
//
// # Execution Domains
//
// Card event upcalls run in the gated domain: serialized by the controller
// and forbidden to block. They never log, never perform I/O and never
// allocate. Everything else runs in the ordinary domain and may block; those
// entry points refuse to run inside a gate (see [gate.CheckBlocking]).
//
// # Variants
//
// [BaseDevice] supplies the default behavior: request hooks succeed with no
// side effect. Variants add capabilities rather than subclassing:
//
//   - [RequestProcessor] replaces the request hooks
//     (see github.com/ardnew/sdhost/host/pcie and host/usb)
//   - [Observer] receives state changes (see host/metrics)
//
// # Example
//
//	dev := host.New("sd0", driver, host.WithPowerManager(tree))
//	if err := dev.Initialize(cfg); err != nil {
//	    log.Fatal(err)
//	}
//	if err := dev.Start(ctx, controller); err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Stop(ctx, controller)
//
//	req := host.NewRequest(host.Command{Opcode: host.CmdReadSingleBlock}, data)
//	err := host.ProcessRequest(ctx, dev, req, transfer)
package host
