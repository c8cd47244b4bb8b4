// Package fifo provides a simulated card reader controller driven over a
// named pipe.
//
// The controller reads one-byte signals from a FIFO and turns them into
// gated card events:
//
//	0x01  card inserted
//	0x00  card removed
//
// Any other byte is logged and ignored. The FIFO is created on demand and
// opened read-write so that the controller never blocks waiting for a
// writer. [Signal] writes a single signal, which is what the sdhostctl
// insert and remove commands do:
//
//	ctrl := fifo.New("rtsx", "/tmp/sdhost/card")
//	dev := host.New("sd0", driver)
//	dev.Start(ctx, ctrl)
//	go ctrl.Run(ctx)
//
//	fifo.Signal("/tmp/sdhost/card", true) // from another process
//
// [NewReader] builds the same controller over any [io.Reader], which is
// how tests feed it.
package fifo
