// Package usb implements the USB card reader variant of the host device.
//
// A USB card reader cannot DMA into caller memory, so every transfer is
// staged through a bounce buffer taken from a bounded [Pool]. Writes are
// copied into the bounce buffer during preprocess; reads are copied back
// to the caller's buffers during postprocess, and only when the transfer
// succeeded.
package usb
