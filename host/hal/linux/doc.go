// Package linux provides a card reader controller for Linux that reports SD
// card insertion and removal from kernel uevents.
//
// The controller listens on a NETLINK_KOBJECT_UEVENT socket for events of
// the mmc subsystem. The kernel's mmc core emits an "add" uevent when it
// has initialized a card on a host slot and a "remove" uevent when the card
// is gone, so every event reaching this controller has already been
// debounced by the host controller driver. Cards present when the
// controller starts are found by scanning /sys/bus/mmc/devices.
//
// # Requirements
//
// Receiving kernel uevents requires no special privileges. The controller
// does not open the block device and performs no card I/O.
//
// # Supported Features
//
//   - Card insertion and removal from netlink uevents
//   - Initial card presence from sysfs
//   - Optional filtering by mmc host (e.g. "mmc0")
package linux
