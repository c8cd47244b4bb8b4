// Package power binds a host device to the platform power subsystem.
//
// The binding surfaces a process-wide, immutable two-entry power-state
// table ([Table]) and translates the ordinals the platform hands to
// SetPowerState into the device's two-state [Posture] model:
//
//	Off --(ordinal 1)--> On --(ordinal 0)--> Off
//
// Acknowledgement is always immediate ([AckImplied]). The binding performs
// no adaptation of its own: suspending or draining transfers before a
// power-off is the job of the host driver and the controller.
//
// [Manager] is the platform side of the contract. [Tree] is an in-process
// Manager used by the command-line tool and by tests to register devices
// and drive power transitions.
package power
