package power

// Posture is the two-state power model of a host device.
type Posture int32

// Power postures.
const (
	Off Posture = iota // Device must not service requests
	On                 // Device is usable
)

// String returns a human-readable posture name.
func (p Posture) String() string {
	switch p {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "unknown"
	}
}

// Ack is the reply of a power driver to a power state change.
//
// AckImplied means the change is complete when SetPowerState returns. Any
// other value is the number of microseconds the driver needs before it
// acknowledges asynchronously.
type Ack uint32

// AckImplied acknowledges a power state change immediately.
const AckImplied Ack = 0

// Capability is a set of power state flags.
type Capability uint32

// Power state capability flags.
const (
	CapPowerOn            Capability = 1 << iota // Power is applied
	CapDeviceUsable                              // Device can service requests
	CapInitialDeviceState                        // State the device boots into
)

// Has reports whether all flags in c are set.
func (c Capability) Has(flags Capability) bool {
	return c&flags == flags
}

// StateVersion is the power state structure version surfaced to the platform.
const StateVersion = 1

// State describes one entry of the power state table.
type State struct {
	Version          int        // Structure version
	Capabilities     Capability // What the device can do in this state
	OutputCharacter  Capability // Power provided to children
	InputRequirement Capability // Power required from the parent
}

// Usable reports whether the device can service requests in this state.
func (s State) Usable() bool {
	return s.Capabilities.Has(CapDeviceUsable)
}

// NumStates is the number of entries in the power state table.
const NumStates = 2

// Ordinals of the power state table.
const (
	OrdinalOff = 0
	OrdinalOn  = 1
)

var table = [NumStates]State{
	OrdinalOff: {
		Version: StateVersion,
	},
	OrdinalOn: {
		Version:          StateVersion,
		Capabilities:     CapPowerOn | CapDeviceUsable | CapInitialDeviceState,
		OutputCharacter:  CapPowerOn,
		InputRequirement: CapPowerOn,
	},
}

// Table returns a copy of the power state table.
func Table() [NumStates]State {
	return table
}

// PostureOf translates a power state ordinal into a posture.
func PostureOf(ordinal int) (Posture, bool) {
	switch ordinal {
	case OrdinalOff:
		return Off, true
	case OrdinalOn:
		return On, true
	default:
		return Off, false
	}
}

// InitialOrdinal returns the ordinal of the first state flagged as initial,
// or -1 if there is none.
func InitialOrdinal(states []State) int {
	for i, s := range states {
		if s.Capabilities.Has(CapInitialDeviceState) {
			return i
		}
	}
	return -1
}
