package power

// Node is an object in the power tree.
type Node interface {
	Name() string
}

// Driver receives power state changes from the platform.
type Driver interface {
	// SetPowerState instructs the driver to switch to the state at ordinal
	// in its registered table. whatDevice is the node that registered to
	// manage power for the device.
	SetPowerState(ordinal int, whatDevice Node) Ack
}

// Manager is the platform power subsystem.
//
// Calls into a Manager are made from the ordinary domain and may block.
type Manager interface {
	// Join attaches child below parent in the power tree.
	Join(parent, child Node) error

	// Register registers d as the power driver of node with the given
	// state table.
	Register(node Node, d Driver, states []State) error

	// Unregister removes node from power management.
	Unregister(node Node) error
}
