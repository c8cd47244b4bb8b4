package power

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ardnew/sdhost/pkg"
)

// Binding registers a device with a Manager and owns its posture.
//
// Posture is written only by SetPowerState, which the platform serializes,
// and read from anywhere.
type Binding struct {
	manager Manager
	node    Node

	posture  atomic.Int32
	onChange func(Posture)
}

// NewBinding creates a binding to m. onChange, if not nil, is called after
// every posture update.
func NewBinding(m Manager, onChange func(Posture)) *Binding {
	return &Binding{manager: m, onChange: onChange}
}

// Reset sets the posture to Off without notifying.
func (b *Binding) Reset() {
	b.posture.Store(int32(Off))
}

// Posture returns the current posture.
func (b *Binding) Posture() Posture {
	return Posture(b.posture.Load())
}

// Registered reports whether the binding is registered with its manager.
func (b *Binding) Registered() bool {
	return b.node != nil
}

// Start joins device below provider and registers d with the two-entry
// power state table. Failures wrap [pkg.ErrPowerRegistration].
func (b *Binding) Start(provider, device Node, d Driver) error {
	if b.manager == nil {
		return fmt.Errorf("%w: no power manager", pkg.ErrPowerRegistration)
	}
	if b.node != nil {
		return fmt.Errorf("%w: %w", pkg.ErrPowerRegistration, pkg.ErrAlreadyRegistered)
	}

	if err := b.manager.Join(provider, device); err != nil {
		return fmt.Errorf("%w: join %s: %w", pkg.ErrPowerRegistration, provider.Name(), err)
	}

	states := Table()
	if err := b.manager.Register(device, d, states[:]); err != nil {
		return fmt.Errorf("%w: register %s: %w", pkg.ErrPowerRegistration, device.Name(), err)
	}
	b.node = device

	pkg.LogInfo(pkg.ComponentPower, "power management registered",
		"device", device.Name(),
		"provider", provider.Name(),
		"states", len(states))
	return nil
}

// Stop unregisters from the manager. Calling Stop on a binding that is not
// registered returns [pkg.ErrNotRegistered].
func (b *Binding) Stop() error {
	if b.node == nil {
		return pkg.ErrNotRegistered
	}
	node := b.node
	b.node = nil

	if err := b.manager.Unregister(node); err != nil && !errors.Is(err, pkg.ErrNotRegistered) {
		return fmt.Errorf("unregister %s: %w", node.Name(), err)
	}
	pkg.LogInfo(pkg.ComponentPower, "power management stopped", "device", node.Name())
	return nil
}

// SetPowerState updates the posture for ordinal and acknowledges
// immediately. An ordinal outside the table leaves the posture unchanged.
func (b *Binding) SetPowerState(ordinal int, whatDevice Node) Ack {
	p, ok := PostureOf(ordinal)
	if !ok {
		pkg.LogWarn(pkg.ComponentPower, "ignoring power state change",
			"ordinal", ordinal,
			"error", pkg.ErrInvalidPowerState)
		return AckImplied
	}

	prev := Posture(b.posture.Swap(int32(p)))
	if whatDevice != nil {
		pkg.LogDebug(pkg.ComponentPower, "power state change",
			"device", whatDevice.Name(),
			"from", prev,
			"to", p)
	}
	if b.onChange != nil {
		b.onChange(p)
	}
	return AckImplied
}
