package host

import (
	"context"

	"github.com/ardnew/sdhost/host/hal"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/pkg"
	"github.com/ardnew/sdhost/pkg/config"
)

// Driver is the generic SD host driver a device notifies of card events.
//
// Both handlers are called from within the controller gate and must not
// block.
type Driver interface {
	OnSDCardInsertedGated(ctx context.Context)
	OnSDCardRemovedGated(ctx context.Context)
}

// RequestProcessor prepares and tears down the resources of a request.
//
// PreprocessRequest runs before the command is dispatched to hardware. It
// must not wait for hardware completion. It returns an error wrapping
// [pkg.ErrResourceUnavailable] when resources cannot be prepared; anything
// it attached before failing stays attached for PostprocessRequest.
//
// PostprocessRequest runs after the transfer, whether or not it succeeded,
// and releases whatever preprocess attached. It releases all it can and
// returns the first failure.
type RequestProcessor interface {
	PreprocessRequest(ctx context.Context, req *Request) error
	PostprocessRequest(ctx context.Context, req *Request) error
}

// NopProcessor is the default RequestProcessor: both hooks succeed with no
// side effect.
type NopProcessor struct{}

// PreprocessRequest succeeds.
func (NopProcessor) PreprocessRequest(ctx context.Context, req *Request) error { return nil }

// PostprocessRequest succeeds.
func (NopProcessor) PostprocessRequest(ctx context.Context, req *Request) error { return nil }

// Observer receives state changes of a host device.
//
// PresenceChanged is called from within the controller gate and must not
// block. The other methods are called from the ordinary domain.
type Observer interface {
	PresenceChanged(p Presence)
	PostureChanged(p power.Posture)
	RequestHook(stage pkg.Stage, err error)
}

// Device is the contract of a host device.
type Device interface {
	hal.CardEventSink
	RequestProcessor
	power.Driver

	// Name identifies the device in the power tree.
	Name() string

	// Initialize prepares the device with cfg; nil selects the defaults.
	Initialize(cfg *config.Config) error

	// Start binds the device to provider and registers it for power
	// management.
	Start(ctx context.Context, provider hal.Controller) error

	// Stop unregisters the device from power management and releases
	// provider.
	Stop(ctx context.Context, provider hal.Controller) error

	// CardPresent reports the last card event delivered to the device.
	CardPresent() bool

	// Presence returns the card presence state.
	Presence() Presence

	// Posture returns the power posture.
	Posture() power.Posture

	// Properties returns a snapshot of the inspection properties.
	Properties() map[string]any
}
