package host

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ardnew/sdhost/host/gate"
	"github.com/ardnew/sdhost/host/hal"
	"github.com/ardnew/sdhost/host/power"
	"github.com/ardnew/sdhost/pkg"
	"github.com/ardnew/sdhost/pkg/config"
)

// BaseDevice is the default host device.
//
// Presence is written only by the gated card event callbacks and posture
// only by SetPowerState; both may be read from anywhere and may be briefly
// stale.
type BaseDevice struct {
	name      string
	driver    Driver
	processor RequestProcessor
	observer  Observer
	manager   power.Manager

	power    *power.Binding
	presence atomic.Int32

	// Lifecycle state, ordinary domain only
	cfg      *config.Config
	provider hal.Controller
}

// Option configures a BaseDevice.
type Option func(*BaseDevice)

// WithProcessor replaces the default request hooks.
func WithProcessor(p RequestProcessor) Option {
	return func(d *BaseDevice) { d.processor = p }
}

// WithObserver registers an observer of state changes.
func WithObserver(o Observer) Option {
	return func(d *BaseDevice) { d.observer = o }
}

// WithPowerManager selects the power subsystem the device registers with.
func WithPowerManager(m power.Manager) Option {
	return func(d *BaseDevice) { d.manager = m }
}

// New creates a host device that notifies driver of card events. Without
// WithPowerManager the device registers with a private [power.Tree].
func New(name string, driver Driver, opts ...Option) *BaseDevice {
	d := &BaseDevice{
		name:      name,
		driver:    driver,
		processor: NopProcessor{},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.manager == nil {
		d.manager = power.NewTree()
	}
	d.power = power.NewBinding(d.manager, d.postureChanged)
	return d
}

// Name returns the device name.
func (d *BaseDevice) Name() string {
	return d.name
}

// Config returns the configuration the device was initialized with.
func (d *BaseDevice) Config() *config.Config {
	return d.cfg
}

// Provider returns the controller the device is started on, or nil.
func (d *BaseDevice) Provider() hal.Controller {
	return d.provider
}

// =============================================================================
// Lifecycle
// =============================================================================

// Initialize validates cfg and resets the device state: no card, power off.
// A nil cfg selects [config.Default]. Failures wrap [pkg.ErrInitialization].
func (d *BaseDevice) Initialize(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrInitialization, err)
	}

	d.cfg = cfg
	d.presence.Store(int32(Absent))
	d.power.Reset()

	pkg.LogDebug(pkg.ComponentHost, "host device initialized",
		"device", d.name,
		"variant", cfg.Device.Variant)
	return nil
}

// Start attaches the device to provider as its card event sink, joins the
// provider's power tree and registers the two-entry power state table.
// If registration fails the provider is released and the error wraps
// [pkg.ErrPowerRegistration].
func (d *BaseDevice) Start(ctx context.Context, provider hal.Controller) error {
	if err := gate.CheckBlocking(ctx, "start"); err != nil {
		return err
	}

	pkg.LogInfo(pkg.ComponentHost, "starting the host device",
		"device", d.name,
		"provider", provider.Name())

	if err := provider.Attach(d); err != nil {
		return fmt.Errorf("attach to %s: %w", provider.Name(), err)
	}

	pkg.LogInfo(pkg.ComponentHost, "setting up the power management", "device", d.name)

	if err := d.power.Start(provider, d, d); err != nil {
		if derr := provider.Detach(d); derr != nil {
			pkg.LogWarn(pkg.ComponentHost, "failed to detach after power registration failure",
				"device", d.name,
				"error", derr)
		}
		return err
	}

	d.provider = provider
	return nil
}

// Stop unregisters the device from power management and detaches it from
// provider. Both steps are attempted; the first failure is returned.
func (d *BaseDevice) Stop(ctx context.Context, provider hal.Controller) error {
	if err := gate.CheckBlocking(ctx, "stop"); err != nil {
		return err
	}

	first := d.power.Stop()
	if err := provider.Detach(d); err != nil && first == nil {
		first = fmt.Errorf("detach from %s: %w", provider.Name(), err)
	}
	d.provider = nil

	pkg.LogInfo(pkg.ComponentHost, "host device stopped",
		"device", d.name,
		"provider", provider.Name())
	return first
}

// =============================================================================
// Card Event Callbacks
// =============================================================================

// OnCardInsertedGated notifies the driver that a card was inserted and then
// marks the card present. It runs in the controller gate and does not block.
func (d *BaseDevice) OnCardInsertedGated(ctx context.Context) {
	if d.driver != nil {
		d.driver.OnSDCardInsertedGated(ctx)
	}
	d.setPresence(Present)
}

// OnCardRemovedGated notifies the driver that the card was removed and
// then marks the card absent. It runs in the controller gate and does not
// block.
func (d *BaseDevice) OnCardRemovedGated(ctx context.Context) {
	if d.driver != nil {
		d.driver.OnSDCardRemovedGated(ctx)
	}
	d.setPresence(Absent)
}

func (d *BaseDevice) setPresence(p Presence) {
	d.presence.Store(int32(p))
	if d.observer != nil {
		d.observer.PresenceChanged(p)
	}
}

// Presence returns the card presence state.
func (d *BaseDevice) Presence() Presence {
	return Presence(d.presence.Load())
}

// CardPresent reports whether a card is present.
func (d *BaseDevice) CardPresent() bool {
	return d.Presence() == Present
}

// =============================================================================
// Power Management
// =============================================================================

// SetPowerState adjusts the posture in response to a platform power event
// and acknowledges immediately. Suspending transfers is left to the driver.
func (d *BaseDevice) SetPowerState(ordinal int, whatDevice power.Node) power.Ack {
	return d.power.SetPowerState(ordinal, whatDevice)
}

func (d *BaseDevice) postureChanged(p power.Posture) {
	if d.observer != nil {
		d.observer.PostureChanged(p)
	}
}

// Posture returns the power posture.
func (d *BaseDevice) Posture() power.Posture {
	return d.power.Posture()
}

// PowerRegistered reports whether the device is registered for power
// management.
func (d *BaseDevice) PowerRegistered() bool {
	return d.power.Registered()
}

// =============================================================================
// Request Processors
// =============================================================================

// PreprocessRequest runs the device's preprocess hook on req.
func (d *BaseDevice) PreprocessRequest(ctx context.Context, req *Request) error {
	if err := gate.CheckBlocking(ctx, "preprocess"); err != nil {
		return err
	}
	if req == nil {
		return pkg.ErrInvalidRequest
	}
	err := d.processor.PreprocessRequest(ctx, req)
	d.observeHook(pkg.StagePreprocess, err)
	return err
}

// PostprocessRequest runs the device's postprocess hook on req.
func (d *BaseDevice) PostprocessRequest(ctx context.Context, req *Request) error {
	if err := gate.CheckBlocking(ctx, "postprocess"); err != nil {
		return err
	}
	if req == nil {
		return pkg.ErrInvalidRequest
	}
	err := d.processor.PostprocessRequest(ctx, req)
	d.observeHook(pkg.StagePostprocess, err)
	return err
}

func (d *BaseDevice) observeHook(stage pkg.Stage, err error) {
	if d.observer != nil {
		d.observer.RequestHook(stage, err)
	}
}

// =============================================================================
// Properties
// =============================================================================

// Properties returns a snapshot of the inspection properties.
func (d *BaseDevice) Properties() map[string]any {
	props := map[string]any{
		PropertyCardPresent: d.CardPresent(),
		PropertyPowerState:  d.Posture().String(),
	}
	if d.provider != nil {
		props[PropertyProvider] = d.provider.Name()
	}
	return props
}

var _ Device = (*BaseDevice)(nil)
