package pkg

import "errors"

// Host device errors.
var (
	// ErrInitialization indicates the base initialization failed. It is
	// fatal to the device.
	ErrInitialization = errors.New("initialization failed")

	// ErrPowerRegistration indicates the device could not be registered
	// with the power subsystem during start.
	ErrPowerRegistration = errors.New("power registration failed")

	// ErrResourceUnavailable indicates preprocess could not prepare the
	// transfer resources for a request. The request must be aborted.
	ErrResourceUnavailable = errors.New("resource unavailable")

	// ErrGatedContext indicates a potentially blocking operation was
	// attempted from within a controller gate.
	ErrGatedContext = errors.New("blocking operation in gated context")

	// ErrNotStarted indicates the device has not been started.
	ErrNotStarted = errors.New("not started")

	// ErrAlreadyAttached indicates a controller already has a card event sink.
	ErrAlreadyAttached = errors.New("already attached")

	// ErrNotAttached indicates the sink is not attached to the controller.
	ErrNotAttached = errors.New("not attached")

	// ErrInvalidPowerState indicates a power state ordinal outside the table.
	ErrInvalidPowerState = errors.New("invalid power state")

	// ErrNotRegistered indicates the device is not registered for power management.
	ErrNotRegistered = errors.New("not registered")

	// ErrAlreadyRegistered indicates the device is already registered for power management.
	ErrAlreadyRegistered = errors.New("already registered")

	// ErrAckTimeout indicates a power state change was not acknowledged immediately.
	ErrAckTimeout = errors.New("power state change not acknowledged")

	// ErrInvalidRequest indicates a malformed request envelope.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCancelled indicates a cancelled operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")
)

// Stage identifies the request hook that produced a result.
type Stage int

// Request hook stages.
const (
	StagePreprocess  Stage = iota // Before the transfer is dispatched
	StageTransfer                 // Controller transfer execution
	StagePostprocess              // After the transfer completed
)

// String returns a string representation of the stage.
func (s Stage) String() string {
	switch s {
	case StagePreprocess:
		return "preprocess"
	case StageTransfer:
		return "transfer"
	case StagePostprocess:
		return "postprocess"
	default:
		return "unknown"
	}
}
