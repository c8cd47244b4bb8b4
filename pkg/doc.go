// Package pkg provides shared utilities for the sdhost card reader stack.
//
// This package contains common functionality used by the host device
// abstraction, the power binding and the controller HALs, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors for initialization, power and request failures
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with card reader context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentHost, "host device started", "provider", "rtsx")
//
// Nothing executed inside a controller gate may log: the handlers perform
// I/O. Gated callbacks record state only and leave reporting to the
// ordinary domain.
//
// # Errors
//
// Failures are defined as sentinel values and wrapped with context:
//
//	if errors.Is(err, pkg.ErrResourceUnavailable) {
//	    // Abort this request; the device remains usable
//	}
package pkg
