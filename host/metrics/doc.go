// Package metrics exports host device state as Prometheus metrics.
//
// A [Collector] is a host.Observer: pass it to host.WithObserver and it
// tracks card presence, power posture and the outcome of every request
// hook. [Serve] exposes a registry over HTTP.
package metrics
