// Package gate implements the gated execution context in which a card
// reader controller delivers card events.
//
// A [Gate] serializes actions the way a controller's command gate does: at
// most one action runs at a time and the context passed to the action is
// marked as gated. Code that may block (I/O, sleeping locks, allocation that
// may retry) calls [CheckBlocking] first and refuses to run inside a gate.
// A strict gate turns every such attempt into a panic so that tests can
// prove a callback never blocks.
package gate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardnew/sdhost/pkg"
)

// Gate serializes gated actions for a single controller.
type Gate struct {
	name   string
	strict bool

	mu      sync.Mutex
	actions atomic.Uint64
}

// Option configures a Gate.
type Option func(*Gate)

// WithStrict makes blocking attempts inside the gate panic instead of
// returning an error.
func WithStrict() Option {
	return func(g *Gate) { g.strict = true }
}

// New creates a gate identified by name.
func New(name string, opts ...Option) *Gate {
	g := &Gate{name: name}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name returns the gate name.
func (g *Gate) Name() string {
	return g.name
}

// Strict reports whether blocking attempts panic.
func (g *Gate) Strict() bool {
	return g.strict
}

// Actions returns the number of actions run through the gate.
func (g *Gate) Actions() uint64 {
	return g.actions.Load()
}

// RunAction runs action while holding the gate. The context given to the
// action is marked as gated; actions for the same gate never overlap.
//
// RunAction must not be called from within an action of the same gate.
func (g *Gate) RunAction(ctx context.Context, action func(ctx context.Context)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions.Add(1)
	action(context.WithValue(ctx, gateKey{}, g))
}

type gateKey struct{}

// From returns the gate ctx is running under, or nil.
func From(ctx context.Context) *Gate {
	g, _ := ctx.Value(gateKey{}).(*Gate)
	return g
}

// IsGated reports whether ctx belongs to a gated action.
func IsGated(ctx context.Context) bool {
	return From(ctx) != nil
}

// BlockingError reports a blocking operation attempted inside a gate.
type BlockingError struct {
	Gate string // Gate name
	Op   string // Operation that would have blocked
}

func (e *BlockingError) Error() string {
	return fmt.Sprintf("%s: %s (gate %s)", pkg.ErrGatedContext, e.Op, e.Gate)
}

// Unwrap returns [pkg.ErrGatedContext].
func (e *BlockingError) Unwrap() error {
	return pkg.ErrGatedContext
}

// CheckBlocking returns a *BlockingError if ctx is gated, and nil otherwise.
// Under a strict gate it panics with the *BlockingError instead.
func CheckBlocking(ctx context.Context, op string) error {
	g := From(ctx)
	if g == nil {
		return nil
	}
	err := &BlockingError{Gate: g.name, Op: op}
	if g.strict {
		panic(err)
	}
	return err
}
