package power

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ardnew/sdhost/pkg"
)

// entry is a registered power driver.
type entry struct {
	node    Node
	driver  Driver
	states  []State
	current int // -1 until the first transition
}

// Transition records one completed power state change.
type Transition struct {
	Device  string
	Ordinal int
	Ack     Ack
	Elapsed time.Duration
}

// Tree is an in-process power manager.
type Tree struct {
	mu      sync.Mutex
	parents map[string]string
	entries map[string]*entry
}

// NewTree creates an empty power tree.
func NewTree() *Tree {
	return &Tree{
		parents: make(map[string]string),
		entries: make(map[string]*entry),
	}
}

// Join attaches child below parent.
func (t *Tree) Join(parent, child Node) error {
	if parent == nil || child == nil {
		return fmt.Errorf("join: %w", pkg.ErrNotSupported)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.parents[child.Name()] = parent.Name()
	return nil
}

// Register registers d as the power driver for node.
func (t *Tree) Register(node Node, d Driver, states []State) error {
	if len(states) == 0 {
		return pkg.ErrInvalidPowerState
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	name := node.Name()
	if _, ok := t.entries[name]; ok {
		return fmt.Errorf("%s: %w", name, pkg.ErrAlreadyRegistered)
	}
	t.entries[name] = &entry{
		node:    node,
		driver:  d,
		states:  append([]State(nil), states...),
		current: -1,
	}
	return nil
}

// Unregister removes node from power management and from the tree.
func (t *Tree) Unregister(node Node) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	name := node.Name()
	if _, ok := t.entries[name]; !ok {
		return fmt.Errorf("%s: %w", name, pkg.ErrNotRegistered)
	}
	delete(t.entries, name)
	delete(t.parents, name)
	return nil
}

// Registered returns a copy of the state table registered for name.
func (t *Tree) Registered(name string) ([]State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name]
	if !ok {
		return nil, false
	}
	return append([]State(nil), e.states...), true
}

// Parent returns the name of the node name was joined below.
func (t *Tree) Parent(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.parents[name]
	return p, ok
}

// Devices returns the names of all registered devices in sorted order.
func (t *Tree) Devices() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Current returns the last ordinal name transitioned to, or -1.
func (t *Tree) Current(name string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[name]
	if !ok {
		return -1, false
	}
	return e.current, true
}

// Transition instructs the driver registered for name to switch to
// ordinal. The driver is called without holding the tree lock. Any reply
// other than [AckImplied] fails with [pkg.ErrAckTimeout].
func (t *Tree) Transition(ctx context.Context, name string, ordinal int) (Transition, error) {
	if err := ctx.Err(); err != nil {
		return Transition{}, err
	}

	t.mu.Lock()
	e, ok := t.entries[name]
	if !ok {
		t.mu.Unlock()
		return Transition{}, fmt.Errorf("%s: %w", name, pkg.ErrNotRegistered)
	}
	if ordinal < 0 || ordinal >= len(e.states) {
		t.mu.Unlock()
		return Transition{}, fmt.Errorf("%s: ordinal %d: %w", name, ordinal, pkg.ErrInvalidPowerState)
	}
	node, driver := e.node, e.driver
	t.mu.Unlock()

	start := time.Now()
	ack := driver.SetPowerState(ordinal, node)
	tr := Transition{
		Device:  name,
		Ordinal: ordinal,
		Ack:     ack,
		Elapsed: time.Since(start),
	}
	if ack != AckImplied {
		return tr, fmt.Errorf("%s: ordinal %d: ack %dus: %w", name, ordinal, ack, pkg.ErrAckTimeout)
	}

	t.mu.Lock()
	if cur, ok := t.entries[name]; ok && cur == e {
		e.current = ordinal
	}
	t.mu.Unlock()

	pkg.LogDebug(pkg.ComponentPower, "power transition complete",
		"device", name,
		"ordinal", ordinal,
		"elapsed", tr.Elapsed)
	return tr, nil
}

// PowerOn transitions name to the initial state of its table.
func (t *Tree) PowerOn(ctx context.Context, name string) (Transition, error) {
	states, ok := t.Registered(name)
	if !ok {
		return Transition{}, fmt.Errorf("%s: %w", name, pkg.ErrNotRegistered)
	}
	ordinal := InitialOrdinal(states)
	if ordinal < 0 {
		return Transition{}, fmt.Errorf("%s: no initial state: %w", name, pkg.ErrInvalidPowerState)
	}
	return t.Transition(ctx, name, ordinal)
}

// PowerOff transitions name to ordinal 0.
func (t *Tree) PowerOff(ctx context.Context, name string) (Transition, error) {
	return t.Transition(ctx, name, OrdinalOff)
}
