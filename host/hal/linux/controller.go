package linux

import (
	"context"

	"github.com/ardnew/sdhost/host/gate"
	"github.com/ardnew/sdhost/host/hal"
	"github.com/ardnew/sdhost/pkg"
)

// Controller reports mmc card presence from kernel uevents.
//
// The abstraction above it models a single slot, so the controller reports
// an insert when the first card appears and a remove when the last card is
// gone.
type Controller struct {
	*hal.Notifier

	name      string
	host      string // Only cards on this mmc host, "" for any
	sysfsRoot string
	strict    bool

	cards map[string]struct{} // Present cards, owned by Run
}

// Option configures a Controller.
type Option func(*Controller)

// WithHost limits the controller to cards on the given mmc host.
func WithHost(host string) Option {
	return func(c *Controller) { c.host = host }
}

// WithSysfsRoot overrides the sysfs directory scanned at start.
func WithSysfsRoot(root string) Option {
	return func(c *Controller) { c.sysfsRoot = root }
}

// WithStrictGate makes blocking attempts inside the controller gate panic.
func WithStrictGate() Option {
	return func(c *Controller) { c.strict = true }
}

// New creates a uevent-driven controller.
func New(name string, opts ...Option) *Controller {
	c := &Controller{
		name:      name,
		sysfsRoot: SysfsMMCPath,
		cards:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	var gopts []gate.Option
	if c.strict {
		gopts = append(gopts, gate.WithStrict())
	}
	c.Notifier = hal.NewNotifier(gate.New(name, gopts...))
	return c
}

// Name returns the controller name.
func (c *Controller) Name() string {
	return c.name
}

// Present returns the number of cards currently tracked.
func (c *Controller) Present() int {
	return len(c.cards)
}

// scan records the cards already present and reports an insert if any.
func (c *Controller) scan(ctx context.Context) error {
	cards, err := scanCards(c.sysfsRoot, c.host)
	if err != nil {
		return err
	}
	for _, card := range cards {
		c.cards[card] = struct{}{}
	}
	if len(c.cards) > 0 {
		pkg.LogInfo(pkg.ComponentHAL, "card present at start", "controller", c.name, "cards", cards)
		c.Notify(ctx, hal.EventInserted)
	}
	return nil
}

// handle applies a parsed uevent.
func (c *Controller) handle(ctx context.Context, evt *uevent) {
	if !evt.isCard() {
		return
	}
	if c.host != "" && evt.host() != c.host {
		return
	}

	card := evt.card()
	switch evt.action {
	case ueventAdd:
		if _, ok := c.cards[card]; ok {
			return
		}
		c.cards[card] = struct{}{}
		pkg.LogInfo(pkg.ComponentHAL, "card added",
			"controller", c.name,
			"card", card,
			"type", evt.cardType,
			"name", evt.cardName)
		if len(c.cards) == 1 {
			c.Notify(ctx, hal.EventInserted)
		}

	case ueventRemove:
		if _, ok := c.cards[card]; !ok {
			return
		}
		delete(c.cards, card)
		pkg.LogInfo(pkg.ComponentHAL, "card removed", "controller", c.name, "card", card)
		if len(c.cards) == 0 {
			c.Notify(ctx, hal.EventRemoved)
		}
	}
}
