package takeover

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/log"
)

// Option configures a Controller.
type Option func(*Controller)

// WithConfig sets the guard tuning for guards created afterwards.
func WithConfig(cfg Config) Option {
	return func(c *Controller) {
		c.cfg = cfg
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.timeNow = now
		}
	}
}

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventLogger captures guard decisions to events.
func WithEventLogger(events log.Logger) Option {
	return func(c *Controller) {
		c.events = events
	}
}

// Controller holds the guards of all controls that ever had soft takeover
// enabled. It is safe for concurrent use.
type Controller struct {
	cfg     Config
	timeNow func() time.Time
	logger  *slog.Logger
	events  log.Logger

	guards sync.Map // control.Key -> *Guard
}

// NewController creates a controller with DefaultConfig.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		cfg:     DefaultConfig(),
		timeNow: time.Now,
		logger:  slog.Default(),
		events:  log.NoopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = log.OrNoop(c.events)
	return c
}

// Enable arms soft takeover on key. The next guarded write is ignored.
func (c *Controller) Enable(key control.Key) {
	g, _ := c.guards.LoadOrStore(key, NewGuard(c.cfg, c.timeNow))
	g.(*Guard).Enable()
	c.logger.Debug("soft takeover enabled", "group", key.Group, "item", key.Item)
	c.logEvent(key, log.TakeoverEvent{Action: log.TakeoverEnable})
}

// Disable disarms soft takeover on key.
func (c *Controller) Disable(key control.Key) {
	g, ok := c.guard(key)
	if !ok {
		return
	}
	g.Disable()
	c.logger.Debug("soft takeover disabled", "group", key.Group, "item", key.Item)
	c.logEvent(key, log.TakeoverEvent{Action: log.TakeoverDisable})
}

// IgnoreNext makes the next guarded write to key be ignored. It has no
// effect unless soft takeover is enabled on key.
func (c *Controller) IgnoreNext(key control.Key) {
	g, ok := c.guard(key)
	if !ok || !g.IgnoreNext() {
		return
	}
	c.logEvent(key, log.TakeoverEvent{Action: log.TakeoverIgnoreNext})
}

// Enabled reports whether soft takeover is enabled on key.
func (c *Controller) Enabled(key control.Key) bool {
	g, ok := c.guard(key)
	return ok && g.State() != StateUnarmed
}

// State returns the guard state of key.
func (c *Controller) State(key control.Key) State {
	if g, ok := c.guard(key); ok {
		return g.State()
	}
	return StateUnarmed
}

// Ignore evaluates a write of parameter p to cell and reports whether it
// must be suppressed. Cells without an armed guard are never suppressed.
func (c *Controller) Ignore(cell *control.Cell, p float64) bool {
	g, ok := c.guard(cell.Key())
	if !ok {
		return false
	}
	current := cell.Parameter()
	if !g.Ignore(current, p) {
		return false
	}
	key := cell.Key()
	c.logger.Debug("soft takeover ignored write",
		"group", key.Group, "item", key.Item, "parameter", p, "current", current)
	c.logEvent(key, log.TakeoverEvent{Action: log.TakeoverReject, Parameter: p, Current: current})
	return true
}

// WillIgnore reports whether a write of parameter p to cell would be
// suppressed, without recording it.
func (c *Controller) WillIgnore(cell *control.Cell, p float64) bool {
	g, ok := c.guard(cell.Key())
	if !ok {
		return false
	}
	return g.WillIgnore(cell.Parameter(), p)
}

func (c *Controller) guard(key control.Key) (*Guard, bool) {
	v, ok := c.guards.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Guard), true
}

func (c *Controller) logEvent(key control.Key, ev log.TakeoverEvent) {
	c.events.Log(log.Event{
		Timestamp: c.timeNow(),
		Layer:     log.LayerBridge,
		Category:  log.CategoryTakeover,
		Group:     key.Group,
		Item:      key.Item,
		Takeover:  &ev,
	})
}
