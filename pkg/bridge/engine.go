package bridge

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/scratch"
	"github.com/cobridge/cobridge-go/pkg/script"
	"github.com/cobridge/cobridge-go/pkg/subscription"
	"github.com/cobridge/cobridge-go/pkg/takeover"
	"github.com/cobridge/cobridge-go/pkg/timer"
)

// Bridge errors. They are logged, never returned to scripts.
var (
	ErrNotANumber     = errors.New("value is not a number")
	ErrNotFinite      = errors.New("value is not finite")
	ErrUnknownControl = errors.New("unknown control")
	ErrNotFunction    = errors.New("callback is not a function")
	ErrUnknownSetting = errors.New("unknown setting")
)

// Settings provides the mapping's user preferences. *manifest.Manifest
// implements it.
type Settings interface {
	Setting(name string) (any, bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger. Defaults to the context's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEventLogger captures bridge errors to events. It is also handed to
// the subscription and timer managers. Defaults to the context's event
// logger.
func WithEventLogger(events log.Logger) Option {
	return func(e *Engine) {
		e.events = events
	}
}

// WithTakeover shares a soft-takeover controller. By default each engine
// owns one.
func WithTakeover(tk *takeover.Controller) Option {
	return func(e *Engine) {
		e.takeover = tk
	}
}

// WithSettings sets the source of GetSetting.
func WithSettings(s Settings) Option {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithSubscriptionConfig configures the connection manager.
func WithSubscriptionConfig(cfg subscription.Config) Option {
	return func(e *Engine) {
		e.subCfg = cfg
	}
}

// WithScratchClock replaces time.Now for scratch wheel timing. Used by tests.
func WithScratchClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.scratchClock = now
	}
}

// Engine is the script-facing API of one script context.
type Engine struct {
	reg      *control.Registry
	ctx      *script.Context
	logger   *slog.Logger
	events   log.Logger
	settings Settings

	takeover *takeover.Controller
	conns    *subscription.Manager
	timers   *timer.Manager
	scratch  *scratch.Controller

	subCfg       subscription.Config
	scratchClock func() time.Time
}

// New creates the engine of ctx over reg. The engine's connections and
// timers go away when ctx closes.
func New(reg *control.Registry, ctx *script.Context, opts ...Option) *Engine {
	e := &Engine{
		reg:    reg,
		ctx:    ctx,
		logger: ctx.Logger(),
		subCfg: subscription.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.events == nil {
		e.events = ctx.Events()
	}
	if e.takeover == nil {
		e.takeover = takeover.NewController(
			takeover.WithLogger(e.logger),
			takeover.WithEventLogger(e.events),
		)
	}
	e.conns = subscription.NewManager(ctx, reg,
		subscription.WithConfig(e.subCfg),
		subscription.WithLogger(e.logger),
		subscription.WithEventLogger(e.events),
	)
	e.timers = timer.NewManager(ctx,
		timer.WithLogger(e.logger),
		timer.WithEventLogger(e.events),
	)
	e.scratch = scratch.NewController(reg, e.timers,
		scratch.WithLogger(e.logger),
		scratch.WithClock(e.scratchClock),
	)
	return e
}

// Registry returns the control registry.
func (e *Engine) Registry() *control.Registry { return e.reg }

// Context returns the script context.
func (e *Engine) Context() *script.Context { return e.ctx }

// Takeover returns the soft-takeover controller.
func (e *Engine) Takeover() *takeover.Controller { return e.takeover }

// Connections returns the connection manager.
func (e *Engine) Connections() *subscription.Manager { return e.conns }

// Timers returns the timer manager.
func (e *Engine) Timers() *timer.Manager { return e.timers }

// key validates a script-supplied control name.
func (e *Engine) key(op, group, item string) (control.Key, bool) {
	if group == "" || item == "" {
		e.warn(op, control.Key{Group: group, Item: item}, control.ErrInvalidKey)
		return control.Key{}, false
	}
	return control.K(group, item), true
}

// find returns the existing cell for a read.
func (e *Engine) find(op, group, item string) (*control.Cell, bool) {
	key, ok := e.key(op, group, item)
	if !ok {
		return nil, false
	}
	cell, ok := e.reg.Find(key)
	if !ok {
		e.warn(op, key, ErrUnknownControl)
		return nil, false
	}
	return cell, true
}

// warn logs an absorbed failure of op.
func (e *Engine) warn(op string, key control.Key, err error) {
	e.logger.Warn(op+": call ignored", "group", key.Group, "item", key.Item, "error", err)
	e.events.Log(log.Event{
		Timestamp: time.Now(),
		ContextID: e.ctx.ID(),
		Layer:     log.LayerBridge,
		Category:  log.CategoryError,
		Group:     key.Group,
		Item:      key.Item,
		Error: &log.ErrorEventData{
			Layer:   log.LayerBridge,
			Message: err.Error(),
			Context: op,
		},
	})
}

// truthy applies script truthiness to an optional flag argument.
func truthy(args []any) bool {
	if len(args) == 0 {
		return false
	}
	switch v := args[0].(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0 && !math.IsNaN(v)
	case int:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
