package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/eapache/queue"
	"github.com/google/uuid"
)

// Context errors.
var (
	ErrNotCallable   = errors.New("not callable")
	ErrContextClosed = errors.New("script context closed")
	ErrCallbackPanic = errors.New("callback panicked")
	ErrUnknownGlobal = errors.New("unknown global function")
)

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithEventLogger captures callback errors to events.
func WithEventLogger(events log.Logger) Option {
	return func(c *Context) {
		c.events = events
	}
}

// Context is a scripting domain. Post is safe from any goroutine; every
// other method is meant to be called from the domain itself, except where
// noted.
type Context struct {
	id     string
	logger *slog.Logger
	events log.Logger

	mu    sync.Mutex
	tasks *queue.Queue // of func()

	wake       chan struct{}
	done       chan struct{}
	processing atomic.Bool
	closed     atomic.Bool
	failures   atomic.Uint64

	gmu     sync.RWMutex
	globals map[string]*Function

	hookMu  sync.Mutex
	onClose []func()
}

// NewContext creates a scripting domain with a fresh ID.
func NewContext(opts ...Option) *Context {
	c := &Context{
		id:      uuid.NewString(),
		logger:  slog.Default(),
		tasks:   queue.New(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		globals: make(map[string]*Function),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events = log.OrNoop(c.events)
	c.logger = c.logger.With("context_id", c.id)
	return c
}

// ID returns the context's unique ID.
func (c *Context) ID() string { return c.id }

// Logger returns the context's logger.
func (c *Context) Logger() *slog.Logger { return c.logger }

// Events returns the context's event logger.
func (c *Context) Events() log.Logger { return c.events }

// Post queues task to run on the domain. Safe from any goroutine. It
// returns false once the context is closed.
func (c *Context) Post(task func()) bool {
	if task == nil || c.closed.Load() {
		return false
	}
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return false
	}
	c.tasks.Add(task)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued tasks. Safe from any goroutine.
func (c *Context) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tasks.Length()
}

// ProcessEvents runs the tasks that are queued right now and returns how
// many ran. A nested or concurrent call returns 0 immediately.
func (c *Context) ProcessEvents() int {
	if !c.processing.CompareAndSwap(false, true) {
		return 0
	}
	defer c.processing.Store(false)

	c.mu.Lock()
	n := c.tasks.Length()
	c.mu.Unlock()

	ran := 0
	for ; ran < n; ran++ {
		c.mu.Lock()
		if c.closed.Load() || c.tasks.Length() == 0 {
			c.mu.Unlock()
			break
		}
		task := c.tasks.Remove().(func())
		c.mu.Unlock()

		c.runTask(task)
	}
	return ran
}

func (c *Context) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			c.fail("task", fmt.Errorf("%w: %v", ErrCallbackPanic, r))
		}
	}()
	task()
}

// Run processes events until ctx is cancelled or the context is closed.
// It returns ctx.Err() on cancellation and nil on Close.
func (c *Context) Run(ctx context.Context) error {
	for {
		c.ProcessEvents()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.wake:
		}
	}
}

// Define registers body as the global function name and returns it.
func (c *Context) Define(name string, body Body) *Function {
	fn := NewFunction(name, body)
	c.DefineFunction(fn)
	return fn
}

// DefineFunction registers fn under its name, replacing any previous one.
func (c *Context) DefineFunction(fn *Function) {
	if fn == nil || fn.name == "" {
		return
	}
	c.gmu.Lock()
	c.globals[fn.name] = fn
	c.gmu.Unlock()
}

// Undefine removes the global function name.
func (c *Context) Undefine(name string) {
	c.gmu.Lock()
	delete(c.globals, name)
	c.gmu.Unlock()
}

// Lookup returns the global function called name.
func (c *Context) Lookup(name string) (*Function, bool) {
	c.gmu.RLock()
	defer c.gmu.RUnlock()
	fn, ok := c.globals[name]
	return fn, ok
}

// Resolve turns a name or value target into a function.
func (c *Context) Resolve(t Target) (*Function, error) {
	switch t.Kind() {
	case TargetName:
		fn, ok := c.Lookup(t.Name())
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownGlobal, t.Name())
		}
		return fn, nil
	case TargetValue:
		return t.Function(), nil
	default:
		return nil, fmt.Errorf("%w: %s target", ErrNotCallable, t.Kind())
	}
}

// Call invokes fn on the current goroutine. Errors and panics are logged,
// captured and returned; they never propagate as panics.
func (c *Context) Call(fn *Function, args ...any) (err error) {
	if c.closed.Load() {
		return ErrContextClosed
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
		if err != nil {
			c.fail(fn.String(), err)
		}
	}()
	return fn.Invoke(args...)
}

// Failures returns how many callbacks failed so far.
func (c *Context) Failures() uint64 {
	return c.failures.Load()
}

func (c *Context) fail(what string, err error) {
	c.failures.Add(1)
	c.logger.Warn("script callback failed", "callback", what, "error", err)
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		ContextID: c.id,
		Layer:     log.LayerScript,
		Category:  log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerScript,
			Message: err.Error(),
			Context: what,
		},
	})
}

// OnClose registers fn to run when the context closes. Hooks run in
// reverse registration order.
func (c *Context) OnClose(fn func()) {
	c.hookMu.Lock()
	c.onClose = append(c.onClose, fn)
	c.hookMu.Unlock()
}

// Close tears the context down: pending tasks are dropped, close hooks
// run and Run returns. Close is idempotent. Safe from any goroutine.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed.Load() {
		c.mu.Unlock()
		return
	}
	c.closed.Store(true)
	dropped := c.tasks.Length()
	c.tasks = queue.New()
	c.mu.Unlock()

	c.hookMu.Lock()
	hooks := c.onClose
	c.onClose = nil
	c.hookMu.Unlock()
	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}

	close(c.done)
	c.logger.Debug("script context closed", "dropped_tasks", dropped)
}

// Closed reports whether Close was called.
func (c *Context) Closed() bool {
	return c.closed.Load()
}

// Done is closed when the context closes.
func (c *Context) Done() <-chan struct{} {
	return c.done
}
