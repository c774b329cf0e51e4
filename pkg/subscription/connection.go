package subscription

import (
	"sync/atomic"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/script"
)

// Connection is one callback bound to one cell.
type Connection struct {
	id         uint32
	cell       *control.Cell
	fn         *script.Function
	name       string
	unbuffered bool
	mgr        *Manager

	live        atomic.Bool
	queued      atomic.Uint64
	unsubscribe func()
}

// ID returns the connection's unique ID.
func (c *Connection) ID() uint32 { return c.id }

// Key returns the key of the cell the connection listens to.
func (c *Connection) Key() control.Key { return c.cell.Key() }

// Name returns the callback name for name-bound connections, or "".
func (c *Connection) Name() string { return c.name }

// Function returns the callback.
func (c *Connection) Function() *script.Function { return c.fn }

// Unbuffered reports whether superseded values are always delivered.
func (c *Connection) Unbuffered() bool { return c.unbuffered }

// IsConnected reports whether the connection is still live.
func (c *Connection) IsConnected() bool { return c.live.Load() }

// Disconnect removes the connection. Queued deliveries are dropped. It
// reports whether the connection was live.
func (c *Connection) Disconnect() bool {
	if !c.live.CompareAndSwap(true, false) {
		return false
	}
	c.unsubscribe()
	c.mgr.forget(c)
	c.mgr.logConnection(c, log.ConnectionClose)
	return true
}

// Trigger runs the callback now with the cell's current value. It must be
// called from the script context. Disconnected connections do nothing.
func (c *Connection) Trigger() {
	if !c.live.Load() {
		return
	}
	value := c.cell.Get()
	c.mgr.logNotify(c, value, c.cell.Revision(), false, true)
	_ = c.mgr.ctx.Call(c.fn, value)
}

// Notify queues a delivery on the script context. It is called on the
// writer's goroutine.
func (c *Connection) Notify(change control.Change) {
	if !c.live.Load() {
		return
	}
	seq := c.queued.Add(1)
	c.mgr.ctx.Post(func() { c.deliver(change, seq) })
}

func (c *Connection) deliver(change control.Change, seq uint64) {
	if !c.live.Load() {
		c.mgr.logNotify(c, change.Value, change.Revision, true, false)
		return
	}
	if c.mgr.cfg.SkipSuperseded && !c.unbuffered && seq != c.queued.Load() {
		return
	}
	c.mgr.logNotify(c, change.Value, change.Revision, false, false)
	_ = c.mgr.ctx.Call(c.fn, change.Value)
}

func (m *Manager) logNotify(c *Connection, value float64, revision uint64, dropped, direct bool) {
	if _, noop := m.events.(log.NoopLogger); noop {
		return
	}
	key := c.Key()
	m.events.Log(log.Event{
		Timestamp: time.Now(),
		ContextID: m.ctx.ID(),
		Layer:     log.LayerScript,
		Category:  log.CategoryNotify,
		Group:     key.Group,
		Item:      key.Item,
		Notify: &log.NotifyEvent{
			ConnectionID: c.id,
			Value:        value,
			Revision:     revision,
			Dropped:      dropped,
			Direct:       direct,
		},
	})
}

func (m *Manager) logConnection(c *Connection, action log.ConnectionAction) {
	key := c.Key()
	m.events.Log(log.Event{
		Timestamp: time.Now(),
		ContextID: m.ctx.ID(),
		Layer:     log.LayerScript,
		Category:  log.CategoryConnection,
		Group:     key.Group,
		Item:      key.Item,
		Connection: &log.ConnectionEvent{
			Action:       action,
			ConnectionID: c.id,
			Name:         c.name,
		},
	})
}

// Compile-time interface satisfaction checks.
var (
	_ control.Listener = (*Connection)(nil)
	_ script.Handle    = (*Connection)(nil)
)
