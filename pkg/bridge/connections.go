package bridge

import (
	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/script"
	"github.com/cobridge/cobridge-go/pkg/subscription"
)

// MakeConnection connects callback to a control and returns the new
// connection. callback must be a function; each call makes an independent
// connection. It returns nil if the control does not exist.
func (e *Engine) MakeConnection(group, item string, callback any) *subscription.Connection {
	return e.makeConnection("makeConnection", group, item, callback, false)
}

// MakeUnbufferedConnection is MakeConnection for a connection that sees
// every value, even when a later one is already queued.
func (e *Engine) MakeUnbufferedConnection(group, item string, callback any) *subscription.Connection {
	return e.makeConnection("makeUnbufferedConnection", group, item, callback, true)
}

func (e *Engine) makeConnection(op, group, item string, callback any, unbuffered bool) *subscription.Connection {
	key, ok := e.key(op, group, item)
	if !ok {
		return nil
	}
	target := script.TargetOf(callback)
	if target.Kind() != script.TargetValue {
		e.warn(op, key, ErrNotFunction)
		return nil
	}
	if unbuffered {
		return e.conns.MakeUnbufferedConnection(key, target.Function())
	}
	return e.conns.MakeConnection(key, target.Function())
}

// ConnectControl is the legacy binding call. callback may be:
//
//   - a function name: connects it once, or removes that connection when
//     the optional disconnect flag is set
//   - a function: makes a new connection, or removes every connection of
//     that function to the control when disconnect is set
//   - a connection returned earlier: disconnects it, whatever group, item
//     and disconnect say
//
// It returns the live connection, or nil for removals and failures.
func (e *Engine) ConnectControl(group, item string, callback any, disconnect ...any) *subscription.Connection {
	target := script.TargetOf(callback)
	if target.Kind() == script.TargetHandle {
		return e.conns.Connect(control.Key{}, target, true)
	}
	key, ok := e.key("connectControl", group, item)
	if !ok {
		return nil
	}
	if target.IsZero() {
		e.warn("connectControl", key, ErrNotFunction)
		return nil
	}
	return e.conns.Connect(key, target, truthy(disconnect))
}

// Trigger queues a delivery of the control's current value to every
// connection of this engine's context on it.
func (e *Engine) Trigger(group, item string) {
	if cell, ok := e.find("trigger", group, item); ok {
		e.conns.Trigger(cell.Key())
	}
}
