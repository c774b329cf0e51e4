package subscription

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/script"
)

// Subscription errors.
var (
	ErrResourceExhausted = errors.New("maximum connections reached")
	ErrUnknownControl    = errors.New("unknown control")
	ErrForeignHandle     = errors.New("connection belongs to another context")
)

// Config holds connection manager configuration.
type Config struct {
	// MaxConnections caps live connections per manager. Zero means no cap.
	MaxConnections int

	// SkipSuperseded lets buffered connections skip a queued value when a
	// newer one for the same connection is already queued behind it.
	SkipSuperseded bool
}

// DefaultConfig returns the default configuration: no cap and every
// notification delivered.
func DefaultConfig() Config {
	return Config{}
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig sets the manager configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) {
		m.cfg = cfg
	}
}

// WithLogger sets the operational logger. Defaults to the context's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEventLogger captures connection lifecycle and deliveries to events.
// Defaults to the context's event logger.
func WithEventLogger(events log.Logger) Option {
	return func(m *Manager) {
		m.events = events
	}
}

type nameKey struct {
	key  control.Key
	name string
}

// Manager owns the connections of one script context.
type Manager struct {
	ctx    *script.Context
	reg    *control.Registry
	cfg    Config
	logger *slog.Logger
	events log.Logger

	mu     sync.Mutex
	conns  map[uint32]*Connection
	byName map[nameKey]*Connection
}

// NewManager creates a manager for ctx over reg. Closing ctx disconnects
// every connection.
func NewManager(ctx *script.Context, reg *control.Registry, opts ...Option) *Manager {
	m := &Manager{
		ctx:    ctx,
		reg:    reg,
		cfg:    DefaultConfig(),
		logger: ctx.Logger(),
		events: ctx.Events(),
		conns:  make(map[uint32]*Connection),
		byName: make(map[nameKey]*Connection),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = log.OrNoop(m.events)
	ctx.OnClose(m.DisconnectAll)
	return m
}

// Connect binds target to the cell at key, or removes bindings when
// removal is set. It returns the live connection, or nil for removals and
// failures. Failures are logged, never returned.
func (m *Manager) Connect(key control.Key, target script.Target, removal bool) *Connection {
	switch target.Kind() {
	case script.TargetHandle:
		m.disconnectHandle(target.Handle())
		return nil
	case script.TargetName:
		if removal {
			m.disconnectName(key, target.Name())
			return nil
		}
		return m.connectName(key, target.Name())
	case script.TargetValue:
		if removal {
			m.disconnectFunction(key, target.Function())
			return nil
		}
		return m.MakeConnection(key, target.Function())
	default:
		m.logger.Warn("connectControl: no callback given", "group", key.Group, "item", key.Item)
		return nil
	}
}

// MakeConnection always creates a new connection of fn to the cell at key.
func (m *Manager) MakeConnection(key control.Key, fn *script.Function) *Connection {
	return m.connect(key, fn, "", false)
}

// MakeUnbufferedConnection is MakeConnection for a connection that never
// skips a queued value, whatever the configuration says.
func (m *Manager) MakeUnbufferedConnection(key control.Key, fn *script.Function) *Connection {
	return m.connect(key, fn, "", true)
}

func (m *Manager) connectName(key control.Key, name string) *Connection {
	m.mu.Lock()
	existing := m.byName[nameKey{key: key, name: name}]
	m.mu.Unlock()
	if existing != nil && existing.IsConnected() {
		return existing
	}

	fn, err := m.ctx.Resolve(script.ByName(name))
	if err != nil {
		m.logger.Warn("connectControl: cannot resolve callback",
			"group", key.Group, "item", key.Item, "callback", name, "error", err)
		return nil
	}
	return m.connect(key, fn, name, false)
}

func (m *Manager) connect(key control.Key, fn *script.Function, name string, unbuffered bool) *Connection {
	if fn == nil {
		m.logger.Warn("connect: nil callback", "group", key.Group, "item", key.Item)
		return nil
	}
	if m.ctx.Closed() {
		return nil
	}
	cell, ok := m.reg.Find(key)
	if !ok {
		m.logger.Warn("connect: control does not exist",
			"group", key.Group, "item", key.Item, "error", ErrUnknownControl)
		return nil
	}

	m.mu.Lock()
	if name != "" {
		// Lost a race with another connect of the same name.
		if existing := m.byName[nameKey{key: key, name: name}]; existing != nil {
			m.mu.Unlock()
			return existing
		}
	}
	if m.cfg.MaxConnections > 0 && len(m.conns) >= m.cfg.MaxConnections {
		m.mu.Unlock()
		m.logger.Warn("connect: refused", "group", key.Group, "item", key.Item, "error", ErrResourceExhausted)
		return nil
	}
	c := &Connection{
		id:         nextID(),
		cell:       cell,
		fn:         fn,
		name:       name,
		unbuffered: unbuffered,
		mgr:        m,
	}
	c.live.Store(true)
	m.conns[c.id] = c
	if name != "" {
		m.byName[nameKey{key: key, name: name}] = c
	}
	c.unsubscribe = cell.Subscribe(c)
	m.mu.Unlock()

	m.logger.Debug("connection made", "group", key.Group, "item", key.Item, "conn_id", c.id, "callback", fn.String())
	m.logConnection(c, log.ConnectionOpen)
	return c
}

func (m *Manager) disconnectHandle(h script.Handle) {
	c, ok := h.(*Connection)
	if !ok || c == nil {
		m.logger.Warn("connectControl: not a connection handle")
		return
	}
	if c.mgr != m {
		m.logger.Warn("connectControl: handle not owned here", "conn_id", c.id, "error", ErrForeignHandle)
		return
	}
	c.Disconnect()
}

func (m *Manager) disconnectName(key control.Key, name string) int {
	m.mu.Lock()
	c := m.byName[nameKey{key: key, name: name}]
	m.mu.Unlock()
	if c == nil || !c.Disconnect() {
		return 0
	}
	return 1
}

func (m *Manager) disconnectFunction(key control.Key, fn *script.Function) int {
	removed := 0
	for _, c := range m.Connections(key) {
		if c.fn == fn && c.Disconnect() {
			removed++
		}
	}
	return removed
}

// Trigger queues a delivery of the cell's current value to every
// connection this manager holds on key.
func (m *Manager) Trigger(key control.Key) {
	conns := m.Connections(key)
	if len(conns) == 0 {
		return
	}
	cell := conns[0].cell
	change := control.Change{Key: key, Value: cell.Get(), Revision: cell.Revision(), Triggered: true}
	for _, c := range conns {
		c.Notify(change)
	}
	m.events.Log(log.Event{
		Timestamp:  time.Now(),
		ContextID:  m.ctx.ID(),
		Layer:      log.LayerScript,
		Category:   log.CategoryConnection,
		Group:      key.Group,
		Item:       key.Item,
		Connection: &log.ConnectionEvent{Action: log.ConnectionTrigger},
	})
}

// Connections returns the live connections on key in creation order.
func (m *Manager) Connections(key control.Key) []*Connection {
	m.mu.Lock()
	var out []*Connection
	for _, c := range m.conns {
		if c.Key() == key {
			out = append(out, c)
		}
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Count returns the number of live connections.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// DisconnectAll disconnects every connection, e.g. on context teardown.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
}

func (m *Manager) forget(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.conns, c.id)
	if c.name != "" {
		nk := nameKey{key: c.Key(), name: c.name}
		if m.byName[nk] == c {
			delete(m.byName, nk)
		}
	}
}

// idGenerator generates unique connection IDs.
var idGenerator atomic.Uint32

// nextID returns the next unique connection ID.
func nextID() uint32 {
	return idGenerator.Add(1)
}
