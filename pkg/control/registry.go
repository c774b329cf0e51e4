package control

import (
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cobridge/cobridge-go/pkg/log"
)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEventLogger captures every cell write to events.
func WithEventLogger(events log.Logger) Option {
	return func(r *Registry) {
		r.events = events
	}
}

// Registry maps keys to cells. Cells are created on first reference and
// live until the registry is closed.
type Registry struct {
	cells  sync.Map // Key -> *Cell
	count  atomic.Int64
	logger *slog.Logger
	events log.Logger
	closed atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	if _, ok := r.events.(log.NoopLogger); ok {
		r.events = nil
	}
	return r
}

// GetOrCreate returns the cell for key, creating it if needed. Options only
// apply when this call creates the cell.
func (r *Registry) GetOrCreate(key Key, opts ...CellOption) *Cell {
	if v, ok := r.cells.Load(key); ok {
		return v.(*Cell)
	}
	var spec Spec
	for _, opt := range opts {
		opt(&spec)
	}
	return r.create(key, spec)
}

// Declare creates the cell for key with spec ahead of script execution.
// If the cell already exists it is returned unchanged.
func (r *Registry) Declare(key Key, spec Spec) *Cell {
	if v, ok := r.cells.Load(key); ok {
		existing := v.(*Cell)
		if spec.Range != nil && !existing.ranged {
			r.logger.Warn("control already exists without range, declaration ignored",
				"group", key.Group, "item", key.Item)
		}
		return existing
	}
	return r.create(key, spec)
}

func (r *Registry) create(key Key, spec Spec) *Cell {
	cell := newCell(key, spec, r.events)
	actual, loaded := r.cells.LoadOrStore(key, cell)
	if !loaded {
		r.count.Add(1)
		r.logger.Debug("control created", "group", key.Group, "item", key.Item, "ranged", cell.ranged)
	}
	return actual.(*Cell)
}

// Find returns the cell for key without creating it.
func (r *Registry) Find(key Key) (*Cell, bool) {
	v, ok := r.cells.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Cell), true
}

// Keys returns all keys, sorted by group then item.
func (r *Registry) Keys() []Key {
	var keys []Key
	r.cells.Range(func(k, _ any) bool {
		keys = append(keys, k.(Key))
		return true
	})
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Item < keys[j].Item
	})
	return keys
}

// Len returns the number of cells.
func (r *Registry) Len() int {
	return int(r.count.Load())
}

// Close detaches every listener from every cell. Cells stay readable and
// writable but no longer notify anyone. Close is idempotent.
func (r *Registry) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	r.cells.Range(func(_, v any) bool {
		v.(*Cell).detachAll()
		return true
	})
}
