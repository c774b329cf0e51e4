package control

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
)

// Change describes one notification emitted by a cell.
type Change struct {
	Key      Key
	Value    float64
	Revision uint64

	// Triggered is true for re-notifications that did not write the cell.
	Triggered bool
}

// Listener receives change notifications. Notify runs on the writer's
// goroutine and must not block.
type Listener interface {
	Notify(change Change)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(change Change)

// Notify calls f(change).
func (f ListenerFunc) Notify(change Change) { f(change) }

// Range is the closed interval a ranged cell maps its parameter onto.
type Range struct {
	Min float64
	Max float64
}

// Spec declares the shape of a cell. Only the first creating call for a key
// has its Spec applied.
type Spec struct {
	// Range, when set, enables the [0,1] parameter view.
	Range *Range

	// Default is the value Reset restores. When nil, ranged cells default
	// to the midpoint of their range and unranged cells to 0.
	Default *float64
}

// CellOption configures a Spec for GetOrCreate.
type CellOption func(*Spec)

// WithRange gives the cell a parameter range.
func WithRange(min, max float64) CellOption {
	return func(s *Spec) {
		s.Range = &Range{Min: min, Max: max}
	}
}

// WithDefault sets the value Reset restores.
func WithDefault(v float64) CellOption {
	return func(s *Spec) {
		s.Default = &v
	}
}

type listenerEntry struct {
	l Listener
}

// Cell is a single named value holder.
// All methods are safe for concurrent use.
type Cell struct {
	key    Key
	ranged bool
	min    float64
	max    float64
	def    float64
	events log.Logger

	bits     atomic.Uint64
	revision atomic.Uint64

	// Copy-on-write: readers load the slice without locking.
	listeners atomic.Pointer[[]*listenerEntry]
	mu        sync.Mutex
}

func newCell(key Key, spec Spec, events log.Logger) *Cell {
	c := &Cell{key: key, events: events}
	if spec.Range != nil {
		c.ranged = true
		c.min = spec.Range.Min
		c.max = spec.Range.Max
		if c.min > c.max {
			c.min, c.max = c.max, c.min
		}
	}
	switch {
	case spec.Default != nil && isFinite(*spec.Default):
		c.def = *spec.Default
	case c.ranged:
		c.def = c.min + (c.max-c.min)/2
	}
	c.bits.Store(math.Float64bits(c.def))
	return c
}

// Key returns the cell's key.
func (c *Cell) Key() Key { return c.key }

// Ranged reports whether the cell has a parameter range.
func (c *Cell) Ranged() bool { return c.ranged }

// Range returns the cell's range. ok is false for unranged cells.
func (c *Cell) Range() (r Range, ok bool) {
	return Range{Min: c.min, Max: c.max}, c.ranged
}

// Get returns the current value.
func (c *Cell) Get() float64 {
	return math.Float64frombits(c.bits.Load())
}

// Revision returns the number of accepted writes so far.
func (c *Cell) Revision() uint64 {
	return c.revision.Load()
}

// Set writes v and notifies every listener once, even when v equals the
// current value. Non-finite values are rejected and Set returns false.
func (c *Cell) Set(v float64) bool {
	return c.set(v, false)
}

func (c *Cell) set(v float64, parameter bool) bool {
	if !isFinite(v) {
		c.logWrite(v, c.Get(), 0, parameter, "nan")
		return false
	}
	prev := math.Float64frombits(c.bits.Swap(math.Float64bits(v)))
	rev := c.revision.Add(1)
	c.logWrite(v, prev, rev, parameter, "")
	c.notify(Change{Key: c.key, Value: v, Revision: rev})
	return true
}

// Parameter returns the current value in the [0,1] parameter view.
func (c *Cell) Parameter() float64 {
	return c.ParameterForValue(c.Get())
}

// SetParameter clamps p to [0,1], maps it onto the range and writes the
// result. NaN is rejected. On a cell whose range is degenerate it does nothing and returns
// false. Unranged cells store p unchanged.
func (c *Cell) SetParameter(p float64) bool {
	if math.IsNaN(p) {
		c.logWrite(p, c.Get(), 0, true, "nan")
		return false
	}
	if c.ranged && c.max == c.min {
		return false
	}
	return c.set(c.ValueForParameter(p), true)
}

// ValueForParameter maps a parameter onto the cell's range.
func (c *Cell) ValueForParameter(p float64) float64 {
	if !c.ranged {
		return p
	}
	p = clamp(p, 0, 1)
	return c.min + p*(c.max-c.min)
}

// ParameterForValue maps a value onto [0,1]. Values outside the range clamp.
// Degenerate ranges yield 0.
func (c *Cell) ParameterForValue(v float64) float64 {
	if !c.ranged {
		return v
	}
	if c.max == c.min {
		return 0
	}
	return (clamp(v, c.min, c.max) - c.min) / (c.max - c.min)
}

// Default returns the value Reset restores.
func (c *Cell) Default() float64 { return c.def }

// DefaultParameter returns the default in the parameter view.
func (c *Cell) DefaultParameter() float64 {
	return c.ParameterForValue(c.def)
}

// Reset writes the default value.
func (c *Cell) Reset() {
	c.set(c.def, false)
}

// Trigger re-notifies every listener with the current value without
// writing it.
func (c *Cell) Trigger() {
	c.notify(Change{Key: c.key, Value: c.Get(), Revision: c.Revision(), Triggered: true})
}

// Subscribe adds l to the cell's listeners. The returned function removes
// it again and is safe to call more than once.
func (c *Cell) Subscribe(l Listener) (unsubscribe func()) {
	entry := &listenerEntry{l: l}

	c.mu.Lock()
	var next []*listenerEntry
	if cur := c.listeners.Load(); cur != nil {
		next = make([]*listenerEntry, 0, len(*cur)+1)
		next = append(next, *cur...)
	}
	next = append(next, entry)
	c.listeners.Store(&next)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(entry) })
	}
}

// Listeners returns the number of subscribed listeners.
func (c *Cell) Listeners() int {
	if cur := c.listeners.Load(); cur != nil {
		return len(*cur)
	}
	return 0
}

func (c *Cell) remove(entry *listenerEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur := c.listeners.Load()
	if cur == nil {
		return
	}
	next := make([]*listenerEntry, 0, len(*cur))
	for _, e := range *cur {
		if e != entry {
			next = append(next, e)
		}
	}
	c.listeners.Store(&next)
}

func (c *Cell) detachAll() {
	c.mu.Lock()
	c.listeners.Store(nil)
	c.mu.Unlock()
}

func (c *Cell) notify(change Change) {
	cur := c.listeners.Load()
	if cur == nil {
		return
	}
	for _, e := range *cur {
		e.l.Notify(change)
	}
}

func (c *Cell) logWrite(v, prev float64, rev uint64, parameter bool, reason string) {
	if c.events == nil {
		return
	}
	c.events.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerEngine,
		Category:  log.CategoryWrite,
		Group:     c.key.Group,
		Item:      c.key.Item,
		Write: &log.WriteEvent{
			Value:     v,
			Previous:  prev,
			Revision:  rev,
			Parameter: parameter,
			Rejected:  reason != "",
			Reason:    reason,
		},
	})
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
