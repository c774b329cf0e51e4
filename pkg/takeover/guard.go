package takeover

import (
	"math"
	"sync/atomic"
	"time"
)

// Soft-takeover defaults.
const (
	// DefaultThreshold is the largest parameter jump accepted after a pause.
	DefaultThreshold = 3.0 / 128.0

	// DefaultWindow is how long after a guarded write further writes are
	// accepted unconditionally.
	DefaultWindow = 50 * time.Millisecond
)

// Config holds guard tuning.
type Config struct {
	Threshold float64
	Window    time.Duration
}

// DefaultConfig returns the default guard tuning.
func DefaultConfig() Config {
	return Config{
		Threshold: DefaultThreshold,
		Window:    DefaultWindow,
	}
}

// State is the guard state.
type State uint8

const (
	// StateUnarmed lets every write through.
	StateUnarmed State = iota

	// StateAwaitingFirst rejects the next write, then arms.
	StateAwaitingFirst

	// StateArmed evaluates writes against the takeover policy.
	StateArmed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUnarmed:
		return "UNARMED"
	case StateAwaitingFirst:
		return "AWAITING_FIRST"
	case StateArmed:
		return "ARMED"
	default:
		return "UNKNOWN"
	}
}

// snapshot is replaced as a whole so prev and last never tear.
type snapshot struct {
	state State
	prev  float64
	last  time.Time
}

// Guard is the soft-takeover state of one control.
// All methods are safe for concurrent use.
type Guard struct {
	cfg     Config
	timeNow func() time.Time
	snap    atomic.Pointer[snapshot]
}

// NewGuard returns an unarmed guard. now may be nil to use time.Now.
func NewGuard(cfg Config, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	g := &Guard{cfg: cfg, timeNow: now}
	g.snap.Store(&snapshot{state: StateUnarmed})
	return g
}

// State returns the current guard state.
func (g *Guard) State() State {
	return g.snap.Load().state
}

// Enable arms the guard. The next write is rejected.
func (g *Guard) Enable() {
	g.update(func(s snapshot) snapshot {
		s.state = StateAwaitingFirst
		return s
	})
}

// Disable disarms the guard.
func (g *Guard) Disable() {
	g.update(func(s snapshot) snapshot {
		s.state = StateUnarmed
		return s
	})
}

// IgnoreNext makes the next write be rejected. It has no effect on an
// unarmed guard. Reports whether the guard is armed.
func (g *Guard) IgnoreNext() bool {
	armed := false
	g.update(func(s snapshot) snapshot {
		armed = s.state != StateUnarmed
		if armed {
			s.state = StateAwaitingFirst
		}
		return s
	})
	return armed
}

// Ignore evaluates a write of parameter next against the control's current
// parameter and records it as the previous write. It reports whether the
// write must be suppressed.
func (g *Guard) Ignore(current, next float64) bool {
	now := g.timeNow()
	var ignore bool
	g.update(func(s snapshot) snapshot {
		ignore = g.decide(s, current, next, now)
		if s.state == StateUnarmed {
			return s
		}
		s.state = StateArmed
		s.prev = next
		s.last = now
		return s
	})
	return ignore
}

// WillIgnore reports what Ignore would decide, without recording anything.
func (g *Guard) WillIgnore(current, next float64) bool {
	return g.decide(*g.snap.Load(), current, next, g.timeNow())
}

func (g *Guard) decide(s snapshot, current, next float64, now time.Time) bool {
	switch s.state {
	case StateUnarmed:
		return false
	case StateAwaitingFirst:
		return true
	}

	if now.Sub(s.last) <= g.cfg.Window {
		return false
	}

	diff := current - next
	prevDiff := current - s.prev
	sameSide := (diff < 0 && prevDiff < 0) || (diff > 0 && prevDiff > 0)
	if !sameSide {
		return false
	}
	return math.Abs(diff) > g.cfg.Threshold && math.Abs(prevDiff) > g.cfg.Threshold
}

func (g *Guard) update(fn func(snapshot) snapshot) {
	for {
		cur := g.snap.Load()
		next := fn(*cur)
		if g.snap.CompareAndSwap(cur, &next) {
			return
		}
	}
}
