package timer

import (
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/cobridge/cobridge-go/pkg/log"
	"github.com/cobridge/cobridge-go/pkg/script"
)

// ErrTimerNotFound is logged when stopping a timer that is not live.
var ErrTimerNotFound = errors.New("timer not found")

// MinInterval is the shortest interval a script timer may have.
const MinInterval = 20 * time.Millisecond

// Timer is a scheduled callback.
type Timer struct {
	// ID is the handle returned to the script.
	ID int

	// Interval is the effective interval after clamping.
	Interval time.Duration

	// OneShot timers fire once.
	OneShot bool

	// StartTime is when the timer was last armed.
	StartTime time.Time

	fn       *script.Function
	internal func()
	timer    *time.Timer
}

// Internal reports whether the timer was started with BeginInternal.
func (t *Timer) Internal() bool { return t.internal != nil }

// Callback describes what the timer runs.
func (t *Timer) Callback() string {
	if t.internal != nil {
		return "internal"
	}
	return t.fn.String()
}

// RemainingTime returns time until the timer next fires.
func (t *Timer) RemainingTime() time.Duration {
	remaining := t.Interval - time.Since(t.StartTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the operational logger. Defaults to the context's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithEventLogger captures timer lifecycle events. Defaults to the
// context's event logger.
func WithEventLogger(events log.Logger) Option {
	return func(m *Manager) {
		m.events = events
	}
}

// Manager manages the timers of one script context.
type Manager struct {
	ctx    *script.Context
	logger *slog.Logger
	events log.Logger

	mu     sync.Mutex
	timers map[int]*Timer
	lastID int
}

// NewManager creates a timer manager for ctx. Closing ctx stops every
// timer.
func NewManager(ctx *script.Context, opts ...Option) *Manager {
	m := &Manager{
		ctx:    ctx,
		logger: ctx.Logger(),
		events: ctx.Events(),
		timers: make(map[int]*Timer),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = log.OrNoop(m.events)
	ctx.OnClose(m.StopAll)
	return m
}

// Begin schedules target to run after interval, once or repeatedly.
// Intervals below MinInterval are clamped. Names are resolved now. It
// returns the timer handle, or 0 on failure.
func (m *Manager) Begin(interval time.Duration, target script.Target, oneShot bool) int {
	fn, err := m.ctx.Resolve(target)
	if err != nil {
		m.logger.Warn("beginTimer: invalid callback", "error", err)
		return 0
	}
	if interval < MinInterval {
		m.logger.Warn("beginTimer: interval below minimum, clamped",
			"requested", interval, "interval", MinInterval)
		interval = MinInterval
	}
	return m.begin(&Timer{Interval: interval, OneShot: oneShot, fn: fn})
}

// BeginInternal schedules fn without the interval floor. It is meant for
// library code running on the context, not for scripts.
func (m *Manager) BeginInternal(interval time.Duration, fn func(), oneShot bool) int {
	if fn == nil {
		return 0
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	return m.begin(&Timer{Interval: interval, OneShot: oneShot, internal: fn})
}

func (m *Manager) begin(t *Timer) int {
	if m.ctx.Closed() {
		return 0
	}

	m.mu.Lock()
	t.ID = m.allocID()
	m.timers[t.ID] = t
	m.arm(t)
	m.mu.Unlock()

	if !t.Internal() {
		m.logger.Debug("timer started", "timer_id", t.ID, "interval", t.Interval, "one_shot", t.OneShot)
		m.logEvent(log.TimerEvent{Action: log.TimerStart, TimerID: t.ID, Interval: t.Interval, OneShot: t.OneShot})
	}
	return t.ID
}

// allocID returns the next free positive ID. Caller must hold mu.
func (m *Manager) allocID() int {
	for {
		m.lastID++
		if m.lastID <= 0 || m.lastID == math.MaxInt {
			m.lastID = 1
		}
		if _, live := m.timers[m.lastID]; !live {
			return m.lastID
		}
	}
}

// arm starts the Go timer for t. Caller must hold mu.
func (m *Manager) arm(t *Timer) {
	t.StartTime = time.Now()
	t.timer = time.AfterFunc(t.Interval, func() {
		m.ctx.Post(func() { m.fire(t) })
	})
}

func (m *Manager) fire(t *Timer) {
	m.mu.Lock()
	if m.timers[t.ID] != t {
		m.mu.Unlock()
		return
	}
	if t.OneShot {
		delete(m.timers, t.ID)
	}
	m.mu.Unlock()

	if t.Internal() {
		t.internal()
	} else {
		m.logEvent(log.TimerEvent{Action: log.TimerFire, TimerID: t.ID, OneShot: t.OneShot})
		_ = m.ctx.Call(t.fn)
	}

	if t.OneShot {
		return
	}
	m.mu.Lock()
	if m.timers[t.ID] == t {
		m.arm(t)
	}
	m.mu.Unlock()
}

// Stop cancels the timer id. It reports whether a live timer was stopped.
func (m *Manager) Stop(id int) bool {
	m.mu.Lock()
	t, ok := m.timers[id]
	if ok {
		delete(m.timers, id)
		t.timer.Stop()
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("stopTimer: no such timer", "timer_id", id, "error", ErrTimerNotFound)
		return false
	}
	if !t.Internal() {
		m.logEvent(log.TimerEvent{Action: log.TimerStop, TimerID: id})
	}
	return true
}

// StopAll cancels every timer.
func (m *Manager) StopAll() {
	m.mu.Lock()
	timers := m.timers
	m.timers = make(map[int]*Timer)
	m.mu.Unlock()

	for _, t := range timers {
		t.timer.Stop()
	}
}

// Get returns a snapshot of the live timer id.
func (m *Manager) Get(id int) (Timer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.timers[id]
	if !ok {
		return Timer{}, false
	}
	return *t, true
}

// List returns snapshots of the live timers ordered by ID.
func (m *Manager) List() []Timer {
	m.mu.Lock()
	list := make([]Timer, 0, len(m.timers))
	for _, t := range m.timers {
		list = append(list, *t)
	}
	m.mu.Unlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Count returns the number of live timers.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manager) logEvent(ev log.TimerEvent) {
	m.events.Log(log.Event{
		Timestamp: time.Now(),
		ContextID: m.ctx.ID(),
		Layer:     log.LayerScript,
		Category:  log.CategoryTimer,
		Timer:     &ev,
	})
}
