package scratch

import (
	"sort"
	"testing"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTimers runs process ticks on demand.
type fakeTimers struct {
	next int
	fns  map[int]func()
}

func newFakeTimers() *fakeTimers {
	return &fakeTimers{fns: make(map[int]func())}
}

func (f *fakeTimers) BeginInternal(_ time.Duration, fn func(), _ bool) int {
	f.next++
	f.fns[f.next] = fn
	return f.next
}

func (f *fakeTimers) Stop(id int) bool {
	_, ok := f.fns[id]
	delete(f.fns, id)
	return ok
}

func (f *fakeTimers) fire() {
	ids := make([]int, 0, len(f.fns))
	for id := range f.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := f.fns[id]; ok {
			fn()
		}
	}
}

type harness struct {
	reg    *control.Registry
	timers *fakeTimers
	now    time.Time
	ctrl   *Controller
}

func newHarness() *harness {
	h := &harness{
		reg:    control.NewRegistry(),
		timers: newFakeTimers(),
		now:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	h.ctrl = NewController(h.reg, h.timers, WithClock(func() time.Time { return h.now }))
	return h
}

// tick advances the clock by one process interval and runs the tick.
func (h *harness) tick() {
	h.now = h.now.Add(ProcessInterval)
	h.timers.fire()
}

// runUntilIdle ticks until no process timer is left.
func (h *harness) runUntilIdle(t *testing.T) int {
	t.Helper()
	for n := 0; n < 100000; n++ {
		if len(h.timers.fns) == 0 {
			return n
		}
		h.tick()
	}
	t.Fatal("scratch never finished")
	return 0
}

func (h *harness) value(item string) float64 {
	cell, ok := h.reg.Find(control.K("[Channel1]", item))
	if !ok {
		return 0
	}
	return cell.Get()
}

func (h *harness) setValue(item string, v float64) {
	h.reg.GetOrCreate(control.K("[Channel1]", item)).Set(v)
}

func TestEnableStartsScratching(t *testing.T) {
	h := newHarness()

	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, true)
	assert.Equal(t, 1.0, h.value("scratch2_enable"))
	assert.Equal(t, 0.0, h.value("scratch2"))
	assert.True(t, h.ctrl.IsScratching(1))
	assert.Len(t, h.timers.fns, 1)

	h.ctrl.Tick(1, 5)
	h.tick()
	assert.Greater(t, h.value("scratch2"), 0.0)

	h.ctrl.Tick(1, -20)
	for i := 0; i < 50; i++ {
		h.ctrl.Tick(1, -20)
		h.tick()
	}
	assert.Less(t, h.value("scratch2"), 0.0)
}

func TestEnableRampsFromPlayingDeck(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1.25)
	h.setValue("reverse", 1)

	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, true)
	assert.Equal(t, -1.25, h.value("scratch2"))

	// Without ramp the filter starts stopped.
	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, false)
	assert.Equal(t, 0.0, h.value("scratch2"))
	assert.Len(t, h.timers.fns, 1, "re-enabling replaces the timer")
}

func TestEnableKeepsScratchVelocity(t *testing.T) {
	h := newHarness()
	h.setValue("scratch2_enable", 1)
	h.setValue("scratch2", 0.7)

	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, true)
	assert.Equal(t, 0.7, h.value("scratch2"))
}

func TestEnableRejectsBadInput(t *testing.T) {
	h := newHarness()

	h.ctrl.Enable(1, 0, 33, 0, 0, true)
	h.ctrl.Enable(0, 128, 33, 0, 0, true)
	h.ctrl.Tick(-1, 3)

	assert.Empty(t, h.timers.fns)
	assert.Equal(t, 0, h.reg.Len())
	assert.False(t, h.ctrl.IsScratching(1))
}

func TestDisableWithoutRamp(t *testing.T) {
	h := newHarness()
	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, true)

	h.ctrl.Disable(1, false)
	assert.Equal(t, 0.0, h.value("scratch2_enable"))
	assert.False(t, h.ctrl.IsScratching(1))

	h.runUntilIdle(t)
	assert.Empty(t, h.timers.fns)
}

func TestDisableRampsToPlaybackSpeed(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1)
	h.ctrl.Enable(1, 128, 33+1.0/3, 0, 0, false)

	h.ctrl.Disable(1, true)
	assert.Equal(t, 1.0, h.value("scratch2_enable"), "ramping keeps scratch enabled")

	n := h.runUntilIdle(t)
	assert.Greater(t, n, 1)
	assert.InDelta(t, 1.0, h.value("scratch2"), 1e-4)
	assert.Equal(t, 0.0, h.value("scratch2_enable"))
	assert.False(t, h.ctrl.IsScratching(1))
}

func TestBrake(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1)

	h.ctrl.Brake(1, true, DefaultBrakeFactor, DefaultBrakeRate)
	assert.True(t, h.ctrl.IsBrakeActive(1))
	assert.False(t, h.ctrl.IsSpinbackActive(1))
	assert.Equal(t, 1.0, h.value("scratch2"))
	assert.Equal(t, 1.0, h.value("scratch2_enable"))

	h.tick()
	assert.Less(t, h.value("scratch2"), 1.0)

	h.runUntilIdle(t)
	assert.Equal(t, 0.0, h.value("scratch2"))
	assert.Equal(t, 0.0, h.value("play"))
	assert.Equal(t, 0.0, h.value("scratch2_enable"))
	assert.False(t, h.ctrl.IsBrakeActive(1))
}

func TestBrakeEndsWhenDeckStopped(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1)
	h.ctrl.Brake(1, true, DefaultBrakeFactor, DefaultBrakeRate)

	h.setValue("play", 0)
	h.tick()
	assert.Empty(t, h.timers.fns)
	assert.False(t, h.ctrl.IsBrakeActive(1))
}

func TestBrakeDeactivate(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.ctrl.Brake(1, true, 3, 0.8)
	assert.Equal(t, 0.8, h.value("scratch2"))

	h.ctrl.Brake(1, false, DefaultBrakeFactor, DefaultBrakeRate)
	assert.Empty(t, h.timers.fns)
	assert.Equal(t, 0.0, h.value("scratch2_enable"))
	assert.False(t, h.ctrl.IsBrakeActive(1))
	assert.Equal(t, 1.0, h.value("play"))
}

func TestSpinback(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1)

	h.ctrl.Spinback(1, true, DefaultSpinbackFactor, DefaultSpinbackRate)
	assert.True(t, h.ctrl.IsSpinbackActive(1))
	assert.True(t, h.ctrl.IsBrakeActive(1))
	assert.Equal(t, DefaultSpinbackRate, h.value("scratch2"))

	h.runUntilIdle(t)
	assert.False(t, h.ctrl.IsSpinbackActive(1))
	assert.Equal(t, 0.0, h.value("play"))
}

func TestSoftStart(t *testing.T) {
	h := newHarness()
	h.setValue("rate_ratio", 1)

	h.ctrl.SoftStart(1, true, DefaultSoftStartFactor)
	assert.True(t, h.ctrl.IsSoftStartActive(1))
	assert.Equal(t, 1.0, h.value("play"))
	assert.Equal(t, 0.0, h.value("scratch2"))

	h.runUntilIdle(t)
	assert.InDelta(t, 1.0, h.value("scratch2"), 0.01)
	assert.Equal(t, 0.0, h.value("scratch2_enable"))
	assert.Equal(t, 1.0, h.value("play"))
	assert.False(t, h.ctrl.IsSoftStartActive(1))
}

func TestSoftStartTakesOverBrake(t *testing.T) {
	h := newHarness()
	h.setValue("play", 1)
	h.setValue("rate_ratio", 1)
	h.ctrl.Brake(1, true, DefaultBrakeFactor, DefaultBrakeRate)
	for i := 0; i < 100; i++ {
		h.tick()
	}
	velocity := h.value("scratch2")
	require.Less(t, velocity, 1.0)

	h.ctrl.SoftStart(1, true, DefaultSoftStartFactor)
	assert.False(t, h.ctrl.IsBrakeActive(1))
	assert.True(t, h.ctrl.IsSoftStartActive(1))
	assert.Equal(t, velocity, h.value("scratch2"))
	assert.Len(t, h.timers.fns, 1)
}

func TestFineFactor(t *testing.T) {
	assert.Equal(t, 1.0, fineFactor(1))
	assert.Equal(t, 0.5, fineFactor(0.5))
	assert.InDelta(t, 1.08, fineFactor(1.8), 1e-12)
}
