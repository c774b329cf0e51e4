package scratch

import (
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
)

// Scratch tuning.
const (
	// ProcessInterval is the filter tick.
	ProcessInterval = time.Millisecond

	// filterDt is the filter time step matching ProcessInterval.
	filterDt = 1.0 / 1000

	// rampTolerance ends a ramp once the velocity is this close.
	rampTolerance = 0.00001

	// defaultRampFactor scales the ramp target fed per tick.
	defaultRampFactor = 0.001

	// brakeRampTo is the inaudible rate a brake ramps down to.
	brakeRampTo = 0.01

	// brakeAlpha is the filter alpha for brake and soft start.
	brakeAlpha = 1.0 / 512

	// brakeBeta is the filter beta for brake and soft start before the
	// factor is applied.
	brakeBeta = (1.0 / 512) / 1024
)

// Brake and spinback defaults.
const (
	DefaultBrakeFactor     = 1.0
	DefaultBrakeRate       = 1.0
	DefaultSpinbackFactor  = 1.8
	DefaultSpinbackRate    = -10.0
	DefaultSoftStartFactor = 1.0
)

// Scratch errors.
var (
	ErrInvalidDeck       = errors.New("invalid deck number")
	ErrInvalidResolution = errors.New("invalid rpm or intervals per revolution")
)

// Deck control items.
const (
	itemPlay           = "play"
	itemRateRatio      = "rate_ratio"
	itemReverse        = "reverse"
	itemScratch2       = "scratch2"
	itemScratch2Enable = "scratch2_enable"
)

// Timers schedules the process tick. *timer.Manager implements it.
type Timers interface {
	BeginInternal(interval time.Duration, fn func(), oneShot bool) int
	Stop(id int) bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the operational logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.timeNow = now
		}
	}
}

type deckState struct {
	group        string
	dx           float64
	accumulator  int
	lastMovement time.Time
	rampTo       float64
	rampFactor   float64
	ramp         bool
	brake        bool
	spinback     bool
	softStart    bool
	filter       AlphaBetaFilter
	timerID      int
}

// Controller drives scratching for all decks of one script context.
// Its methods are meant to be called on that context.
type Controller struct {
	reg     *control.Registry
	timers  Timers
	logger  *slog.Logger
	timeNow func() time.Time

	mu    sync.Mutex
	decks map[int]*deckState
}

// NewController creates a scratch controller writing to reg and ticking
// through timers.
func NewController(reg *control.Registry, timers Timers, opts ...Option) *Controller {
	c := &Controller{
		reg:     reg,
		timers:  timers,
		logger:  slog.Default(),
		timeNow: time.Now,
		decks:   make(map[int]*deckState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) deck(n int) (*deckState, bool) {
	if n < 1 {
		c.logger.Warn("scratch: invalid deck", "deck", n, "error", ErrInvalidDeck)
		return nil, false
	}
	d, ok := c.decks[n]
	if !ok {
		d = &deckState{group: control.DeckGroup(n), rampFactor: defaultRampFactor}
		c.decks[n] = d
	}
	return d, true
}

// Enable starts scratching deck. intervalsPerRev and rpm give the wheel
// resolution. Zero alpha or beta select the filter defaults. With ramp set
// the filter starts from the deck's current speed.
func (c *Controller) Enable(deck, intervalsPerRev int, rpm, alpha, beta float64, ramp bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deck(deck)
	if !ok {
		return
	}
	intervalsPerSecond := (rpm * float64(intervalsPerRev)) / 60
	if intervalsPerSecond == 0 || math.IsNaN(intervalsPerSecond) || math.IsInf(intervalsPerSecond, 0) {
		c.logger.Warn("scratchEnable: bad wheel resolution",
			"deck", deck, "intervals_per_rev", intervalsPerRev, "rpm", rpm, "error", ErrInvalidResolution)
		return
	}
	c.stopTimer(d)

	d.dx = 1 / intervalsPerSecond
	d.accumulator = 0
	d.ramp = false
	d.rampFactor = defaultRampFactor
	d.brake = false
	d.spinback = false
	d.softStart = false

	initVelocity := 0.0
	if ramp {
		if c.get(d, itemScratch2Enable) == 1 {
			initVelocity = c.get(d, itemScratch2)
		} else if c.playing(d) {
			initVelocity = c.deckRate(d)
		}
	}
	d.filter.Init(filterDt, initVelocity, alpha, beta)

	c.startTimer(deck, d)
	c.set(d, itemScratch2, initVelocity)
	c.set(d, itemScratch2Enable, 1)
	c.logger.Debug("scratch enabled", "deck", deck, "dx", d.dx, "velocity", initVelocity)
}

// Tick records interval wheel ticks on deck since the last call.
func (c *Controller) Tick(deck, interval int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deck(deck)
	if !ok {
		return
	}
	d.lastMovement = c.timeNow()
	d.accumulator += interval
}

// Disable stops scratching deck. With ramp set the velocity ramps to the
// deck's playback speed (or to a stop) before scratch2_enable clears;
// otherwise it clears now.
func (c *Controller) Disable(deck int, ramp bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deck(deck)
	if !ok {
		return
	}
	d.rampTo = 0
	if !ramp {
		c.set(d, itemScratch2Enable, 0)
	} else if c.playing(d) {
		d.rampTo = c.deckRate(d)
	}
	d.lastMovement = c.timeNow()
	d.ramp = true
}

// IsScratching reports whether deck is being scratched or ramped.
func (c *Controller) IsScratching(deck int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.decks[deck]
	return ok && d.timerID != 0 && c.get(d, itemScratch2Enable) != 0
}

// Brake ramps deck down to a stop, or cancels a running brake. factor
// scales how fast; rate is the starting speed, where 1 means the deck's
// current speed.
func (c *Controller) Brake(deck int, activate bool, factor, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brake(deck, activate, factor, rate)
}

func (c *Controller) brake(deck int, activate bool, factor, rate float64) {
	d, ok := c.deck(deck)
	if !ok {
		return
	}
	c.stopTimer(d)
	c.set(d, itemScratch2Enable, boolValue(activate))
	d.brake = activate
	if !activate {
		d.spinback = false
		return
	}

	initRate := rate
	if initRate == DefaultBrakeRate {
		initRate = c.deckRate(d)
	}
	d.rampTo = brakeRampTo
	if d.softStart {
		d.softStart = false
		initRate = d.filter.PredictedVelocity()
	}

	c.startTimer(deck, d)
	c.set(d, itemScratch2, initRate)
	d.filter.Init(filterDt, initRate, brakeAlpha, brakeBeta*fineFactor(factor))
	d.ramp = true
}

// Spinback is Brake starting from a fast reverse spin.
func (c *Controller) Spinback(deck int, activate bool, factor, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deck(deck)
	if !ok {
		return
	}
	d.spinback = activate
	c.brake(deck, activate, factor, rate)
}

// SoftStart ramps deck up from its current speed to its playback speed and
// starts playing, or cancels a running soft start.
func (c *Controller) SoftStart(deck int, activate bool, factor float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.deck(deck)
	if !ok {
		return
	}
	c.stopTimer(d)
	c.set(d, itemScratch2Enable, boolValue(activate))
	d.softStart = activate
	if !activate {
		return
	}

	d.rampTo = c.deckRate(d)
	initRate := 0.0
	if d.brake {
		d.brake = false
		d.spinback = false
		initRate = d.filter.PredictedVelocity()
	}

	c.startTimer(deck, d)
	c.set(d, itemPlay, 1)
	c.set(d, itemScratch2, initRate)
	d.filter.Init(filterDt, initRate, brakeAlpha, brakeBeta*fineFactor(factor))
	d.ramp = true
}

// IsBrakeActive reports whether a brake or spinback runs on deck.
func (c *Controller) IsBrakeActive(deck int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.decks[deck]
	return ok && d.brake
}

// IsSpinbackActive reports whether a spinback runs on deck.
func (c *Controller) IsSpinbackActive(deck int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.decks[deck]
	return ok && d.spinback
}

// IsSoftStartActive reports whether a soft start runs on deck.
func (c *Controller) IsSoftStartActive(deck int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.decks[deck]
	return ok && d.softStart
}

// process advances the filter of deck by one tick.
func (c *Controller) process(deck int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.decks[deck]
	if !ok || d.timerID == 0 {
		return
	}
	oldRate := d.filter.PredictedVelocity()

	switch {
	case d.ramp && !d.softStart && c.timeNow().Sub(d.lastMovement) >= ProcessInterval:
		// Wheel released: coast toward the target.
		d.filter.Observation(d.rampTo * d.rampFactor)
	case d.softStart:
		d.filter.Observation(d.rampTo * filterDt)
	default:
		// Zero when the wheel did not move.
		d.filter.Observation(d.dx * float64(d.accumulator))
	}

	newRate := d.filter.PredictedVelocity()
	c.set(d, itemScratch2, newRate)
	d.accumulator = 0

	rampDone := d.ramp && math.Abs(d.rampTo-newRate) <= rampTolerance
	crossed := (oldRate > d.rampTo && newRate < d.rampTo) || (oldRate < d.rampTo && newRate > d.rampTo)
	powered := d.brake || d.softStart
	if !rampDone && !(powered && crossed) && !(powered && !c.playing(d)) {
		return
	}

	d.ramp = false
	if d.brake {
		c.set(d, itemScratch2, 0)
		c.set(d, itemPlay, 0)
	}
	c.set(d, itemScratch2Enable, 0)
	c.stopTimer(d)
	d.dx = 0
	d.brake = false
	d.spinback = false
	d.softStart = false
	c.logger.Debug("scratch ended", "deck", deck)
}

func (c *Controller) startTimer(deck int, d *deckState) {
	d.timerID = c.timers.BeginInternal(ProcessInterval, func() { c.process(deck) }, false)
}

func (c *Controller) stopTimer(d *deckState) {
	if d.timerID != 0 {
		c.timers.Stop(d.timerID)
		d.timerID = 0
	}
}

func (c *Controller) get(d *deckState, item string) float64 {
	if cell, ok := c.reg.Find(control.K(d.group, item)); ok {
		return cell.Get()
	}
	return 0
}

func (c *Controller) set(d *deckState, item string, v float64) {
	c.reg.GetOrCreate(control.K(d.group, item)).Set(v)
}

func (c *Controller) playing(d *deckState) bool {
	return c.get(d, itemPlay) > 0
}

// deckRate returns the signed playback speed of d.
func (c *Controller) deckRate(d *deckState) float64 {
	rate := c.get(d, itemRateRatio)
	if c.get(d, itemReverse) == 1 {
		rate = -rate
	}
	return rate
}

// fineFactor compresses factors above 1 for finer adjustment.
func fineFactor(factor float64) float64 {
	if factor > 1 {
		return ((factor - 1) / 10) + 1
	}
	return factor
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
