package bridge

import "github.com/cobridge/cobridge-go/pkg/scratch"

// ScratchEnable starts scratching deck. The optional ramp flag defaults to
// true.
func (e *Engine) ScratchEnable(deck, intervalsPerRev int, rpm, alpha, beta float64, ramp ...any) {
	e.scratch.Enable(deck, intervalsPerRev, rpm, alpha, beta, len(ramp) == 0 || truthy(ramp))
}

// ScratchTick feeds wheel movement for deck.
func (e *Engine) ScratchTick(deck, interval int) {
	e.scratch.Tick(deck, interval)
}

// ScratchDisable stops scratching deck. The optional ramp flag defaults to
// true.
func (e *Engine) ScratchDisable(deck int, ramp ...any) {
	e.scratch.Disable(deck, len(ramp) == 0 || truthy(ramp))
}

// IsScratching reports whether deck is being scratched.
func (e *Engine) IsScratching(deck int) bool {
	return e.scratch.IsScratching(deck)
}

// Brake slows deck to a stop, or cancels the brake.
func (e *Engine) Brake(deck int, activate bool, factor, rate float64) {
	e.scratch.Brake(deck, activate, factor, rate)
}

// Spinback spins deck backwards to a stop, or cancels the spinback.
func (e *Engine) Spinback(deck int, activate bool, factor, rate float64) {
	e.scratch.Spinback(deck, activate, factor, rate)
}

// SoftStart ramps deck up to playback speed, or cancels the soft start.
func (e *Engine) SoftStart(deck int, activate bool, factor float64) {
	e.scratch.SoftStart(deck, activate, factor)
}

// IsBrakeActive reports whether deck is braking or spinning back.
func (e *Engine) IsBrakeActive(deck int) bool { return e.scratch.IsBrakeActive(deck) }

// IsSpinbackActive reports whether deck is spinning back.
func (e *Engine) IsSpinbackActive(deck int) bool { return e.scratch.IsSpinbackActive(deck) }

// IsSoftStartActive reports whether deck is soft starting.
func (e *Engine) IsSoftStartActive(deck int) bool { return e.scratch.IsSoftStartActive(deck) }

// Scratch defaults, re-exported for callers that omit them.
const (
	DefaultBrakeFactor     = scratch.DefaultBrakeFactor
	DefaultBrakeRate       = scratch.DefaultBrakeRate
	DefaultSpinbackFactor  = scratch.DefaultSpinbackFactor
	DefaultSpinbackRate    = scratch.DefaultSpinbackRate
	DefaultSoftStartFactor = scratch.DefaultSoftStartFactor
)
