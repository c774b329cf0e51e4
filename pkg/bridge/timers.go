package bridge

import (
	"time"

	"github.com/cobridge/cobridge-go/pkg/control"
	"github.com/cobridge/cobridge-go/pkg/script"
)

// BeginTimer runs callback every ms milliseconds, or once if the optional
// oneShot flag is set. callback is a function or the name of a global
// function. Intervals below the timer floor are raised to it. It returns
// the timer id, or 0 if nothing was scheduled.
func (e *Engine) BeginTimer(ms int, callback any, oneShot ...any) int {
	target := script.TargetOf(callback)
	if target.Kind() != script.TargetValue && target.Kind() != script.TargetName {
		e.warn("beginTimer", control.Key{}, ErrNotFunction)
		return 0
	}
	return e.timers.Begin(time.Duration(ms)*time.Millisecond, target, truthy(oneShot))
}

// StopTimer cancels a timer. Unknown or finished timers are ignored.
func (e *Engine) StopTimer(id int) {
	e.timers.Stop(id)
}
