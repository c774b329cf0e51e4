package bridge

// SoftTakeover enables or disables soft takeover on a control.
func (e *Engine) SoftTakeover(group, item string, enable bool) {
	cell, ok := e.find("softTakeover", group, item)
	if !ok {
		return
	}
	if enable {
		e.takeover.Enable(cell.Key())
	} else {
		e.takeover.Disable(cell.Key())
	}
}

// SoftTakeoverIgnoreNextValue makes soft takeover ignore the next write to
// a control.
func (e *Engine) SoftTakeoverIgnoreNextValue(group, item string) {
	if cell, ok := e.find("softTakeoverIgnoreNextValue", group, item); ok {
		e.takeover.IgnoreNext(cell.Key())
	}
}

// SoftTakeoverWillIgnore reports whether writing parameter p to a control
// now would be ignored.
func (e *Engine) SoftTakeoverWillIgnore(group, item string, p float64) bool {
	cell, ok := e.find("softTakeoverWillIgnore", group, item)
	if !ok {
		return false
	}
	return e.takeover.WillIgnore(cell, p)
}
