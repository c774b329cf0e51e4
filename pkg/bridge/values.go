package bridge

import (
	"math"
)

// GetValue returns the value of a control, or 0 if it does not exist.
// Reading never creates a control.
func (e *Engine) GetValue(group, item string) float64 {
	cell, ok := e.find("getValue", group, item)
	if !ok {
		return 0
	}
	return cell.Get()
}

// SetValue writes v to a control, creating an unranged control if none
// exists. Non-finite values and writes suppressed by soft takeover leave it
// unchanged; a non-finite value never reaches the soft takeover guard.
func (e *Engine) SetValue(group, item string, v float64) {
	key, ok := e.key("setValue", group, item)
	if !ok {
		return
	}
	switch {
	case math.IsNaN(v):
		e.warn("setValue", key, ErrNotANumber)
		return
	case math.IsInf(v, 0):
		e.warn("setValue", key, ErrNotFinite)
		return
	}
	cell := e.reg.GetOrCreate(key)
	if e.takeover.Ignore(cell, cell.ParameterForValue(v)) {
		return
	}
	cell.Set(v)
}

// GetParameter returns the [0,1] parameter of a control, or 0.
func (e *Engine) GetParameter(group, item string) float64 {
	cell, ok := e.find("getParameter", group, item)
	if !ok {
		return 0
	}
	return cell.Parameter()
}

// SetParameter writes a parameter to a control. Out of range parameters
// are clamped to [0,1]; NaN is ignored.
func (e *Engine) SetParameter(group, item string, p float64) {
	key, ok := e.key("setParameter", group, item)
	if !ok {
		return
	}
	if math.IsNaN(p) {
		e.warn("setParameter", key, ErrNotANumber)
		return
	}
	cell := e.reg.GetOrCreate(key)
	if e.takeover.Ignore(cell, cell.ParameterForValue(cell.ValueForParameter(p))) {
		return
	}
	cell.SetParameter(p)
}

// GetParameterForValue maps v onto the parameter scale of a control.
func (e *Engine) GetParameterForValue(group, item string, v float64) float64 {
	cell, ok := e.find("getParameterForValue", group, item)
	if !ok {
		return 0
	}
	if math.IsNaN(v) {
		e.warn("getParameterForValue", cell.Key(), ErrNotANumber)
		return 0
	}
	return cell.ParameterForValue(v)
}

// Reset restores a control to its default value.
func (e *Engine) Reset(group, item string) {
	if cell, ok := e.find("reset", group, item); ok {
		cell.Reset()
	}
}

// GetDefaultValue returns the default value of a control, or 0.
func (e *Engine) GetDefaultValue(group, item string) float64 {
	cell, ok := e.find("getDefaultValue", group, item)
	if !ok {
		return 0
	}
	return cell.Default()
}

// GetDefaultParameter returns the default parameter of a control, or 0.
func (e *Engine) GetDefaultParameter(group, item string) float64 {
	cell, ok := e.find("getDefaultParameter", group, item)
	if !ok {
		return 0
	}
	return cell.DefaultParameter()
}

// GetSetting returns a mapping setting, or nil if it is not defined.
func (e *Engine) GetSetting(name string) any {
	if e.settings != nil {
		if v, ok := e.settings.Setting(name); ok {
			return v
		}
	}
	e.logger.Warn("getSetting: call ignored", "setting", name, "error", ErrUnknownSetting)
	return nil
}

// Log writes a script message to the operational log.
func (e *Engine) Log(message string) {
	e.logger.Info(message, "source", "script")
}
