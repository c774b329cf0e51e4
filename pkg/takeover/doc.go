// Package takeover implements soft takeover for hardware-driven controls.
//
// A physical knob can drift out of sync with a control that software moved.
// When the knob is touched again, its first reports would make the control
// jump. A Guard suppresses such writes until the knob catches up with the
// control's current position.
//
// A write with implied parameter p is rejected when all of these hold:
// p and the previous guarded write lie on the same side of the control's
// current parameter, both are further away than Config.Threshold, and more
// than Config.Window has passed since the previous guarded write. Fast
// successive writes are always accepted.
//
// The first write after Enable, and the write following IgnoreNext, are
// rejected unconditionally.
package takeover
