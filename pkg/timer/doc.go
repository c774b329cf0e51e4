// Package timer implements script timers.
//
// Timers are owned by a script context and always fire on it: the
// underlying time.AfterFunc only posts the firing to the context queue,
// and the callback runs on the next ProcessEvents.
//
// # Interval Floor
//
// Script timers cannot fire more often than every MinInterval. Shorter
// intervals are clamped up, with a warning.
//
// # Repeating Timers
//
// A repeating timer is re-armed when its callback returns, so its period
// is measured from the previous firing. At most one firing per timer is
// ever queued; a context that falls behind does not accumulate backlog.
//
// # Handles
//
// Begin returns a positive handle that is unique among live timers of the
// manager. 0 means the timer could not be scheduled. A single-shot timer
// is removed before its callback runs, so stopping it afterwards is a
// no-op.
package timer
