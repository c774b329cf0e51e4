// Package script provides the scripting domain: a single cooperative
// execution context that runs every user callback.
//
// Other goroutines hand work to a Context with Post. The work runs on the
// next ProcessEvents call or Run loop iteration, one task at a time, so no
// two callbacks ever run concurrently. ProcessEvents only drains the tasks
// that were queued when it was entered; tasks posted by those tasks wait
// for the next iteration.
//
// Callbacks are Function values. A Function carries the receiver it was
// bound to, and its pointer is its identity. Script-facing APIs take a
// Target, which names a callback by global name, by value, or refers to an
// existing connection handle.
package script
