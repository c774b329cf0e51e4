// Package control implements the registry of named control cells.
//
// A cell is a float64 value identified by a (group, item) Key such as
// "[Channel1],volume". Cells may carry a range, which gives them a normalized
// [0,1] parameter view, and a default used by Reset.
//
// Reads and writes are lock-free and safe from any goroutine, including the
// real-time engine. Every accepted write bumps the cell revision and calls
// each subscribed Listener exactly once, on the writer's goroutine. Listeners
// that run script code must hand the Change off to their own execution
// context (see package subscription).
//
// The Registry is an explicitly owned object. There is no package-level
// instance; create one at startup and Close it at shutdown.
package control
