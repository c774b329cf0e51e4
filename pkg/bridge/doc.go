// Package bridge is the engine object scripts talk to.
//
// An Engine binds one script context to the shared control registry. Every
// entry point takes the loosely typed arguments a script runtime hands over,
// resolves them once, and absorbs malformed calls: they are logged and turn
// into no-ops or neutral results, never errors or panics.
//
// Engine methods, like the script callbacks that call them, run on the
// script context. Value writes pass through the soft-takeover guard before
// they reach the cell.
package bridge
