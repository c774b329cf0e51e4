// Package subscription binds script callbacks to control cells.
//
// A Connection subscribes to one cell and delivers every accepted write to
// one callback on the owning script context. Delivery is queued: the
// writer only posts a task, and the callback runs on the next
// ProcessEvents of the context. A connection that is disconnected before
// its queued deliveries run never sees them.
//
// # Identity
//
// Connections made from a callback name collapse: connecting the same name
// to the same cell twice yields the existing connection. Connections made
// from a function value never collapse; each call makes an independent
// connection that fires on its own.
//
// # Removal
//
// Connect with removal set removes the named connection, or every
// connection of that function value on the cell. Passing an existing
// connection handle in the callback position disconnects exactly that
// connection; the key and removal flag given alongside are ignored.
//
// # Lifecycle
//
// Connections do NOT survive their script context. Closing the context
// disconnects every connection its Manager made.
package subscription
