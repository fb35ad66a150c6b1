// Package remotecontrol implements a process-wide request/take flag a UI
// component can set to ask the next turn to hand control to a remote
// session.
package remotecontrol

import "sync/atomic"

var requested atomic.Bool

// Request marks that a remote session has asked to take control.
func Request() {
	requested.Store(true)
}

// Take reports whether a remote-control request is pending and clears it;
// idempotent across repeated calls once the flag has been consumed.
func Take() bool {
	return requested.Swap(false)
}
