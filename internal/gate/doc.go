// Package gate provides the pause/resume barrier workers pass before each
// command.
//
// The operator stops the gate to hold every worker just before its next
// dispatch and releases it to let them continue. It is a testing and
// operations control, not admission control.
//
//	g := gate.New()
//	g.Stop()
//	go func() { _ = g.Wait(ctx) }() // parks
//	g.Release()                     // wakes every parked waiter
//
// Wait also returns when its context is cancelled, which is how a parked
// worker observes a cancellation request.
package gate
