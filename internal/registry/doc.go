// Package registry tracks the live client handles of the server.
//
// A Handle pairs a client connection with a cancellation context. The
// Registry is a set of handles keyed by id and guarded by a single mutex.
//
// # Ownership
//
// Requesters only mark handles for cancellation (CancelAll, Handle.Cancel).
// Removal is always done by the worker that owns the handle, on its own exit
// path, via Unregister followed by Handle.Close. A handle can therefore
// never be released while another goroutine is iterating over the set.
//
//	h := reg.NewHandle(conn)
//	_ = reg.Register(h)
//	defer func() {
//	    reg.Unregister(h)
//	    _ = h.Close()
//	}()
//
// # Cancellation
//
// Handle.Cancel cancels the handle's context and expires the connection's
// read deadline, so a worker blocked reading its next command wakes up and a
// worker parked elsewhere can select on Done.
package registry
