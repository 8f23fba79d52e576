// Package shutdown provides the live-worker counter used to drain the server.
//
// Every worker calls Enter before it starts and Leave exactly once when it
// exits. Drain marks the coordinator as draining (so Enter refuses new
// workers), broadcasts a cancellation through a Canceller and waits for the
// count to reach zero. Only after Drain returns can shared state the workers
// touch be torn down.
//
// A worker that registers with its Canceller after Enter should check
// Draining once registered: a cancellation broadcast issued between the two
// steps would otherwise miss it.
package shutdown
