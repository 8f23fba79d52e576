// Package server accepts client connections and runs one worker goroutine
// per connection against a shared tree.
//
// Each worker registers itself with the client registry and the shutdown
// coordinator, then loops: read a command line, wait on the pause gate,
// execute the command, write the reply. Whatever ends the loop (end of
// input, an I/O error or a cancellation request), the worker unregisters,
// closes its connection and leaves the coordinator exactly once.
//
// # Basic Usage
//
//	srv := server.New(server.DefaultConfig())
//	go srv.ListenAndServe()
//
//	srv.Pause()  // workers stop before their next command
//	srv.Resume()
//
//	released := srv.Shutdown() // stop accepting, drain, empty the tree
//
// # Cancellation
//
// CancelAll asks every connected client to stop while the server keeps
// accepting new connections. Shutdown does the same after closing the
// listener, then waits until no worker is left. A worker that is executing
// a command when the request arrives finishes it and writes the reply before
// it stops.
package server
