// Package sigmon confines external signal handling to one goroutine.
//
// SIGINT cancels every connected client while the server keeps running.
// SIGTERM starts the same shutdown as end-of-input on the operator console.
//
//	mon := sigmon.New(sigmon.Handlers{
//	    Interrupt: func() { srv.CancelAll("signal") },
//	    Terminate: stop,
//	})
//	mon.Start()
//	defer mon.Stop()
package sigmon
