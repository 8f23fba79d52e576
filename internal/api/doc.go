// Package api serves a read-only HTTP view of a running lockkv server.
//
// Routes:
//
//	GET /api/status   live workers, registered clients, pause and drain state, key count
//	GET /api/clients  registered clients ordered by id
//	GET /metrics      Prometheus metrics
//	    /ws           websocket stream of lifecycle events and periodic status
//
// The API never changes server state. Pausing, dumping and shutting down
// stay with the operator console.
package api
