// Package chaos disrupts a running server to exercise its worker lifecycle.
//
// The Monkey picks a random attack at every interval:
//
//   - Pause: stop every client at the pause gate, then release it after
//     PauseTime
//   - Cancel: cancel every connected client, as SIGINT does
//
// # Usage
//
//	config := chaos.DefaultConfig()
//	config.Interval = 200 * time.Millisecond
//
//	monkey := chaos.New(srv, config)
//	monkey.Start(ctx)
//	defer monkey.Stop()
package chaos
