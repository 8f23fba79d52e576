// Package scenario runs end-to-end stress scenarios against an in-process
// server.
//
// An Engine starts a server on a loopback port, drives it with the load
// generator and, when enabled, a chaos monkey that pauses and cancels
// clients. When the load phase ends it shuts the server down and checks
// that no worker, registry entry or key survived.
//
// # Presets
//
//   - basic: load only
//   - pause: pause gate stop/release under load
//   - cancel: cancellation broadcasts under load
//   - stress: both attacks, many clients, small key space
//   - quick: short mixed run
//
// # Usage
//
//	config, _ := scenario.GetPreset("quick")
//	result, err := scenario.New(config).Run(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Report())
package scenario
