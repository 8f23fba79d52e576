// Package loadgen drives concurrent client sessions against a lockkv server.
//
// Each session dials the server, sends a fixed number of random add, query
// and delete commands over a bounded key space and checks every reply. Added
// values are derived from their keys, so a query reply is either "not found"
// or the one value any session could have stored.
//
//	gen := loadgen.New(loadgen.Config{
//	    Addr:       "127.0.0.1:8888",
//	    Sessions:   200,
//	    Workers:    16,
//	    Commands:   500,
//	    Keys:       100,
//	    WriteRatio: 0.5,
//	})
//	result := gen.Run(ctx)
//	fmt.Printf("%d unexpected replies\n", result.Unexpected)
package loadgen
