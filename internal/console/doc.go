// Package console implements the operator console read from standard input.
//
// The console is the only control surface: it pauses and releases clients,
// dumps the tree and lists connections. End of input means the operator is
// done and the server should shut down.
package console
