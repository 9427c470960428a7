/*
Package server exposes the suggestion engine over a line oriented TCP protocol.

A Server accepts connections and runs one goroutine per connection. Each connection is
driven by a Handler through a small state machine:

	CONNECTED -> (READ -> DISPATCH -> RESPOND)* -> CLOSED

The banner is written once on connect. Every line read is parsed with the protocol
package and answered before the next line is read, so responses arrive in request order.
Parse errors, misses and internal failures are reported on the connection and the loop
continues; only end of stream, a transport error or shutdown closes it.

	engine := suggest.NewEngine(store, suggest.Options{})
	srv := server.New(engine, server.Config{IdleTimeout: time.Minute}, logger)
	err := srv.ListenAndServe(ctx, ":10000")

The same Handler can serve any io.ReadWriter, which the CLI uses to run the protocol over
stdin/stdout without a socket.

The shared engine is read-only apart from its internally synchronized cache, so a slow or
failing connection never affects another one.
*/
package server

import (
	"errors"
	"time"
)

var ErrServerClosed = errors.New("server: closed")

// Config holds listener options.
type Config struct {
	// IdleTimeout closes connections that send nothing for this long, 0 disables it.
	IdleTimeout time.Duration

	// MaxConnections caps concurrent connections, 0 means unlimited. Connections over
	// the cap are sent a busy message and closed.
	MaxConnections int
}
