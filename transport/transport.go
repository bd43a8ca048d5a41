// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
)

// ConnHandler takes ownership of an accepted connection and must close
// it when done. Handlers run on their own goroutine.
type ConnHandler func(conn net.Conn)

// Listener accepts inbound connections from peers.
type Listener interface {
	// Serve accepts connections and passes each to handler. Blocks
	// until ctx is cancelled or Close is called. Returns nil on clean
	// shutdown.
	Serve(ctx context.Context, handler ConnHandler) error

	// Address returns the bound address in "host:port" form.
	Address() string

	// Close stops the listener. Subsequent calls to Serve return
	// immediately.
	Close() error
}

// Dialer opens connections to peers.
type Dialer interface {
	// DialContext opens a connection to a peer at the given address,
	// in the format a peer's Listener.Address returns.
	DialContext(ctx context.Context, address string) (net.Conn, error)
}
