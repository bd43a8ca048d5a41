// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Compile-time interface checks.
var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts inbound TCP connections from peers. It requires
// direct reachability; there is no relay or NAT traversal.
type TCPListener struct {
	listener net.Listener

	closeOnce sync.Once
	closed    chan struct{}
	handlers  sync.WaitGroup
}

// NewTCPListener creates a listener on the specified address (e.g.,
// ":7891" or "192.168.1.10:7891"). Use ":0" for a random available port.
func NewTCPListener(address string) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: listener, closed: make(chan struct{})}, nil
}

// Serve accepts connections and dispatches each to handler on its own
// goroutine. Blocks until ctx is cancelled or Close is called, then
// waits for running handlers to return.
func (l *TCPListener) Serve(ctx context.Context, handler ConnHandler) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	defer l.handlers.Wait()

	var backoff time.Duration
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			select {
			case <-l.closed:
				return nil
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				time.Sleep(backoff)
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		backoff = 0

		l.handlers.Add(1)
		go func() {
			defer l.handlers.Done()
			handler(conn)
		}()
	}
}

// Address returns the TCP address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Port returns the bound TCP port.
func (l *TCPListener) Port() int {
	return l.listener.Addr().(*net.TCPAddr).Port
}

// Close shuts down the listener. Connections already handed to a
// handler are not closed.
func (l *TCPListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.closed)
		err = l.listener.Close()
	})
	return err
}

// TCPDialer opens TCP connections to peers.
type TCPDialer struct {
	// Timeout is the maximum time to wait for a TCP connection to be
	// established. Zero means no standalone timeout; only the context
	// deadline applies.
	Timeout time.Duration
}

// DialContext opens a TCP connection to the given address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
