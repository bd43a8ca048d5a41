// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gossip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/transport"
)

// DefaultDialTimeout bounds one dial attempt to one address.
const DefaultDialTimeout = 5 * time.Second

var (
	// ErrClosed is returned by operations on a closed Endpoint or
	// Topic.
	ErrClosed = errors.New("gossip endpoint closed")

	// ErrAlreadyJoined is returned by Join for a topic the endpoint is
	// already subscribed to.
	ErrAlreadyJoined = errors.New("topic already joined")

	// ErrJoinFailed is returned by Join when none of the bootstrap
	// peers could be reached.
	ErrJoinFailed = errors.New("no bootstrap peer reachable")
)

// Options configures an Endpoint.
type Options struct {
	// BindAddress is the address to listen on. Defaults to ":0", every
	// interface on a random port. Ignored when Listener is set.
	BindAddress string

	// Listener overrides the TCP listener.
	Listener transport.Listener

	// Dialer overrides the TCP dialer.
	Dialer transport.Dialer

	// Compression is applied to frames this endpoint sends.
	Compression transport.CompressionTag

	// DialTimeout defaults to DefaultDialTimeout.
	DialTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Endpoint is this process's presence on the overlay.
type Endpoint struct {
	keys        *identity.KeyPair
	listener    transport.Listener
	dialer      transport.Dialer
	compression transport.CompressionTag
	dialTimeout time.Duration
	logger      *slog.Logger
	addrs       []string

	// lifetime is cancelled by Close and bounds background dials.
	lifetime context.Context
	cancel   context.CancelFunc
	workers  sync.WaitGroup

	mu     sync.Mutex
	topics map[TopicID]*Topic
	closed bool
}

// NewEndpoint binds the listener. Call Serve to start accepting links.
func NewEndpoint(keys *identity.KeyPair, options Options) (*Endpoint, error) {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.DialTimeout <= 0 {
		options.DialTimeout = DefaultDialTimeout
	}
	if options.Dialer == nil {
		options.Dialer = &transport.TCPDialer{Timeout: options.DialTimeout}
	}
	if options.Listener == nil {
		if options.BindAddress == "" {
			options.BindAddress = ":0"
		}
		listener, err := transport.NewTCPListener(options.BindAddress)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", options.BindAddress, err)
		}
		options.Listener = listener
	}

	addrs, err := advertisedAddrs(options.Listener.Address())
	if err != nil {
		options.Listener.Close()
		return nil, err
	}

	lifetime, cancel := context.WithCancel(context.Background())
	return &Endpoint{
		keys:        keys,
		listener:    options.Listener,
		dialer:      options.Dialer,
		compression: options.Compression,
		dialTimeout: options.DialTimeout,
		logger:      options.Logger.With("endpoint", keys.ID().Short()),
		addrs:       addrs,
		lifetime:    lifetime,
		cancel:      cancel,
		topics:      make(map[TopicID]*Topic),
	}, nil
}

// ID returns the local identity.
func (e *Endpoint) ID() identity.ID { return e.keys.ID() }

// Address returns the identity and the addresses peers can dial.
func (e *Endpoint) Address() PeerAddress {
	return PeerAddress{ID: e.keys.ID(), Addrs: append([]string(nil), e.addrs...)}
}

// Serve accepts links until ctx is cancelled or the endpoint is closed.
func (e *Endpoint) Serve(ctx context.Context) error {
	return e.listener.Serve(ctx, e.handleConn)
}

// Join subscribes to topic. With bootstrap peers it returns once at
// least one link is up, or fails with ErrJoinFailed when none can be
// reached. Without bootstrap peers it returns at once and waits for
// others to connect.
func (e *Endpoint) Join(ctx context.Context, topic TopicID, bootstrap []PeerAddress) (*Topic, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrClosed
	}
	if _, exists := e.topics[topic]; exists {
		e.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrAlreadyJoined, topic)
	}
	t := newTopic(e, topic)
	e.topics[topic] = t
	e.mu.Unlock()

	var candidates []PeerAddress
	for _, peer := range bootstrap {
		if peer.ID != e.keys.ID() {
			candidates = append(candidates, peer)
		}
	}
	if len(candidates) == 0 {
		return t, nil
	}

	results := make(chan error, len(candidates))
	for _, peer := range candidates {
		go func() { results <- t.dial(ctx, peer) }()
	}
	var failures []error
	for range candidates {
		if err := <-results; err != nil {
			failures = append(failures, err)
		}
	}
	if len(failures) == len(candidates) {
		t.Close()
		return nil, fmt.Errorf("joining %s: %w: %w", topic, ErrJoinFailed, errors.Join(failures...))
	}
	return t, nil
}

// Close leaves every topic, stops the listener, and waits for
// background dials to finish.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	topics := make([]*Topic, 0, len(e.topics))
	for _, t := range e.topics {
		topics = append(topics, t)
	}
	e.mu.Unlock()

	e.cancel()
	err := e.listener.Close()
	for _, t := range topics {
		t.Close()
	}
	e.workers.Wait()
	return err
}

func (e *Endpoint) local() transport.Local {
	return transport.Local{Keys: e.keys, Listen: e.addrs, Compression: e.compression}
}

func (e *Endpoint) topic(id TopicID) *Topic {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.topics[id]
}

func (e *Endpoint) forget(t *Topic) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.topics[t.id] == t {
		delete(e.topics, t.id)
	}
}

// spawn runs fn in the background for the endpoint's lifetime. It
// reports false, without running fn, once the endpoint is closed.
func (e *Endpoint) spawn(fn func(ctx context.Context)) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		fn(e.lifetime)
	}()
	return true
}

// handleConn runs the responder handshake for an inbound connection and
// hands the link to its topic.
func (e *Endpoint) handleConn(raw net.Conn) {
	admit := func(hello transport.Hello) error {
		id, err := TopicIDFromBytes(hello.Scope)
		if err != nil {
			return err
		}
		if e.topic(id) == nil {
			return fmt.Errorf("not subscribed to topic %s", id)
		}
		return nil
	}
	conn, err := transport.Accept(e.lifetime, raw, e.local(), admit)
	if err != nil {
		e.logger.Debug("inbound handshake failed", "remote", raw.RemoteAddr().String(), "error", err)
		return
	}

	id, _ := TopicIDFromBytes(conn.Peer().Scope)
	t := e.topic(id)
	if t == nil {
		conn.Close()
		return
	}
	if err := t.addLink(conn, conn.PeerID()); err != nil {
		e.logger.Debug("inbound link discarded", "peer", conn.PeerID().Short(), "error", err)
	}
}

// advertisedAddrs expands a bound address into dialable addresses. An
// unspecified host becomes every usable interface address, non-loopback
// first.
func advertisedAddrs(bound string) ([]string, error) {
	host, port, err := net.SplitHostPort(bound)
	if err != nil {
		return nil, fmt.Errorf("parsing listen address %q: %w", bound, err)
	}
	ip := net.ParseIP(host)
	if ip != nil && !ip.IsUnspecified() {
		return []string{bound}, nil
	}

	interfaceAddrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil, fmt.Errorf("listing interface addresses: %w", err)
	}
	var external, loopback []string
	for _, addr := range interfaceAddrs {
		network, ok := addr.(*net.IPNet)
		if !ok || network.IP.IsLinkLocalUnicast() || network.IP.IsMulticast() {
			continue
		}
		hostPort := net.JoinHostPort(network.IP.String(), port)
		if network.IP.IsLoopback() {
			loopback = append(loopback, hostPort)
		} else {
			external = append(external, hostPort)
		}
	}
	return append(external, loopback...), nil
}
