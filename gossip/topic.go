// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gossip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/netutil"
	"github.com/bureau-foundation/chatroom/transport"
)

// eventBuffer is the capacity of a topic's Events channel.
const eventBuffer = 256

// outboundBuffer is how many frames may wait for one link's writer.
// A link that falls this far behind is dropped.
const outboundBuffer = 256

// MaxPayloadSize is the largest payload Broadcast accepts, leaving room
// in a transport frame for the origin, signature, and encoding.
const MaxPayloadSize = transport.MaxFrameSize - 1024

// ErrPayloadTooLarge is returned by Broadcast for a payload over
// MaxPayloadSize.
var ErrPayloadTooLarge = errors.New("gossip payload too large")

// Topic is a subscription to one topic on an Endpoint.
type Topic struct {
	endpoint *Endpoint
	id       TopicID
	logger   *slog.Logger

	events chan Event
	done   chan struct{}
	tasks  sync.WaitGroup

	mu      sync.Mutex
	links   map[identity.ID]*link
	known   map[identity.ID]PeerAddress
	dialing map[identity.ID]bool
	seen    *seenSet
	closed  bool
}

func newTopic(endpoint *Endpoint, id TopicID) *Topic {
	return &Topic{
		endpoint: endpoint,
		id:       id,
		logger:   endpoint.logger.With("topic", id.String()[:16]),
		events:   make(chan Event, eventBuffer),
		done:     make(chan struct{}),
		links:    make(map[identity.ID]*link),
		known:    make(map[identity.ID]PeerAddress),
		dialing:  make(map[identity.ID]bool),
		seen:     newSeenSet(seenCapacity),
	}
}

// ID returns the topic identifier.
func (t *Topic) ID() TopicID { return t.id }

// Events delivers payloads broadcast by other participants. It is
// closed after the topic is closed.
func (t *Topic) Events() <-chan Event { return t.events }

// Neighbors returns the identities with a live link, sorted.
func (t *Topic) Neighbors() []identity.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	neighbors := make([]identity.ID, 0, len(t.links))
	for id := range t.links {
		neighbors = append(neighbors, id)
	}
	slices.SortFunc(neighbors, func(a, b identity.ID) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})
	return neighbors
}

// Broadcast signs payload and sends it to every neighbor, which floods
// it onward. It succeeds with no neighbors: the message simply reaches
// no one.
func (t *Topic) Broadcast(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(payload) > MaxPayloadSize {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	self := t.endpoint.ID()
	frame := encodeFrame(wireFrame{Data: &wireData{
		Origin:    self,
		Payload:   payload,
		Signature: t.endpoint.keys.Sign(signedMessage(t.id, payload)),
	}})

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.seen.add(newMessageID(self, payload))
	targets := t.linksExcept(identity.ID{})
	t.mu.Unlock()

	for _, l := range targets {
		t.enqueue(l, frame)
	}
	return nil
}

// Close drops every link and closes Events once the link goroutines
// have stopped.
func (t *Topic) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	links := t.linksExcept(identity.ID{})
	t.mu.Unlock()

	t.endpoint.forget(t)
	close(t.done)
	for _, l := range links {
		l.close()
	}
	t.tasks.Wait()
	close(t.events)
	return nil
}

// linksExcept returns every link but the one to skip. Caller holds mu.
func (t *Topic) linksExcept(skip identity.ID) []*link {
	links := make([]*link, 0, len(t.links))
	for id, l := range t.links {
		if id != skip {
			links = append(links, l)
		}
	}
	return links
}

// knownAddresses lists every peer this topic can describe, starting
// with the local endpoint. Caller holds mu.
func (t *Topic) knownAddresses() []PeerAddress {
	addresses := []PeerAddress{t.endpoint.Address()}
	for _, address := range t.known {
		addresses = append(addresses, address)
	}
	return addresses
}

// dial connects to peer, trying each of its addresses in turn. Only
// one dial per peer runs at a time; a second call while one is in
// flight, or once a link exists, succeeds without dialing.
func (t *Topic) dial(ctx context.Context, peer PeerAddress) error {
	t.mu.Lock()
	switch {
	case t.closed:
		t.mu.Unlock()
		return ErrClosed
	case t.dialing[peer.ID] || t.links[peer.ID] != nil:
		t.mu.Unlock()
		return nil
	}
	t.dialing[peer.ID] = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.dialing, peer.ID)
		t.mu.Unlock()
	}()

	if len(peer.Addrs) == 0 {
		return fmt.Errorf("peer %s: no addresses", peer.ID.Short())
	}
	var failures []error
	for _, address := range peer.Addrs {
		dialCtx, cancel := context.WithTimeout(ctx, t.endpoint.dialTimeout)
		conn, err := t.dialAddress(dialCtx, peer.ID, address)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", address, err))
			continue
		}
		return t.addLink(conn, t.endpoint.ID())
	}
	return fmt.Errorf("peer %s: %w", peer.ID.Short(), errors.Join(failures...))
}

func (t *Topic) dialAddress(ctx context.Context, peer identity.ID, address string) (*transport.Conn, error) {
	raw, err := t.endpoint.dialer.DialContext(ctx, address)
	if err != nil {
		return nil, err
	}
	return transport.Dial(ctx, raw, t.endpoint.local(), t.id[:], peer)
}

// dialInBackground dials a peer learned through peer exchange.
func (t *Topic) dialInBackground(peer PeerAddress) {
	t.endpoint.spawn(func(ctx context.Context) {
		if err := t.dial(ctx, peer); err != nil && !errors.Is(err, ErrClosed) {
			t.logger.Debug("dialing advertised peer failed", "peer", peer.ID.Short(), "error", err)
		}
	})
}

// addLink installs an authenticated link. initiator is the identity
// that dialed it. When a link to the same peer already exists, both
// ends keep the one dialed by the smaller identity and close the
// other. Fails only if the topic is closed.
func (t *Topic) addLink(conn *transport.Conn, initiator identity.ID) error {
	self := t.endpoint.ID()
	peer := conn.PeerID()
	l := newLink(conn, initiator)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	if existing := t.links[peer]; existing != nil {
		preferred := self
		if peer.Less(self) {
			preferred = peer
		}
		if initiator != preferred {
			t.mu.Unlock()
			t.logger.Debug("dropping duplicate link", "peer", peer.Short(), "link", l.id)
			conn.Close()
			return nil
		}
		existing.close()
	}
	t.links[peer] = l
	address := PeerAddress{ID: peer, Addrs: conn.Peer().Listen}
	if len(address.Addrs) > 0 {
		t.known[peer] = address
	}
	snapshot := peersFrame(t.knownAddresses())
	announce := peersFrame([]PeerAddress{address})
	others := t.linksExcept(peer)
	t.tasks.Add(2)
	t.mu.Unlock()

	t.logger.Info("link up", "peer", peer.Short(), "link", l.id, "direction", l.direction(self), "remote", conn.RemoteAddr().String())

	go t.writeLoop(l)
	go t.readLoop(l)

	t.enqueue(l, snapshot)
	if len(address.Addrs) > 0 {
		for _, other := range others {
			t.enqueue(other, announce)
		}
	}
	return nil
}

// removeLink forgets l if it is still the current link to its peer.
func (t *Topic) removeLink(l *link, cause error) {
	l.close()

	t.mu.Lock()
	current := t.links[l.peer] == l
	if current {
		delete(t.links, l.peer)
	}
	t.mu.Unlock()

	switch {
	case !current:
	case cause == nil || netutil.IsExpectedCloseError(cause):
		t.logger.Info("link down", "peer", l.peer.Short(), "link", l.id)
	default:
		t.logger.Warn("link failed", "peer", l.peer.Short(), "link", l.id, "error", cause)
	}
}

func (t *Topic) enqueue(l *link, frame []byte) {
	if !l.enqueue(frame) {
		select {
		case <-l.done:
		default:
			t.removeLink(l, fmt.Errorf("outbound queue full after %d frames", outboundBuffer))
		}
	}
}

func (t *Topic) writeLoop(l *link) {
	defer t.tasks.Done()
	for {
		select {
		case frame := <-l.outbound:
			if err := l.conn.Send(frame); err != nil {
				t.removeLink(l, err)
				return
			}
		case <-l.done:
			return
		}
	}
}

func (t *Topic) readLoop(l *link) {
	defer t.tasks.Done()
	for {
		body, err := l.conn.Receive()
		if err != nil {
			select {
			case <-l.done:
				t.removeLink(l, nil)
			default:
				t.removeLink(l, err)
			}
			return
		}
		if err := t.handleFrame(l, body); err != nil {
			t.removeLink(l, err)
			return
		}
	}
}

// handleFrame processes one frame from l. An error means the peer
// broke protocol and the link should be dropped.
func (t *Topic) handleFrame(l *link, body []byte) error {
	var frame wireFrame
	if err := codec.Unmarshal(body, &frame); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	switch {
	case frame.Data != nil:
		return t.handleData(l, body, frame.Data)
	case frame.Peers != nil:
		t.handlePeers(frame.Peers)
		return nil
	default:
		return errors.New("empty frame")
	}
}

func (t *Topic) handleData(from *link, frame []byte, data *wireData) error {
	if !identity.Verify(data.Origin, signedMessage(t.id, data.Payload), data.Signature) {
		return fmt.Errorf("bad signature on message from origin %s", data.Origin.Short())
	}
	if data.Origin == t.endpoint.ID() {
		return nil
	}

	t.mu.Lock()
	fresh := t.seen.add(newMessageID(data.Origin, data.Payload))
	var targets []*link
	if fresh {
		targets = t.linksExcept(from.peer)
	}
	t.mu.Unlock()
	if !fresh {
		return nil
	}

	select {
	case t.events <- Event{From: data.Origin, Content: data.Payload}:
	case <-t.done:
		return nil
	}
	for _, l := range targets {
		t.enqueue(l, frame)
	}
	return nil
}

func (t *Topic) handlePeers(peers []wirePeer) {
	self := t.endpoint.ID()
	for _, peer := range peers {
		if peer.ID == self || peer.ID.IsZero() || len(peer.Addrs) == 0 {
			continue
		}
		address := PeerAddress{ID: peer.ID, Addrs: peer.Addrs}
		t.mu.Lock()
		_, linked := t.links[peer.ID]
		if !linked {
			t.known[peer.ID] = address
		}
		t.mu.Unlock()
		if !linked {
			t.dialInBackground(address)
		}
	}
}

// link is one authenticated connection to a neighbor.
type link struct {
	conn      *transport.Conn
	peer      identity.ID
	initiator identity.ID
	id        string
	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newLink(conn *transport.Conn, initiator identity.ID) *link {
	return &link{
		conn:      conn,
		peer:      conn.PeerID(),
		initiator: initiator,
		id:        uuid.NewString(),
		outbound:  make(chan []byte, outboundBuffer),
		done:      make(chan struct{}),
	}
}

// enqueue hands frame to the writer without blocking. Reports false if
// the link is closed or its queue is full.
func (l *link) enqueue(frame []byte) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.outbound <- frame:
		return true
	default:
		return false
	}
}

func (l *link) direction(self identity.ID) string {
	if l.initiator == self {
		return "outbound"
	}
	return "inbound"
}

func (l *link) close() {
	l.closeOnce.Do(func() {
		close(l.done)
		l.conn.Close()
	})
}
