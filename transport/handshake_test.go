// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"slices"
	"testing"
	"time"

	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/testutil"
)

var testScope = bytes.Repeat([]byte{0x5c}, 32)

type handshakeResult struct {
	conn *Conn
	err  error
}

// pair runs Dial and Accept on the two ends of a pipe.
func pair(t *testing.T, dialer, responder Local, expect identity.ID, admit AdmitFunc) (dialed, accepted handshakeResult) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialEnd, acceptEnd := net.Pipe()
	accepts := make(chan handshakeResult, 1)
	go func() {
		conn, err := Accept(ctx, acceptEnd, responder, admit)
		accepts <- handshakeResult{conn, err}
	}()
	conn, err := Dial(ctx, dialEnd, dialer, testScope, expect)
	dialed = handshakeResult{conn, err}
	accepted = <-accepts
	for _, result := range []handshakeResult{dialed, accepted} {
		if result.conn != nil {
			t.Cleanup(func() { result.conn.Close() })
		}
	}
	return dialed, accepted
}

// exchange sends body one way and returns what arrived.
func exchange(t *testing.T, from, to *Conn, body []byte) []byte {
	t.Helper()
	sent := make(chan error, 1)
	go func() { sent <- from.Send(body) }()
	received, err := to.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if err := <-sent; err != nil {
		t.Fatalf("Send: %v", err)
	}
	return received
}

func TestHandshake(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)
	var admitted Hello
	dialed, accepted := pair(t,
		Local{Keys: alpha, Listen: []string{"10.0.0.1:4000"}},
		Local{Keys: beta, Listen: []string{"10.0.0.2:4000"}},
		beta.ID(),
		func(hello Hello) error {
			admitted = hello
			return nil
		},
	)
	if dialed.err != nil || accepted.err != nil {
		t.Fatalf("handshake failed: dial %v, accept %v", dialed.err, accepted.err)
	}

	if !bytes.Equal(admitted.Scope, testScope) || admitted.ID != alpha.ID() {
		t.Errorf("admit saw %+v", admitted)
	}
	if dialed.conn.PeerID() != beta.ID() || accepted.conn.PeerID() != alpha.ID() {
		t.Errorf("peer ids: dialer sees %s, responder sees %s", dialed.conn.PeerID().Short(), accepted.conn.PeerID().Short())
	}
	if got := accepted.conn.Peer().Listen; !slices.Equal(got, []string{"10.0.0.1:4000"}) {
		t.Errorf("responder sees listen %v", got)
	}
	if got := dialed.conn.Peer().Listen; !slices.Equal(got, []string{"10.0.0.2:4000"}) {
		t.Errorf("dialer sees listen %v", got)
	}

	if got := exchange(t, dialed.conn, accepted.conn, []byte("ping")); string(got) != "ping" {
		t.Errorf("responder received %q", got)
	}
	if got := exchange(t, accepted.conn, dialed.conn, []byte("pong")); string(got) != "pong" {
		t.Errorf("dialer received %q", got)
	}
	if got := exchange(t, dialed.conn, accepted.conn, nil); len(got) != 0 {
		t.Errorf("empty frame arrived as %q", got)
	}
}

func TestHandshakeCompression(t *testing.T) {
	for _, tag := range []CompressionTag{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(tag.String(), func(t *testing.T) {
			alpha, beta := newTestKeys(t), newTestKeys(t)
			dialed, accepted := pair(t,
				Local{Keys: alpha, Compression: tag},
				Local{Keys: beta, Compression: CompressionZstd},
				identity.ID{}, nil)
			if dialed.err != nil || accepted.err != nil {
				t.Fatalf("handshake failed: dial %v, accept %v", dialed.err, accepted.err)
			}
			body := bytes.Repeat([]byte("the quick brown fox "), 400)
			if got := exchange(t, dialed.conn, accepted.conn, body); !bytes.Equal(got, body) {
				t.Errorf("body corrupted in transit (%d bytes back)", len(got))
			}
		})
	}
}

func TestHandshakeAdmitRejects(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)
	dialed, accepted := pair(t, Local{Keys: alpha}, Local{Keys: beta}, identity.ID{},
		func(Hello) error { return errors.New("not subscribed to that topic") })

	var rejected *RejectedError
	if !errors.As(dialed.err, &rejected) || rejected.Reason != "not subscribed to that topic" {
		t.Errorf("Dial err = %v, want rejection with reason", dialed.err)
	}
	if !errors.As(accepted.err, &rejected) {
		t.Errorf("Accept err = %v, want *RejectedError", accepted.err)
	}
}

func TestHandshakeUnexpectedPeer(t *testing.T) {
	alpha, beta, other := newTestKeys(t), newTestKeys(t), newTestKeys(t)
	dialed, accepted := pair(t, Local{Keys: alpha}, Local{Keys: beta}, other.ID(), nil)
	if !errors.Is(dialed.err, ErrUnexpectedPeer) {
		t.Errorf("Dial err = %v, want ErrUnexpectedPeer", dialed.err)
	}
	if accepted.err == nil {
		t.Error("responder completed a handshake the dialer abandoned")
	}
}

func TestHandshakeRejectsSelf(t *testing.T) {
	alpha := newTestKeys(t)
	dialed, _ := pair(t, Local{Keys: alpha}, Local{Keys: alpha}, identity.ID{}, nil)
	var rejected *RejectedError
	if !errors.As(dialed.err, &rejected) {
		t.Errorf("Dial err = %v, want *RejectedError", dialed.err)
	}
}

func TestHandshakeVersionMismatch(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)
	dialEnd, acceptEnd := net.Pipe()
	defer dialEnd.Close()

	accepts := make(chan error, 1)
	go func() {
		_, err := Accept(context.Background(), acceptEnd, Local{Keys: beta}, nil)
		accepts <- err
	}()

	ephemeral := make([]byte, 32)
	rand.Read(ephemeral)
	hello := Hello{Version: ProtocolVersion + 1, Scope: testScope, ID: alpha.ID(), Ephemeral: ephemeral}
	if err := writeRecord(dialEnd, hello); err != nil {
		t.Fatalf("writing hello: %v", err)
	}
	var reply Hello
	if err := readRecord(dialEnd, &reply); err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	if reply.Reject == "" {
		t.Errorf("reply = %+v, want a rejection", reply)
	}
	if err := <-accepts; !errors.Is(err, ErrVersion) {
		t.Errorf("Accept err = %v, want ErrVersion", err)
	}
}

func TestHandshakeHonorsContext(t *testing.T) {
	alpha := newTestKeys(t)
	dialEnd, silentEnd := net.Pipe()
	defer silentEnd.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := Dial(ctx, dialEnd, Local{Keys: alpha}, testScope, identity.ID{})
		errs <- err
	}()
	// Drain the hello so the dialer is waiting for a reply that never
	// comes.
	var hello Hello
	if err := readRecord(silentEnd, &hello); err != nil {
		t.Fatalf("reading hello: %v", err)
	}
	cancel()

	if err := testutil.RequireReceive(t, errs, "Dial ignored cancellation"); err == nil {
		t.Fatal("Dial succeeded against a silent peer")
	}
}

// readRawFrame reads one sealed frame off the wire, header included.
func readRawFrame(t *testing.T, r io.Reader) []byte {
	t.Helper()
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		t.Fatalf("reading frame header: %v", err)
	}
	frame := make([]byte, 4+binary.BigEndian.Uint32(header[:]))
	copy(frame, header[:])
	if _, err := io.ReadFull(r, frame[4:]); err != nil {
		t.Fatalf("reading frame: %v", err)
	}
	return frame
}

func TestReplayedFrameRejected(t *testing.T) {
	shared := bytes.Repeat([]byte{7}, 32)

	senderEnd, tap := net.Pipe()
	injector, receiverEnd := net.Pipe()
	defer tap.Close()
	defer injector.Close()

	sender, err := newConn(senderEnd, Hello{}, CompressionNone, shared, testScope, true)
	if err != nil {
		t.Fatalf("newConn: %v", err)
	}
	receiver, err := newConn(receiverEnd, Hello{}, CompressionNone, shared, testScope, false)
	if err != nil {
		t.Fatalf("newConn: %v", err)
	}
	defer sender.Close()
	defer receiver.Close()

	go sender.Send([]byte("once"))
	frame := readRawFrame(t, tap)
	go func() {
		injector.Write(frame)
		injector.Write(frame)
	}()

	if got, err := receiver.Receive(); err != nil || string(got) != "once" {
		t.Fatalf("first Receive = %q, %v", got, err)
	}
	if _, err := receiver.Receive(); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("replayed Receive err = %v, want ErrAuthentication", err)
	}
}

func TestSendTooLarge(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)
	dialed, accepted := pair(t, Local{Keys: alpha}, Local{Keys: beta}, identity.ID{}, nil)
	if dialed.err != nil || accepted.err != nil {
		t.Fatalf("handshake failed: dial %v, accept %v", dialed.err, accepted.err)
	}
	if err := dialed.conn.Send(make([]byte, MaxFrameSize+1)); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("Send err = %v, want ErrFrameTooLarge", err)
	}
}
