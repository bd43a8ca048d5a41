// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"golang.org/x/crypto/curve25519"

	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
)

// ProtocolVersion is the link protocol version carried in every Hello.
const ProtocolVersion = 1

// handshakeTimeout bounds the whole handshake when the context has no
// earlier deadline.
const handshakeTimeout = 10 * time.Second

// maxHelloSize bounds a handshake record.
const maxHelloSize = 16 << 10

var (
	// ErrVersion is returned when the peer speaks another protocol
	// version.
	ErrVersion = errors.New("unsupported link protocol version")

	// ErrUnexpectedPeer is returned by Dial when the responder is not
	// the identity the caller expected.
	ErrUnexpectedPeer = errors.New("peer identity does not match")
)

// RejectedError is returned by Dial when the responder declined the
// link, and by Accept when the admit function did.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return "link rejected: " + e.Reason
}

// Hello is the first record each side sends.
type Hello struct {
	Version uint `cbor:"version"`

	// Scope names what the link is for. The gossip layer uses the
	// topic identifier.
	Scope []byte `cbor:"scope,omitempty"`

	ID identity.ID `cbor:"id"`

	// Listen holds the addresses the sender accepts links on.
	Listen []string `cbor:"listen,omitempty"`

	// Ephemeral is the sender's X25519 public key for this link.
	Ephemeral []byte `cbor:"ephemeral,omitempty"`

	// Reject is set, alone, by a responder declining the link.
	Reject string `cbor:"reject,omitempty"`
}

// Local describes this side of a link.
type Local struct {
	Keys   *identity.KeyPair
	Listen []string

	// Compression is applied to outgoing frames. Incoming frames may
	// use any tag.
	Compression CompressionTag
}

// AdmitFunc decides whether to accept a link from the peer that sent
// hello. A non-nil error is sent to the peer as the rejection reason.
type AdmitFunc func(hello Hello) error

// Dial runs the initiator side of the handshake on conn, asking for
// scope. If expect is not the zero ID the responder must be that
// identity. On error conn is closed.
func Dial(ctx context.Context, conn net.Conn, local Local, scope []byte, expect identity.ID) (*Conn, error) {
	link, err := dial(ctx, conn, local, scope, expect)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return link, nil
}

func dial(ctx context.Context, conn net.Conn, local Local, scope []byte, expect identity.ID) (*Conn, error) {
	defer guardHandshake(ctx, conn)()

	private, public, err := ephemeralKey()
	if err != nil {
		return nil, err
	}
	hello := Hello{
		Version:   ProtocolVersion,
		Scope:     scope,
		ID:        local.Keys.ID(),
		Listen:    local.Listen,
		Ephemeral: public,
	}
	if err := writeRecord(conn, hello); err != nil {
		return nil, fmt.Errorf("sending hello: %w", err)
	}

	var reply Hello
	if err := readRecord(conn, &reply); err != nil {
		return nil, fmt.Errorf("reading hello reply: %w", err)
	}
	if reply.Reject != "" {
		return nil, &RejectedError{Reason: reply.Reject}
	}
	if err := checkHello(reply); err != nil {
		return nil, err
	}
	if !bytes.Equal(reply.Scope, scope) {
		return nil, fmt.Errorf("responder answered for a different scope")
	}
	if !expect.IsZero() && reply.ID != expect {
		return nil, fmt.Errorf("%w: dialed %s, reached %s", ErrUnexpectedPeer, expect.Short(), reply.ID.Short())
	}

	return establish(conn, local, hello, reply, private, true)
}

// Accept runs the responder side of the handshake on conn. admit sees
// the initiator's Hello before anything is revealed about this side.
// On error conn is closed.
func Accept(ctx context.Context, conn net.Conn, local Local, admit AdmitFunc) (*Conn, error) {
	link, err := accept(ctx, conn, local, admit)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return link, nil
}

func accept(ctx context.Context, conn net.Conn, local Local, admit AdmitFunc) (*Conn, error) {
	defer guardHandshake(ctx, conn)()

	var hello Hello
	if err := readRecord(conn, &hello); err != nil {
		return nil, fmt.Errorf("reading hello: %w", err)
	}
	if err := checkHello(hello); err != nil {
		writeRecord(conn, Hello{Version: ProtocolVersion, Reject: err.Error()})
		return nil, err
	}
	if hello.ID == local.Keys.ID() {
		writeRecord(conn, Hello{Version: ProtocolVersion, Reject: "connected to self"})
		return nil, &RejectedError{Reason: "connected to self"}
	}
	if admit != nil {
		if err := admit(hello); err != nil {
			writeRecord(conn, Hello{Version: ProtocolVersion, Reject: err.Error()})
			return nil, &RejectedError{Reason: err.Error()}
		}
	}

	private, public, err := ephemeralKey()
	if err != nil {
		return nil, err
	}
	reply := Hello{
		Version:   ProtocolVersion,
		Scope:     hello.Scope,
		ID:        local.Keys.ID(),
		Listen:    local.Listen,
		Ephemeral: public,
	}
	if err := writeRecord(conn, reply); err != nil {
		return nil, fmt.Errorf("sending hello reply: %w", err)
	}

	return establish(conn, local, reply, hello, private, false)
}

// establish authenticates the peer and derives the session keys. The
// binding is always initiator key then responder key, so both sides
// sign the same bytes.
func establish(conn net.Conn, local Local, own, peer Hello, private []byte, initiator bool) (*Conn, error) {
	binding := append(append([]byte{}, own.Ephemeral...), peer.Ephemeral...)
	if !initiator {
		binding = append(append([]byte{}, peer.Ephemeral...), own.Ephemeral...)
	}
	if err := runPeerAuth(conn, KeyAuthenticator{Keys: local.Keys}, own.ID, peer.ID, binding); err != nil {
		return nil, err
	}

	shared, err := curve25519.X25519(private, peer.Ephemeral)
	if err != nil {
		return nil, fmt.Errorf("%w: key agreement: %w", ErrAuthentication, err)
	}
	return newConn(conn, peer, local.Compression, shared, own.Scope, initiator)
}

func checkHello(hello Hello) error {
	if hello.Version != ProtocolVersion {
		return fmt.Errorf("%w: %d", ErrVersion, hello.Version)
	}
	if hello.ID.IsZero() {
		return errors.New("hello carries no identity")
	}
	if len(hello.Ephemeral) != curve25519.PointSize {
		return fmt.Errorf("hello ephemeral key is %d bytes, want %d", len(hello.Ephemeral), curve25519.PointSize)
	}
	return nil
}

func ephemeralKey() (private, public []byte, err error) {
	private = make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(private); err != nil {
		return nil, nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	public, err = curve25519.X25519(private, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("deriving ephemeral public key: %w", err)
	}
	return private, public, nil
}

// guardHandshake puts a deadline on conn for the duration of the
// handshake and expires it early if ctx is cancelled. The returned
// function clears both.
func guardHandshake(ctx context.Context, conn net.Conn) func() {
	deadline := time.Now().Add(handshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Unix(1, 0)) })
	return func() {
		stop()
		conn.SetDeadline(time.Time{})
	}
}

// writeRecord sends v as a length-prefixed CBOR record.
func writeRecord(w io.Writer, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	record := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(record, uint32(len(data)))
	_, err = w.Write(append(record, data...))
	return err
}

// readRecord reads exactly one record, so nothing past it is consumed.
func readRecord(r io.Reader, v any) error {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return err
	}
	size := binary.BigEndian.Uint32(header[:])
	if size > maxHelloSize {
		return fmt.Errorf("handshake record of %d bytes exceeds %d", size, maxHelloSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return err
	}
	return codec.Unmarshal(data, v)
}
