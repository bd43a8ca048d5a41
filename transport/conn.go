// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

// MaxFrameSize is the largest body a frame may carry, before
// compression.
const MaxFrameSize = 1 << 20

// HKDF info labels, one per direction.
const (
	infoInitiatorToResponder = "chatroom link v1 initiator to responder"
	infoResponderToInitiator = "chatroom link v1 responder to initiator"
)

// ErrFrameTooLarge is returned by Send for a body over MaxFrameSize and
// by Receive for a frame that declares more.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// Conn is an established link. Send may be called from any number of
// goroutines; Receive from one at a time.
type Conn struct {
	conn        net.Conn
	peer        Hello
	compression CompressionTag

	sendMu      sync.Mutex
	sendAEAD    cipher.AEAD
	sendCounter uint64

	recvAEAD    cipher.AEAD
	recvCounter uint64

	closeOnce sync.Once
	closeErr  error
}

func newConn(conn net.Conn, peer Hello, compression CompressionTag, shared, salt []byte, initiator bool) (*Conn, error) {
	outbound, inbound := infoInitiatorToResponder, infoResponderToInitiator
	if !initiator {
		outbound, inbound = inbound, outbound
	}
	sendAEAD, err := deriveAEAD(shared, salt, outbound)
	if err != nil {
		return nil, err
	}
	recvAEAD, err := deriveAEAD(shared, salt, inbound)
	if err != nil {
		return nil, err
	}
	return &Conn{
		conn:        conn,
		peer:        peer,
		compression: compression,
		sendAEAD:    sendAEAD,
		recvAEAD:    recvAEAD,
	}, nil
}

func deriveAEAD(shared, salt []byte, info string) (cipher.AEAD, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, salt, []byte(info)), key); err != nil {
		return nil, fmt.Errorf("deriving link key: %w", err)
	}
	return chacha20poly1305.New(key)
}

// Peer returns the Hello the peer sent during the handshake. Its ID
// has been authenticated.
func (c *Conn) Peer() Hello { return c.peer }

// PeerID returns the authenticated peer identity.
func (c *Conn) PeerID() identity.ID { return c.peer.ID }

// RemoteAddr returns the network address of the peer.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Send seals body into one frame and writes it.
func (c *Conn) Send(body []byte) error {
	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(body))
	}
	plaintext, err := encodeBody(body, c.compression)
	if err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	frame := make([]byte, 4, 4+len(plaintext)+c.sendAEAD.Overhead())
	frame = c.sendAEAD.Seal(frame, counterNonce(c.sendCounter), plaintext, nil)
	c.sendCounter++
	binary.BigEndian.PutUint32(frame, uint32(len(frame)-4))
	_, err = c.conn.Write(frame)
	return err
}

// Receive reads and opens the next frame. Any error leaves the link
// unusable; the caller should Close it.
func (c *Conn) Receive() ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(c.conn, header[:]); err != nil {
		return nil, err
	}
	size := int(binary.BigEndian.Uint32(header[:]))
	if size > maxSealedSize(c.recvAEAD) {
		return nil, fmt.Errorf("%w: %d sealed bytes", ErrFrameTooLarge, size)
	}
	sealed := make([]byte, size)
	if _, err := io.ReadFull(c.conn, sealed); err != nil {
		return nil, err
	}

	plaintext, err := c.recvAEAD.Open(sealed[:0], counterNonce(c.recvCounter), sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d does not open", ErrAuthentication, c.recvCounter)
	}
	c.recvCounter++
	return decodeBody(plaintext, MaxFrameSize)
}

// Close closes the underlying connection. It is safe to call more than
// once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.conn.Close() })
	return c.closeErr
}

// maxSealedSize is the largest frame a conforming sender produces:
// a MaxFrameSize body plus the tag, the size header a compressed body
// carries, and the AEAD overhead.
func maxSealedSize(aead cipher.AEAD) int {
	return 1 + sizePrefix + MaxFrameSize + aead.Overhead()
}

func counterNonce(counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSize)
	binary.BigEndian.PutUint64(nonce[chacha20poly1305.NonceSize-8:], counter)
	return nonce
}
