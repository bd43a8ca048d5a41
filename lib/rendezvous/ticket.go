// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rendezvous encodes the tickets participants pass around out of
// band to join a room. A ticket bundles the room's topic identifier
// with the addresses of peers already in the room.
//
// The token is the deterministic CBOR encoding of the ticket, base32
// encoded without padding and lower-cased so it survives copy-paste,
// chat clients, and QR codes. Decoding is case-insensitive and
// all-or-nothing.
package rendezvous

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/chatroom/gossip"
	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
)

var tokenEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Ticket is everything a new participant needs to join a room.
type Ticket struct {
	Topic gossip.TopicID
	Peers []gossip.PeerAddress
}

// wireTicket is the canonical byte form: a two-element array so the
// token stays short and a wrong field count is a decode error.
type wireTicket struct {
	_     struct{} `cbor:",toarray"`
	Topic []byte
	Peers []wirePeer
}

type wirePeer struct {
	_     struct{} `cbor:",toarray"`
	ID    []byte
	Addrs []string
}

// Encode returns the shareable token for ticket. The same ticket always
// yields the same token.
func Encode(ticket Ticket) string {
	wire := wireTicket{
		Topic: ticket.Topic[:],
		Peers: make([]wirePeer, 0, len(ticket.Peers)),
	}
	for _, peer := range ticket.Peers {
		addrs := peer.Addrs
		if addrs == nil {
			addrs = []string{}
		}
		wire.Peers = append(wire.Peers, wirePeer{ID: peer.ID[:], Addrs: addrs})
	}

	data, err := codec.Marshal(wire)
	if err != nil {
		panic("rendezvous: encoding ticket: " + err.Error())
	}
	return strings.ToLower(tokenEncoding.EncodeToString(data))
}

// Decode parses a token produced by Encode. Surrounding whitespace is
// ignored and case does not matter. On failure the returned error is a
// *DecodeError and no part of the ticket is returned.
func Decode(token string) (Ticket, error) {
	data, err := decodeToken(strings.ToUpper(strings.TrimSpace(token)))
	if err != nil {
		return Ticket{}, &DecodeError{Kind: KindEncoding, Err: err}
	}

	var wire wireTicket
	if err := codec.Unmarshal(data, &wire); err != nil {
		return Ticket{}, &DecodeError{Kind: KindMalformed, Err: err}
	}

	topic, err := gossip.TopicIDFromBytes(wire.Topic)
	if err != nil {
		return Ticket{}, &DecodeError{Kind: KindMalformed, Err: err}
	}

	ticket := Ticket{Topic: topic, Peers: make([]gossip.PeerAddress, 0, len(wire.Peers))}
	for index, peer := range wire.Peers {
		id, err := identity.FromBytes(peer.ID)
		if err != nil {
			return Ticket{}, &DecodeError{Kind: KindMalformed, Err: fmt.Errorf("peer %d: %w", index, err)}
		}
		ticket.Peers = append(ticket.Peers, gossip.PeerAddress{ID: id, Addrs: peer.Addrs})
	}
	return ticket, nil
}

// decodeToken accepts only the exact text tokenEncoding produces. An
// unpadded group of 1, 3 or 6 characters cannot carry whole bytes, and
// nonzero trailing bits would let two tokens name one ticket.
func decodeToken(text string) ([]byte, error) {
	switch len(text) % 8 {
	case 1, 3, 6:
		return nil, fmt.Errorf("token length %d is not a whole number of bytes", len(text))
	}
	data, err := tokenEncoding.DecodeString(text)
	if err != nil {
		return nil, err
	}
	if tokenEncoding.EncodeToString(data) != text {
		return nil, errors.New("token has nonzero trailing bits")
	}
	return data, nil
}

// String returns the shareable token.
func (t Ticket) String() string {
	return Encode(t)
}

// Kind classifies a DecodeError.
type Kind int

const (
	// KindEncoding means the token is not valid base32.
	KindEncoding Kind = iota + 1
	// KindMalformed means the token decoded to bytes that are not a
	// well-formed ticket.
	KindMalformed
)

// Sentinels for errors.Is. A *DecodeError matches the sentinel of its
// Kind.
var (
	ErrEncoding  = errors.New("ticket is not valid base32")
	ErrMalformed = errors.New("ticket is malformed")
)

// DecodeError is returned by Decode.
type DecodeError struct {
	Kind Kind
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %v", e.sentinel(), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches ErrEncoding or ErrMalformed according to Kind.
func (e *DecodeError) Is(target error) bool {
	return target == e.sentinel()
}

func (e *DecodeError) sentinel() error {
	if e.Kind == KindEncoding {
		return ErrEncoding
	}
	return ErrMalformed
}
