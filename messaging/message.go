// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
)

// NonceSize is the length of the per-envelope random nonce.
const NonceSize = 16

// ErrCorrupt is wrapped by every Decode error.
var ErrCorrupt = errors.New("corrupt chat message")

// Kind is the wire tag of a Body variant.
type Kind string

const (
	KindWhoIsThere Kind = "who_is_there"
	KindAboutMe    Kind = "about_me"
	KindMessage    Kind = "message"
)

// Body is one of WhoIsThere, AboutMe, or Message.
type Body interface {
	// Kind returns the variant's wire tag.
	Kind() Kind
	// Sender returns the identity the message claims to come from.
	Sender() identity.ID

	body()
}

// WhoIsThere asks everyone in the room to announce themselves.
type WhoIsThere struct {
	From identity.ID
}

// AboutMe announces the sender's display name.
type AboutMe struct {
	From identity.ID
	Name string
}

// Message is a line of chat text.
type Message struct {
	From identity.ID
	Text string
}

func (WhoIsThere) Kind() Kind { return KindWhoIsThere }
func (AboutMe) Kind() Kind    { return KindAboutMe }
func (Message) Kind() Kind    { return KindMessage }

func (m WhoIsThere) Sender() identity.ID { return m.From }
func (m AboutMe) Sender() identity.ID    { return m.From }
func (m Message) Sender() identity.ID    { return m.From }

func (WhoIsThere) body() {}
func (AboutMe) body()    {}
func (Message) body()    {}

// Envelope is a decoded message: the body plus the nonce it was sent
// with.
type Envelope struct {
	Body  Body
	Nonce [NonceSize]byte
}

type wireEnvelope struct {
	Body  wireBody `cbor:"body"`
	Nonce []byte   `cbor:"nonce"`
}

type wireBody struct {
	Kind Kind        `cbor:"kind"`
	From identity.ID `cbor:"from"`
	Name string      `cbor:"name,omitempty"`
	Text string      `cbor:"text,omitempty"`
}

// Encode attaches a fresh random nonce to body and serializes the
// envelope. Encoding cannot fail for well-formed bodies; a failure is a
// programming error and panics.
func Encode(body Body) []byte {
	wire := wireEnvelope{Nonce: make([]byte, NonceSize)}
	if _, err := rand.Read(wire.Nonce); err != nil {
		panic("messaging: reading nonce: " + err.Error())
	}

	switch body := body.(type) {
	case WhoIsThere:
		wire.Body = wireBody{Kind: KindWhoIsThere, From: body.From}
	case AboutMe:
		wire.Body = wireBody{Kind: KindAboutMe, From: body.From, Name: body.Name}
	case Message:
		wire.Body = wireBody{Kind: KindMessage, From: body.From, Text: body.Text}
	default:
		panic(fmt.Sprintf("messaging: unknown body type %T", body))
	}

	data, err := codec.Marshal(wire)
	if err != nil {
		panic("messaging: encoding envelope: " + err.Error())
	}
	return data
}

// Decode parses an envelope. Any failure wraps ErrCorrupt; Decode never
// panics on hostile input.
func Decode(data []byte) (Envelope, error) {
	var wire wireEnvelope
	if err := codec.Unmarshal(data, &wire); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if len(wire.Nonce) != NonceSize {
		return Envelope{}, fmt.Errorf("%w: nonce is %d bytes, want %d", ErrCorrupt, len(wire.Nonce), NonceSize)
	}
	if wire.Body.From.IsZero() {
		return Envelope{}, fmt.Errorf("%w: missing sender", ErrCorrupt)
	}

	var envelope Envelope
	copy(envelope.Nonce[:], wire.Nonce)

	switch wire.Body.Kind {
	case KindWhoIsThere:
		envelope.Body = WhoIsThere{From: wire.Body.From}
	case KindAboutMe:
		if wire.Body.Name == "" {
			return Envelope{}, fmt.Errorf("%w: about_me without a name", ErrCorrupt)
		}
		envelope.Body = AboutMe{From: wire.Body.From, Name: wire.Body.Name}
	case KindMessage:
		envelope.Body = Message{From: wire.Body.From, Text: wire.Body.Text}
	case "":
		return Envelope{}, fmt.Errorf("%w: missing kind", ErrCorrupt)
	default:
		return Envelope{}, fmt.Errorf("%w: unknown kind %q", ErrCorrupt, wire.Body.Kind)
	}
	return envelope, nil
}
