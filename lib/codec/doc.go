// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the single CBOR configuration every chatroom wire
// format goes through: rendezvous tickets, chat envelopes, and the
// frames exchanged on gossip links.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2), so the same
// value always produces the same bytes. Tickets depend on this: two
// participants encoding the same room and peer list must print the same
// token.
//
// Decoding is configured for untrusted input. Every byte this package
// decodes arrived from another participant or was pasted by a user, so
// duplicate map keys, indefinite-length items, deep nesting and huge
// collections are rejected rather than tolerated, and trailing bytes
// after the first item fail [Unmarshal].
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Struct types that only ever travel as CBOR carry `cbor` tags. Types
// that are also printed as YAML or JSON by the CLI carry `json` tags,
// which fxamacker/cbor reads as a fallback.
package codec
