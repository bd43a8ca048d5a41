// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the authenticated, encrypted point-to-point
// links the gossip overlay is built from.
//
// [Listener] accepts inbound connections and [Dialer] opens outbound
// ones; [TCPListener] and [TCPDialer] implement them over plain TCP.
// A raw connection becomes a link with [Dial] on the initiating side and
// [Accept] on the responding side:
//
//  1. The initiator sends a [Hello] naming the protocol version, the
//     scope it wants to talk about (the gossip topic), its identity,
//     the addresses it listens on, and an ephemeral X25519 public key.
//  2. The responder decides whether to admit the peer (the gossip
//     layer checks that it has joined the scope) and answers with its
//     own Hello, or with a Hello carrying only a rejection reason.
//  3. Both sides run a mutual Ed25519 challenge-response. Each signs
//     the other's random nonce together with the challenger's identity
//     and both ephemeral keys, which binds the key exchange to the
//     long-term identities and prevents replay against a third party.
//  4. Both derive one ChaCha20-Poly1305 key per direction from the
//     X25519 shared secret with HKDF-SHA256, salted with the scope.
//
// After the handshake a [Conn] carries frames: a 4-byte big-endian
// length followed by the sealed frame. The plaintext starts with a
// [CompressionTag]; bodies of at least 256 bytes are compressed with
// the sender's preferred algorithm when that makes them smaller. Nonces
// are per-direction counters, so a replayed, dropped, or reordered
// frame fails to open and the link is torn down.
//
// Identities are participant identities from lib/identity: an identity
// is its Ed25519 public key, so no directory lookup is needed to verify
// a peer.
package transport
