// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gossip is a small flood-gossip overlay: the pub/sub channel
// chat sessions run on.
//
// An [Endpoint] owns the local identity and a listener. [Endpoint.Join]
// subscribes to a [TopicID], optionally dialing bootstrap peers taken
// from a rendezvous ticket, and returns a [Topic]. Links between
// endpoints are transport links: authenticated against the peers'
// Ed25519 identities and encrypted, scoped to one topic.
//
// Every broadcast is signed by its origin over the topic and payload.
// A receiving endpoint verifies the signature, drops anything it has
// already seen (by keyed BLAKE3 hash of origin and payload, in a
// bounded window), delivers the payload on [Topic.Events], and forwards
// the frame to every other link. An endpoint never delivers its own
// broadcasts back to itself.
//
// Membership spreads by peer exchange. When a link comes up each side
// sends every address it knows, and announces the new neighbor to its
// other links; endpoints dial the peers they hear about, so a small
// room converges to a full mesh. When two endpoints dial each other at
// once, both keep the link dialed by the lexicographically smaller
// identity.
//
// Delivery is best effort. There is no history: an endpoint that joins
// late sees only what is broadcast after its first link comes up.
package gossip
