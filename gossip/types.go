// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gossip

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

// TopicIDSize is the length of a topic identifier in bytes.
const TopicIDSize = 32

// TopicID names a room on the overlay. It is opaque and immutable.
type TopicID [TopicIDSize]byte

// NewTopicID draws a fresh random topic identifier.
func NewTopicID() (TopicID, error) {
	var topic TopicID
	if _, err := rand.Read(topic[:]); err != nil {
		return topic, fmt.Errorf("generating topic id: %w", err)
	}
	return topic, nil
}

// TopicIDFromBytes copies b into a TopicID. Fails unless b is exactly
// TopicIDSize bytes.
func TopicIDFromBytes(b []byte) (TopicID, error) {
	var topic TopicID
	if len(b) != TopicIDSize {
		return topic, fmt.Errorf("topic id must be %d bytes, got %d", TopicIDSize, len(b))
	}
	copy(topic[:], b)
	return topic, nil
}

// String returns the lowercase hex form.
func (t TopicID) String() string {
	return hex.EncodeToString(t[:])
}

// MarshalText implements encoding.TextMarshaler.
func (t TopicID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TopicID) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("decoding topic id: %w", err)
	}
	parsed, err := TopicIDFromBytes(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PeerAddress is how to reach a participant: its identity plus
// "host:port" hints for direct TCP dialing.
type PeerAddress struct {
	ID    identity.ID
	Addrs []string
}

// Equal reports whether two addresses carry the same identity and the
// same hints in the same order.
func (a PeerAddress) Equal(other PeerAddress) bool {
	return a.ID == other.ID && slices.Equal(a.Addrs, other.Addrs)
}

// Event is one message received on a topic.
type Event struct {
	// From is the verified origin of the message, not the neighbor
	// that relayed it.
	From identity.ID

	// Content is the payload exactly as the origin broadcast it.
	Content []byte
}
