// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gossip

import (
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

// seenCapacity is how many message ids a topic remembers. Flooding in a
// small mesh delivers duplicates within moments, far inside this
// window.
const seenCapacity = 4096

// messageID identifies a broadcast for deduplication.
type messageID [32]byte

// messageDomainKey is the BLAKE3 key for message ids: the ASCII domain
// name, zero-padded to 32 bytes.
var messageDomainKey = [32]byte{
	'c', 'h', 'a', 't', 'r', 'o', 'o', 'm', '.', 'g', 'o', 's', 's', 'i', 'p', '.',
	'm', 'e', 's', 's', 'a', 'g', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func newMessageID(origin identity.ID, payload []byte) messageID {
	// NewKeyed only fails for a key that is not 32 bytes.
	hasher, err := blake3.NewKeyed(messageDomainKey[:])
	if err != nil {
		panic("gossip: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(origin[:])
	hasher.Write(payload)
	var id messageID
	copy(id[:], hasher.Sum(nil))
	return id
}

// seenSet remembers the most recent message ids, evicting the oldest
// once full. Not safe for concurrent use.
type seenSet struct {
	capacity int
	order    []messageID
	next     int
	members  map[messageID]struct{}
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{
		capacity: capacity,
		order:    make([]messageID, 0, capacity),
		members:  make(map[messageID]struct{}, capacity),
	}
}

// add records id and reports whether it was new.
func (s *seenSet) add(id messageID) bool {
	if _, ok := s.members[id]; ok {
		return false
	}
	if len(s.order) < s.capacity {
		s.order = append(s.order, id)
	} else {
		delete(s.members, s.order[s.next])
		s.order[s.next] = id
		s.next = (s.next + 1) % s.capacity
	}
	s.members[id] = struct{}{}
	return true
}
