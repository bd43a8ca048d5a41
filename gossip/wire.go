// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gossip

import (
	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
)

// wireFrame is one link frame. Exactly one field is set.
type wireFrame struct {
	Data  *wireData  `cbor:"data,omitempty"`
	Peers []wirePeer `cbor:"peers,omitempty"`
}

// wireData is a broadcast being flooded.
type wireData struct {
	Origin    identity.ID `cbor:"origin"`
	Payload   []byte      `cbor:"payload"`
	Signature []byte      `cbor:"signature"`
}

type wirePeer struct {
	ID    identity.ID `cbor:"id"`
	Addrs []string    `cbor:"addrs,omitempty"`
}

func encodeFrame(frame wireFrame) []byte {
	data, err := codec.Marshal(frame)
	if err != nil {
		panic("gossip: encoding frame: " + err.Error())
	}
	return data
}

func peersFrame(addresses []PeerAddress) []byte {
	peers := make([]wirePeer, len(addresses))
	for i, address := range addresses {
		peers[i] = wirePeer{ID: address.ID, Addrs: address.Addrs}
	}
	return encodeFrame(wireFrame{Peers: peers})
}

// signedMessage is what an origin signs: the topic, then the payload.
func signedMessage(topic TopicID, payload []byte) []byte {
	message := make([]byte, 0, TopicIDSize+len(payload))
	message = append(message, topic[:]...)
	return append(message, payload...)
}
