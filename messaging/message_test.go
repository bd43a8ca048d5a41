// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
)

func testID(seed byte) identity.ID {
	var id identity.ID
	for i := range id {
		id[i] = seed + byte(i)
	}
	return id
}

func TestEncodeDecodeVariants(t *testing.T) {
	sender := testID(1)
	bodies := []Body{
		WhoIsThere{From: sender},
		AboutMe{From: sender, Name: "alice"},
		Message{From: sender, Text: "hello, room"},
		Message{From: sender, Text: ""},
	}

	for _, body := range bodies {
		t.Run(string(body.Kind()), func(t *testing.T) {
			envelope, err := Decode(Encode(body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if envelope.Body != body {
				t.Errorf("decoded body = %#v, want %#v", envelope.Body, body)
			}
			if envelope.Body.Sender() != sender {
				t.Errorf("Sender() = %v, want %v", envelope.Body.Sender(), sender)
			}
		})
	}
}

func TestEncodeUsesFreshNonce(t *testing.T) {
	body := AboutMe{From: testID(2), Name: "bob"}

	first := Encode(body)
	second := Encode(body)
	if bytes.Equal(first, second) {
		t.Fatal("two encodings of the same body are byte-identical")
	}

	firstEnvelope, err := Decode(first)
	if err != nil {
		t.Fatalf("Decode first: %v", err)
	}
	secondEnvelope, err := Decode(second)
	if err != nil {
		t.Fatalf("Decode second: %v", err)
	}
	if firstEnvelope.Nonce == secondEnvelope.Nonce {
		t.Error("nonces repeated")
	}
	if firstEnvelope.Body != secondEnvelope.Body {
		t.Error("bodies differ even though only the nonce should")
	}
}

func encodeWire(t *testing.T, wire wireEnvelope) []byte {
	t.Helper()
	data, err := codec.Marshal(wire)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}

func TestDecodeCorrupt(t *testing.T) {
	valid := Encode(Message{From: testID(3), Text: "hi"})
	nonce := bytes.Repeat([]byte{7}, NonceSize)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not cbor")},
		{"truncated", valid[:len(valid)/2]},
		{"trailing byte", append(append([]byte{}, valid...), 0x00)},
		{"unknown kind", encodeWire(t, wireEnvelope{Body: wireBody{Kind: "leave", From: testID(1)}, Nonce: nonce})},
		{"missing kind", encodeWire(t, wireEnvelope{Body: wireBody{From: testID(1), Text: "x"}, Nonce: nonce})},
		{"missing sender", encodeWire(t, wireEnvelope{Body: wireBody{Kind: KindMessage, Text: "x"}, Nonce: nonce})},
		{"short nonce", encodeWire(t, wireEnvelope{Body: wireBody{Kind: KindWhoIsThere, From: testID(1)}, Nonce: nonce[:4]})},
		{"missing nonce", encodeWire(t, wireEnvelope{Body: wireBody{Kind: KindWhoIsThere, From: testID(1)}})},
		{"nameless about_me", encodeWire(t, wireEnvelope{Body: wireBody{Kind: KindAboutMe, From: testID(1)}, Nonce: nonce})},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Decode(test.data)
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Decode error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestDecodeTamperedBytes(t *testing.T) {
	valid := Encode(AboutMe{From: testID(4), Name: "carol"})

	for index := range valid {
		tampered := append([]byte{}, valid...)
		tampered[index] ^= 0xFF
		// Either outcome is acceptable; the call must simply return.
		if _, err := Decode(tampered); err != nil && !errors.Is(err, ErrCorrupt) {
			t.Fatalf("byte %d: error %v does not wrap ErrCorrupt", index, err)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(Encode(WhoIsThere{From: testID(1)}))
	f.Add(Encode(AboutMe{From: testID(2), Name: "dave"}))
	f.Add(Encode(Message{From: testID(3), Text: "text"}))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		envelope, err := Decode(data)
		if err != nil {
			if !errors.Is(err, ErrCorrupt) {
				t.Fatalf("error %v does not wrap ErrCorrupt", err)
			}
			return
		}
		if envelope.Body == nil {
			t.Fatal("successful decode returned a nil body")
		}
	})
}
