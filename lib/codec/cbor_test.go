// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleFrame struct {
	Kind    string `cbor:"kind"`
	Payload []byte `cbor:"payload,omitempty"`
	Hops    int    `cbor:"hops"`
}

type sampleText struct {
	value string
}

func (s sampleText) MarshalText() ([]byte, error) { return []byte("text:" + s.value), nil }

func (s *sampleText) UnmarshalText(data []byte) error {
	s.value = strings.TrimPrefix(string(data), "text:")
	return nil
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleFrame{Kind: "data", Payload: []byte("hello"), Hops: 3}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleFrame
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Kind != original.Kind || decoded.Hops != original.Hops || !bytes.Equal(decoded.Payload, original.Payload) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": "a", "mid": []byte{1, 2}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for range 20 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestTextMarshalerUsesTextString(t *testing.T) {
	type holder struct {
		Value sampleText `cbor:"value"`
	}

	data, err := Marshal(holder{Value: sampleText{value: "abc"}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"text:abc"`) {
		t.Errorf("notation %q does not contain the text form", notation)
	}

	var decoded holder
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Value.value != "abc" {
		t.Errorf("decoded value = %q, want %q", decoded.Value.value, "abc")
	}
}

func TestUnmarshalRejectsHostileInput(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"invalid", []byte{0xFF, 0xFE, 0xFD}},
		{"truncated", []byte{0x82, 0x01}},
		{"duplicate map key", []byte{0xA2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}},
		{"indefinite length", []byte{0x9F, 0x01, 0xFF}},
		{"trailing bytes", []byte{0x01, 0x02}},
		{"empty", nil},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var value any
			if err := Unmarshal(test.data, &value); err == nil {
				t.Errorf("Unmarshal(%x) succeeded, want error", test.data)
			}
		})
	}
}

func TestUnmarshalRejectsDeepNesting(t *testing.T) {
	var data []byte
	for range maxNestedLevels + 4 {
		data = append(data, 0x81)
	}
	data = append(data, 0x01)

	var value any
	if err := Unmarshal(data, &value); err == nil {
		t.Error("Unmarshal accepted nesting beyond the limit")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleFrame{Kind: "data", Hops: 2})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	diagnosis, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diagnosis, `"data"`) {
		t.Errorf("Diagnose = %s", diagnosis)
	}
	if _, err := Diagnose([]byte{0xff, 0x00}); err == nil {
		t.Error("Diagnose accepted bytes that are not CBOR")
	}
}

func BenchmarkMarshal(b *testing.B) {
	frame := sampleFrame{Kind: "data", Payload: bytes.Repeat([]byte("x"), 128), Hops: 1}

	b.ReportAllocs()
	for b.Loop() {
		Marshal(frame)
	}
}
