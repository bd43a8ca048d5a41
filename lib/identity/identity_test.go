// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"strings"
	"testing"
)

func generate(t *testing.T) *KeyPair {
	t.Helper()
	keys, err := Generate()
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return keys
}

func TestTextRoundtrip(t *testing.T) {
	id := generate(t).ID()

	text := id.String()
	if text != strings.ToLower(text) {
		t.Errorf("String() = %q, want lowercase", text)
	}
	if strings.Contains(text, "=") {
		t.Errorf("String() = %q contains padding", text)
	}

	parsed, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != id {
		t.Errorf("Parse(String()) = %v, want %v", parsed, id)
	}

	var unmarshaled ID
	if err := unmarshaled.UnmarshalText([]byte(strings.ToUpper(text))); err != nil {
		t.Fatalf("UnmarshalText of upper-case form: %v", err)
	}
	if unmarshaled != id {
		t.Errorf("UnmarshalText = %v, want %v", unmarshaled, id)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	for _, input := range []string{"", "not base32!", "aaaa"} {
		if _, err := Parse(input); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", input)
		}
	}
}

func TestShortIsDeterministicPrefix(t *testing.T) {
	var id ID
	for i := range id {
		id[i] = byte(i)
	}
	if got, want := id.Short(), "0001020304"; got != want {
		t.Errorf("Short() = %q, want %q", got, want)
	}
	if id.Short() != id.Short() {
		t.Error("Short() is not deterministic")
	}
}

func TestFromBytesLength(t *testing.T) {
	if _, err := FromBytes(make([]byte, Size-1)); err == nil {
		t.Error("FromBytes accepted a short key")
	}
	if _, err := FromBytes(make([]byte, Size)); err != nil {
		t.Errorf("FromBytes rejected a full-size key: %v", err)
	}
}

func TestSignVerify(t *testing.T) {
	alpha := generate(t)
	beta := generate(t)
	message := []byte("hello room")

	signature := alpha.Sign(message)
	if !Verify(alpha.ID(), message, signature) {
		t.Error("signature did not verify against its own key")
	}
	if Verify(beta.ID(), message, signature) {
		t.Error("signature verified against the wrong key")
	}
	if Verify(alpha.ID(), []byte("tampered"), signature) {
		t.Error("signature verified for a different message")
	}
	if Verify(alpha.ID(), message, signature[:10]) {
		t.Error("truncated signature verified")
	}
}

func TestLess(t *testing.T) {
	var low, high ID
	low[0], high[0] = 1, 2
	if !low.Less(high) || high.Less(low) || low.Less(low) {
		t.Error("Less does not order bytewise")
	}
}
