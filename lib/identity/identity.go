// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package identity defines participant identities. A participant is
// named by the Ed25519 public key of its endpoint, so an identity is
// self-certifying: anyone holding the ID can verify signatures made by
// the matching private key, and nobody else can produce them.
//
// Keys are generated per process. Nothing is persisted.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the length of an ID in bytes.
const Size = ed25519.PublicKeySize

// shortSize is how many leading bytes ID.Short renders.
const shortSize = 5

var textEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ID is a participant identity: an Ed25519 public key.
type ID [Size]byte

// FromBytes copies b into an ID. Fails unless b is exactly Size bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, fmt.Errorf("identity must be %d bytes, got %d", Size, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Parse decodes the text form produced by String.
func Parse(text string) (ID, error) {
	raw, err := textEncoding.DecodeString(strings.ToUpper(text))
	if err != nil {
		return ID{}, fmt.Errorf("decoding identity %q: %w", text, err)
	}
	return FromBytes(raw)
}

// String returns the lowercase unpadded base32 form of the key.
func (id ID) String() string {
	return strings.ToLower(textEncoding.EncodeToString(id[:]))
}

// Short returns a fixed-width hex prefix of the key, used as a display
// label for participants who have not announced a name.
func (id ID) Short() string {
	return hex.EncodeToString(id[:shortSize])
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id == ID{}
}

// Less orders identities bytewise. Used for deterministic tie-breaks.
func (id ID) Less(other ID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Verify reports whether signature is a valid signature of message by
// the key named by id.
func Verify(id ID, message, signature []byte) bool {
	if len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(id[:]), message, signature)
}

// KeyPair is the local participant's signing key.
type KeyPair struct {
	id      ID
	private ed25519.PrivateKey
}

// Generate creates a fresh key pair from crypto/rand.
func Generate() (*KeyPair, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating identity key: %w", err)
	}
	var id ID
	copy(id[:], public)
	return &KeyPair{id: id, private: private}, nil
}

// ID returns the public identity of the key pair.
func (k *KeyPair) ID() ID { return k.id }

// Sign signs message with the private key.
func (k *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(k.private, message)
}
