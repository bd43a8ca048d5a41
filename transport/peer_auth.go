// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

// authNonceSize is the size of the random challenge nonce in bytes.
const authNonceSize = 32

// authSignatureSize is the size of an Ed25519 signature in bytes.
const authSignatureSize = 64

// ErrAuthentication is wrapped by every handshake failure caused by a
// peer that could not prove its identity.
var ErrAuthentication = errors.New("peer authentication failed")

// PeerAuthenticator signs challenges with the local identity and checks
// a peer's signatures.
type PeerAuthenticator interface {
	// Sign signs message with the local Ed25519 private key. Returns a
	// 64-byte signature.
	Sign(message []byte) []byte

	// VerifyPeer checks that signature over message was produced by
	// peer. Returns an error if it was not.
	VerifyPeer(peer identity.ID, message, signature []byte) error
}

// KeyAuthenticator is the PeerAuthenticator for self-certifying
// identities: the peer's identity is its public key.
type KeyAuthenticator struct {
	Keys *identity.KeyPair
}

// Sign signs message with the key pair.
func (a KeyAuthenticator) Sign(message []byte) []byte {
	return a.Keys.Sign(message)
}

// VerifyPeer verifies signature against the public key peer encodes.
func (a KeyAuthenticator) VerifyPeer(peer identity.ID, message, signature []byte) error {
	if !identity.Verify(peer, message, signature) {
		return fmt.Errorf("Ed25519 signature verification failed for %s", peer.Short())
	}
	return nil
}

// runPeerAuth executes the mutual authentication protocol. Both peers
// run this function simultaneously on the same connection:
//
//  1. Send a 32-byte random nonce
//  2. Read the peer's 32-byte nonce
//  3. Sign (peerNonce || peer || binding), binding the response to the
//     specific challenger and to this handshake's key exchange
//  4. Send the 64-byte Ed25519 signature
//  5. Read the peer's 64-byte signature
//  6. Verify it against (ownNonce || local || binding) using the
//     peer's key
//
// Both sides must pass the same binding bytes.
//
// Writes run on a background goroutine so that synchronous connections
// such as net.Pipe, where Write blocks until the peer reads, cannot
// deadlock with both sides writing first.
//
// The caller is responsible for closing the connection on error.
func runPeerAuth(channel io.ReadWriter, authenticator PeerAuthenticator, local, peer identity.ID, binding []byte) error {
	nonce := make([]byte, authNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generating auth nonce: %w", err)
	}

	writeErrors := make(chan error, 1)
	signatureToSend := make(chan []byte, 1)

	go func() {
		if _, err := channel.Write(nonce); err != nil {
			writeErrors <- fmt.Errorf("sending auth nonce: %w", err)
			return
		}
		signature, ok := <-signatureToSend
		if !ok {
			return
		}
		if _, err := channel.Write(signature); err != nil {
			writeErrors <- fmt.Errorf("sending auth signature: %w", err)
			return
		}
		writeErrors <- nil
	}()

	peerNonce := make([]byte, authNonceSize)
	if _, err := io.ReadFull(channel, peerNonce); err != nil {
		close(signatureToSend)
		return fmt.Errorf("reading peer nonce: %w", err)
	}

	signatureToSend <- authenticator.Sign(challenge(peerNonce, peer, binding))

	peerSignature := make([]byte, authSignatureSize)
	if _, err := io.ReadFull(channel, peerSignature); err != nil {
		return fmt.Errorf("reading peer signature: %w", err)
	}

	if err := <-writeErrors; err != nil {
		return err
	}

	if err := authenticator.VerifyPeer(peer, challenge(nonce, local, binding), peerSignature); err != nil {
		return fmt.Errorf("%w: peer %s: %w", ErrAuthentication, peer.Short(), err)
	}
	return nil
}

func challenge(nonce []byte, challenger identity.ID, binding []byte) []byte {
	message := make([]byte, 0, len(nonce)+identity.Size+len(binding))
	message = append(message, nonce...)
	message = append(message, challenger[:]...)
	return append(message, binding...)
}
