// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"net"
	"testing"

	"github.com/bureau-foundation/chatroom/lib/identity"
)

func newTestKeys(t *testing.T) *identity.KeyPair {
	t.Helper()
	keys, err := identity.Generate()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}
	return keys
}

// runBothSides runs runPeerAuth on each end of a pipe and returns both
// results.
func runBothSides(
	alphaAuth PeerAuthenticator, alphaLocal, alphaPeer identity.ID, alphaBinding []byte,
	betaAuth PeerAuthenticator, betaLocal, betaPeer identity.ID, betaBinding []byte,
) []error {
	connectionAlpha, connectionBeta := net.Pipe()
	results := make(chan error, 2)
	go func() {
		results <- runPeerAuth(connectionAlpha, alphaAuth, alphaLocal, alphaPeer, alphaBinding)
		connectionAlpha.Close()
	}()
	go func() {
		results <- runPeerAuth(connectionBeta, betaAuth, betaLocal, betaPeer, betaBinding)
		connectionBeta.Close()
	}()
	return []error{<-results, <-results}
}

// TestRunPeerAuth_MutualSuccess verifies that two peers holding the
// keys for the identities they claim complete authentication.
func TestRunPeerAuth_MutualSuccess(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)
	binding := []byte("ephemeral keys")

	for _, err := range runBothSides(
		KeyAuthenticator{Keys: alpha}, alpha.ID(), beta.ID(), binding,
		KeyAuthenticator{Keys: beta}, beta.ID(), alpha.ID(), binding,
	) {
		if err != nil {
			t.Fatalf("authentication failed: %v", err)
		}
	}
}

// TestRunPeerAuth_Impersonation verifies that a peer claiming an
// identity whose private key it does not hold is rejected.
func TestRunPeerAuth_Impersonation(t *testing.T) {
	alpha, beta, rogue := newTestKeys(t), newTestKeys(t), newTestKeys(t)
	binding := []byte("ephemeral keys")

	results := runBothSides(
		KeyAuthenticator{Keys: alpha}, alpha.ID(), beta.ID(), binding,
		KeyAuthenticator{Keys: rogue}, beta.ID(), alpha.ID(), binding,
	)
	var authFailures int
	for _, err := range results {
		if errors.Is(err, ErrAuthentication) {
			authFailures++
		}
	}
	if authFailures == 0 {
		t.Fatalf("rogue accepted; results %v", results)
	}
}

// TestRunPeerAuth_BindingMismatch verifies that signatures made for one
// key exchange do not verify for another.
func TestRunPeerAuth_BindingMismatch(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)

	results := runBothSides(
		KeyAuthenticator{Keys: alpha}, alpha.ID(), beta.ID(), []byte("exchange one"),
		KeyAuthenticator{Keys: beta}, beta.ID(), alpha.ID(), []byte("exchange two"),
	)
	for i, err := range results {
		if !errors.Is(err, ErrAuthentication) {
			t.Errorf("side %d: err = %v, want ErrAuthentication", i, err)
		}
	}
}

// TestRunPeerAuth_BrokenChannel verifies that authentication fails
// gracefully when the underlying connection breaks mid-handshake.
func TestRunPeerAuth_BrokenChannel(t *testing.T) {
	alpha, beta := newTestKeys(t), newTestKeys(t)

	connectionAlpha, connectionBeta := net.Pipe()
	connectionBeta.Close()

	err := runPeerAuth(connectionAlpha, KeyAuthenticator{Keys: alpha}, alpha.ID(), beta.ID(), nil)
	if err == nil {
		t.Fatal("expected error from broken channel, got nil")
	}
}
