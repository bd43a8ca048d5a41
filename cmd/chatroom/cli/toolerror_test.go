// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/chatroom/lib/rendezvous"
)

func TestToolError_ErrorWithoutHint(t *testing.T) {
	err := Validation("bind-port %d out of range", 70000)
	if err.Error() != "bind-port 70000 out of range" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestToolError_ErrorWithHint(t *testing.T) {
	err := Transient("no bootstrap peer reachable").
		WithHint("Ask for a fresh ticket.")

	want := "no bootstrap peer reachable\n\nAsk for a fresh ticket."
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestToolError_WithHintReturnsReceiver(t *testing.T) {
	original := Validation("bad input")
	if chained := original.WithHint("fix it"); chained != original {
		t.Error("WithHint should return the same pointer")
	}
}

func TestToolError_WrapsCause(t *testing.T) {
	_, decodeErr := rendezvous.Decode("!!!")
	err := fmt.Errorf("join: %w", Validation("invalid ticket: %w", decodeErr).WithHint("copy it again"))

	if !errors.Is(err, rendezvous.ErrEncoding) {
		t.Error("errors.Is does not reach the ticket sentinel through ToolError")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatal("errors.As should find ToolError in wrapped chain")
	}
	if toolErr.Category != CategoryValidation || toolErr.Hint != "copy it again" {
		t.Errorf("ToolError = %+v", toolErr)
	}
}
