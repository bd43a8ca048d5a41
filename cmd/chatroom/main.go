// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// chatroom is a peer-to-peer terminal chat scoped to a topic.
//
// "chatroom open" starts a new topic and prints a ticket; anyone running
// "chatroom join <ticket>" connects to the same topic. With no
// subcommand chatroom asks interactively. There is no server: nodes
// link to each other directly over TCP and relay messages through the
// gossip overlay.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/commands"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().ExecuteContext(context.Background())
}
