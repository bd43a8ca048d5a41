// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session is the chat client's concurrency core.
//
// A [Loop] owns one [State] and is the only goroutine that touches it.
// Each iteration waits for exactly one of four sources: a key from the
// input-capture task, a message from the gossip topic, the presence
// heartbeat, or the refresh tick. It then applies the matching [Event]
// with [State.Apply], executes the returned [Effects] (broadcasts are
// awaited inline), and hands a fresh [Frame] to the [Display].
//
// Apply performs no I/O, so every transition can be tested by feeding
// events to a State directly. The Loop adds only the waiting, the
// broadcasting, and the drawing.
//
// Keys arrive over a channel of capacity 1 so the blocking terminal
// reader never shares state with the loop and keystroke order is
// preserved. When several sources are ready at once Go's select picks
// uniformly among them, so a steady stream of network traffic cannot
// starve the keyboard, and the refresh tick bounds how long the loop
// blocks.
//
// A failed broadcast, or the gossip subscription closing, ends the
// session with a [*TransportError]. Inbound bytes that do not decode
// are dropped and the loop carries on.
package session
