// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal front end of a chat session: a
// bubbletea program that captures keys for the session loop and draws
// the frames it produces.
//
// The session loop and the bubbletea program run on different
// goroutines and meet at two handoffs:
//
//   - Keys: [Model.Update] translates key messages through a [KeyMap]
//     and sends each one to the loop over a channel of capacity 1.
//     The send blocks until the loop takes the key or the session
//     ends, so keys are never dropped or reordered.
//
//   - Frames: a [Presenter] implements session.Display. Draw stores
//     the newest frame in a single-slot mailbox and returns at once;
//     the Presenter's own goroutine forwards frames to the program.
//     Frames may be coalesced, which is harmless because each one is
//     complete.
//
// The layout is a bordered "Chat" transcript with a scrollbar and a
// member list beside it, a bordered "Message" input line, and a status
// bar. Warnings and errors logged while the program owns the terminal
// are routed to the status bar by [TUILogHandler].
//
// Raw mode and the alternate screen belong to tea.Program.Run, which
// restores the terminal on every return path.
package chatui
