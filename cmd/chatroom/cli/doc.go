// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli holds the error and logging conventions shared by the
// chatroom commands.
//
// Commands return a categorized [ToolError] (built with [Validation],
// [NotFound], [Transient], or [Internal]) so main can print an
// optional hint under the message.
//
// [NewCommandLogger] serves the short-lived commands and chat startup
// before the UI takes over. [NewSessionLogger] serves the chat itself,
// where stderr belongs to the terminal UI.
package cli
