// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging defines the chat protocol carried over a gossip
// topic: three message variants and their envelope encoding.
//
//   - [WhoIsThere] is a discovery probe sent once at session start.
//     Participants with a display name answer it with [AboutMe].
//   - [AboutMe] announces a display name. Sent at session start, in
//     reply to [WhoIsThere], and again on every heartbeat.
//   - [Message] carries chat text.
//
// Every encoded envelope carries 16 fresh random bytes. Two identical
// announcements therefore never serialize to the same bytes, which
// keeps the overlay's duplicate suppression from swallowing a
// legitimate re-announcement.
//
// [Body] is a closed set: the marker method is unexported, and both
// [Encode] and [Decode] switch exhaustively over the three variants.
// Adding a variant means adding a case to each.
package messaging
