// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides the channel helpers the chatroom tests
// share.
//
// [RequireReceive], [RequireSend], and [RequireNoReceive] wrap the
// select-with-timeout pattern so that individual tests do not need
// direct time.After calls. The session and gossip code is written
// against lib/clock; these helpers are the one place tests fall back
// on wall-clock time, and only to keep a broken test from hanging.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
