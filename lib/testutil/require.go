// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"time"
)

// Timeout is the safety valve used by the chatroom tests. It only
// bounds how long a failing test hangs; passing tests never wait this
// long.
const Timeout = 5 * time.Second

// T is the subset of testing.TB the helpers need.
type T interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch within Timeout, or fails the
// test. A closed channel is a failure.
//
//	event := testutil.RequireReceive(t, topic.Events(), "waiting for hello")
func RequireReceive[V any](t T, ch <-chan V, msgAndArgs ...any) V {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without sending a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(Timeout):
		t.Fatalf("timed out after %v: %s", Timeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// RequireClosed waits for ch to be closed within Timeout, draining any
// values still buffered in it, or fails the test.
func RequireClosed[V any](t T, ch <-chan V, msgAndArgs ...any) {
	t.Helper()
	deadline := time.After(Timeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out after %v waiting for channel close: %s", Timeout, formatMessage(msgAndArgs))
		}
	}
}

// RequireSend sends v on ch within Timeout, or fails the test.
func RequireSend[V any](t T, ch chan<- V, v V, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- v:
	case <-time.After(Timeout):
		t.Fatalf("timed out after %v: %s", Timeout, formatMessage(msgAndArgs))
	}
}

// RequireNoReceive fails the test if ch yields a value within window.
// A closed channel also fails. Use it to check that something did not
// happen, with a window long enough for it to have happened.
func RequireNoReceive[V any](t T, ch <-chan V, window time.Duration, msgAndArgs ...any) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed: %s", formatMessage(msgAndArgs))
		}
		t.Fatalf("unexpected value %+v: %s", v, formatMessage(msgAndArgs))
	case <-time.After(window):
	}
}

// formatMessage formats optional message arguments into a string.
// Accepts either a single value or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		return fmt.Sprint(msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprint(msgAndArgs...)
}
