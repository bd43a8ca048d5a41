// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock lets the chat session's timers be driven by tests.
//
// The session loop waits on two periodic sources, the presence
// heartbeat and the display refresh tick. Both come from a [Clock]
// instead of the time package so that tests can inject [Fake], wait for
// the loop to register its tickers with [FakeClock.WaitForTimers], and
// fire them deterministically with [FakeClock.Advance].
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop.Run(ctx)
//	c.WaitForTimers(2)
//	c.Advance(5 * time.Second) // one heartbeat
package clock
