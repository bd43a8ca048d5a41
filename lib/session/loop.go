// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bureau-foundation/chatroom/gossip"
	"github.com/bureau-foundation/chatroom/lib/clock"
	"github.com/bureau-foundation/chatroom/lib/codec"
	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/messaging"
)

const (
	// DefaultHeartbeat is how often a named participant re-announces
	// itself.
	DefaultHeartbeat = 5 * time.Second

	// DefaultRefresh bounds how long the loop waits without redrawing.
	DefaultRefresh = 100 * time.Millisecond
)

// ErrSubscriptionClosed is wrapped in the TransportError returned when
// the inbound channel closes under a running session.
var ErrSubscriptionClosed = errors.New("gossip subscription closed")

// TransportError reports a failure of the pub/sub collaborator. It
// always ends the session.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Broadcaster sends a payload to every participant on the topic.
type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte) error
}

// Display receives a new frame after every iteration. Draw must not
// block: the loop calls it on its own goroutine.
type Display interface {
	Draw(Frame)
}

// Options configures a Loop. Keys, Inbound, Broadcaster, and Display
// are required.
type Options struct {
	Self identity.ID
	Name string

	// Keys delivers keys from the input-capture task, in order.
	// Closing it ends the session as if the quit key was pressed.
	Keys <-chan Key

	// Inbound delivers events from the gossip topic.
	Inbound <-chan gossip.Event

	Broadcaster Broadcaster
	Display     Display

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Heartbeat defaults to DefaultHeartbeat.
	Heartbeat time.Duration

	// Refresh defaults to DefaultRefresh.
	Refresh time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Loop runs one chat session.
type Loop struct {
	state       *State
	keys        <-chan Key
	inbound     <-chan gossip.Event
	broadcaster Broadcaster
	display     Display
	clock       clock.Clock
	heartbeat   time.Duration
	refresh     time.Duration
	logger      *slog.Logger
}

// New returns a Loop with its initial State. Panics if a required
// option is missing.
func New(options Options) *Loop {
	if options.Keys == nil || options.Inbound == nil || options.Broadcaster == nil || options.Display == nil {
		panic("session: Keys, Inbound, Broadcaster, and Display are required")
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Heartbeat <= 0 {
		options.Heartbeat = DefaultHeartbeat
	}
	if options.Refresh <= 0 {
		options.Refresh = DefaultRefresh
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Loop{
		state:       NewState(options.Self, options.Name),
		keys:        options.Keys,
		inbound:     options.Inbound,
		broadcaster: options.Broadcaster,
		display:     options.Display,
		clock:       options.Clock,
		heartbeat:   options.Heartbeat,
		refresh:     options.Refresh,
		logger:      options.Logger.With("self", options.Self.Short()),
	}
}

// Run asks who is there and announces our name, then processes events until the user quits
// (returns nil), ctx is cancelled (returns ctx.Err()), or the transport
// fails (returns a *TransportError). Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	heartbeat := l.clock.NewTicker(l.heartbeat)
	defer heartbeat.Stop()
	refresh := l.clock.NewTicker(l.refresh)
	defer refresh.Stop()

	for _, body := range l.state.Start().Broadcast {
		if err := l.broadcast(ctx, body); err != nil {
			return err
		}
	}
	l.logger.Info("session started", "name", l.state.Name())
	l.display.Draw(l.state.Snapshot())

	for {
		var event Event
		select {
		case <-ctx.Done():
			return ctx.Err()

		case key, ok := <-l.keys:
			if !ok {
				l.logger.Debug("key source closed, quitting")
				return nil
			}
			event = KeyEvent{Key: key}

		case inbound, ok := <-l.inbound:
			if !ok {
				return &TransportError{Op: "receive", Err: ErrSubscriptionClosed}
			}
			event = InboundEvent{From: inbound.From, Payload: inbound.Content}

		case <-heartbeat.C:
			event = HeartbeatEvent{}

		case <-refresh.C:
			event = IdleEvent{}
		}

		effects := l.state.Apply(event)
		if effects.Dropped != nil {
			l.logDropped(ctx, event, effects.Dropped)
		}
		for _, body := range effects.Broadcast {
			if err := l.broadcast(ctx, body); err != nil {
				return err
			}
		}
		if effects.Quit {
			l.logger.Info("session ended by user")
			return nil
		}
		l.display.Draw(l.state.Snapshot())
	}
}

func (l *Loop) broadcast(ctx context.Context, body messaging.Body) error {
	if err := l.broadcaster.Broadcast(ctx, messaging.Encode(body)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Op: fmt.Sprintf("broadcast %s", body.Kind()), Err: err}
	}
	return nil
}

// logDropped records a discarded inbound payload. Corrupt payloads are
// logged in CBOR diagnostic notation when they are CBOR at all.
func (l *Loop) logDropped(ctx context.Context, event Event, cause error) {
	if !l.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []any{"error", cause}
	if inbound, ok := event.(InboundEvent); ok && errors.Is(cause, messaging.ErrCorrupt) {
		if diagnosis, err := codec.Diagnose(inbound.Payload); err == nil {
			attrs = append(attrs, "payload", diagnosis)
		} else {
			attrs = append(attrs, "payload_size", len(inbound.Payload))
		}
	}
	l.logger.Debug("discarding inbound message", attrs...)
}
