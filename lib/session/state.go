// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/presence"
	"github.com/bureau-foundation/chatroom/messaging"
)

// AnonymousLabel labels the local participant's own messages when no
// display name was given.
const AnonymousLabel = "You"

// Scroll steps, in transcript lines.
const (
	lineStep = 1
	pageStep = 10
)

// KeyKind is an abstract key action. The terminal layer decides which
// physical keys produce which kind.
type KeyKind int

const (
	KeyInsert KeyKind = iota + 1
	KeySubmit
	KeyBackspace
	KeyQuit
	KeyScrollUp
	KeyScrollDown
	KeyPageUp
	KeyPageDown
)

// Key is one keyboard action. Text is set for KeyInsert only.
type Key struct {
	Kind KeyKind
	Text string
}

// Entry is one transcript line before wrapping.
type Entry struct {
	Label string
	Text  string
}

// Event is one of KeyEvent, InboundEvent, HeartbeatEvent, IdleEvent.
type Event interface {
	event()
}

// KeyEvent carries a key from the input-capture task.
type KeyEvent struct {
	Key Key
}

// InboundEvent carries a payload received on the gossip topic. From is
// the origin the overlay verified; the zero ID means "unknown".
type InboundEvent struct {
	From    identity.ID
	Payload []byte
}

// HeartbeatEvent fires every heartbeat period.
type HeartbeatEvent struct{}

// IdleEvent fires every refresh period and changes nothing.
type IdleEvent struct{}

func (KeyEvent) event()       {}
func (InboundEvent) event()   {}
func (HeartbeatEvent) event() {}
func (IdleEvent) event()      {}

// Effects are the side effects of one transition, executed by the
// Loop in order: broadcasts first, then quit.
type Effects struct {
	// Broadcast lists bodies to encode and send to the topic.
	Broadcast []messaging.Body

	// Quit ends the session.
	Quit bool

	// Dropped is set when an inbound payload was discarded, for
	// logging. It never ends the session.
	Dropped error
}

var errForgedSender = errors.New("message claims a sender other than its origin")

// errEcho marks our own messages coming back from the network.
var errEcho = errors.New("message claims to come from the local participant")

// State is the session's entire mutable state. It is owned by a single
// goroutine; nothing in it is safe for concurrent use.
type State struct {
	self     identity.ID
	name     string
	log      []Entry
	input    string
	scroll   int
	presence *presence.Directory
}

// NewState returns the initial state: empty log, empty input, scroll at
// the newest line, and a directory that knows the local participant if
// name is non-empty.
func NewState(self identity.ID, name string) *State {
	return &State{
		self:     self,
		name:     name,
		presence: presence.New(self, name),
	}
}

// Self returns the local participant's identity.
func (s *State) Self() identity.ID { return s.self }

// Name returns the local display name, empty when anonymous.
func (s *State) Name() string { return s.name }

// Log returns the transcript. The returned slice must not be modified.
func (s *State) Log() []Entry { return slices.Clip(s.log) }

// Input returns the current input buffer.
func (s *State) Input() string { return s.input }

// Scroll returns how many lines back from the newest the transcript is
// scrolled.
func (s *State) Scroll() int { return s.scroll }

// Presence returns the directory. Callers on the loop goroutine only.
func (s *State) Presence() *presence.Directory { return s.presence }

// OwnLabel is the label for locally originated messages.
func (s *State) OwnLabel() string {
	if s.name != "" {
		return s.name
	}
	return AnonymousLabel
}

// Apply performs one transition and returns its side effects. It does
// no I/O.
func (s *State) Apply(event Event) Effects {
	switch event := event.(type) {
	case KeyEvent:
		return s.applyKey(event.Key)
	case InboundEvent:
		return s.applyInbound(event)
	case HeartbeatEvent:
		return s.announce()
	case IdleEvent:
		return Effects{}
	default:
		panic(fmt.Sprintf("session: unknown event type %T", event))
	}
}

func (s *State) applyKey(key Key) Effects {
	switch key.Kind {
	case KeyQuit:
		return Effects{Quit: true}
	case KeySubmit:
		text := strings.TrimSpace(s.input)
		if text == "" {
			return Effects{}
		}
		s.log = append(s.log, Entry{Label: s.OwnLabel(), Text: text})
		s.input = ""
		return Effects{Broadcast: []messaging.Body{messaging.Message{From: s.self, Text: text}}}
	case KeyBackspace:
		if s.input != "" {
			_, size := utf8.DecodeLastRuneInString(s.input)
			s.input = s.input[:len(s.input)-size]
		}
	case KeyInsert:
		s.input += printable(key.Text)
	case KeyScrollUp:
		s.scrollBy(lineStep)
	case KeyScrollDown:
		s.scrollBy(-lineStep)
	case KeyPageUp:
		s.scrollBy(pageStep)
	case KeyPageDown:
		s.scrollBy(-pageStep)
	}
	return Effects{}
}

// scrollBy moves the scroll offset, never below zero. There is no upper
// bound here; the layout clamps to the available history.
func (s *State) scrollBy(delta int) {
	s.scroll = max(0, s.scroll+delta)
}

func (s *State) applyInbound(event InboundEvent) Effects {
	envelope, err := messaging.Decode(event.Payload)
	if err != nil {
		return Effects{Dropped: err}
	}

	sender := envelope.Body.Sender()
	if !event.From.IsZero() && sender != event.From {
		return Effects{Dropped: fmt.Errorf("%w: claims %s, origin %s", errForgedSender, sender.Short(), event.From.Short())}
	}
	if sender == s.self {
		return Effects{Dropped: errEcho}
	}

	switch body := envelope.Body.(type) {
	case messaging.WhoIsThere:
		return s.announce()
	case messaging.AboutMe:
		for _, notice := range s.presence.ObserveAboutMe(body.From, body.Name) {
			s.log = append(s.log, Entry{Label: presence.SystemLabel, Text: notice.Text})
		}
	case messaging.Message:
		s.log = append(s.log, Entry{Label: s.presence.ResolveLabel(body.From), Text: body.Text})
	default:
		panic(fmt.Sprintf("session: unhandled body type %T", body))
	}
	return Effects{}
}

// Start returns the broadcasts that open a session: the who-is-there
// query, then our name if we have one so the room can label our first
// messages without waiting for a heartbeat.
func (s *State) Start() Effects {
	effects := s.announce()
	effects.Broadcast = append([]messaging.Body{messaging.WhoIsThere{From: s.self}}, effects.Broadcast...)
	return effects
}

// announce broadcasts our name, if we have one.
func (s *State) announce() Effects {
	if s.name == "" {
		return Effects{}
	}
	return Effects{Broadcast: []messaging.Body{messaging.AboutMe{From: s.self, Name: s.name}}}
}

// printable drops control characters from typed or pasted text.
func printable(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		return -1
	}, text)
}
