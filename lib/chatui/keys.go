// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/chatroom/lib/session"
)

// KeyMap defines the key bindings of the chat UI. Printable keys are
// never bound: they always go to the input line.
type KeyMap struct {
	Submit     key.Binding
	Backspace  key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Quit       key.Binding
}

// DefaultKeyMap is the built-in key binding set. Quit is on Esc and
// Ctrl-C so that every letter can be typed.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Backspace: key.NewBinding(
		key.WithKeys("backspace", "ctrl+h"),
		key.WithHelp("⌫", "delete"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑/↓", "scroll"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup/pgdn", "page"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

// Translate maps a terminal key to a session key. It reports false for
// keys the chat ignores.
func (keys KeyMap) Translate(message tea.KeyMsg) (session.Key, bool) {
	switch {
	case key.Matches(message, keys.Quit):
		return session.Key{Kind: session.KeyQuit}, true
	case key.Matches(message, keys.Submit):
		return session.Key{Kind: session.KeySubmit}, true
	case key.Matches(message, keys.Backspace):
		return session.Key{Kind: session.KeyBackspace}, true
	case key.Matches(message, keys.ScrollUp):
		return session.Key{Kind: session.KeyScrollUp}, true
	case key.Matches(message, keys.ScrollDown):
		return session.Key{Kind: session.KeyScrollDown}, true
	case key.Matches(message, keys.PageUp):
		return session.Key{Kind: session.KeyPageUp}, true
	case key.Matches(message, keys.PageDown):
		return session.Key{Kind: session.KeyPageDown}, true
	}

	switch message.Type {
	case tea.KeyRunes:
		return session.Key{Kind: session.KeyInsert, Text: string(message.Runes)}, true
	case tea.KeySpace:
		return session.Key{Kind: session.KeyInsert, Text: " "}, true
	}
	return session.Key{}, false
}

// helpBindings lists the bindings shown in the status bar.
func (keys KeyMap) helpBindings() []key.Binding {
	return []key.Binding{keys.Submit, keys.ScrollUp, keys.PageUp, keys.Quit}
}
