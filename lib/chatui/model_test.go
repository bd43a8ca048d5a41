// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/presence"
	"github.com/bureau-foundation/chatroom/lib/session"
	"github.com/bureau-foundation/chatroom/lib/testutil"
)

func sized(model Model, width, height int) Model {
	updated, _ := model.Update(tea.WindowSizeMsg{Width: width, Height: height})
	return updated.(Model)
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestUpdateHandsKeysInOrder(t *testing.T) {
	keys := make(chan session.Key, 1)
	model := NewModel(Options{Keys: keys, Done: make(chan struct{})})

	received := make(chan session.Key, 8)
	go func() {
		for key := range keys {
			received <- key
		}
	}()

	messages := []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("h")},
		{Type: tea.KeyRunes, Runes: []rune("i")},
		{Type: tea.KeyTab},
		{Type: tea.KeyEnter},
	}
	for _, message := range messages {
		updated, cmd := model.Update(message)
		if cmd != nil {
			t.Fatalf("Update(%v) returned a command", message)
		}
		model = updated.(Model)
	}
	close(keys)

	want := []session.Key{
		{Kind: session.KeyInsert, Text: "h"},
		{Kind: session.KeyInsert, Text: "i"},
		{Kind: session.KeySubmit},
	}
	for i, expected := range want {
		if got := testutil.RequireReceive(t, received, "key %d", i); got != expected {
			t.Errorf("key %d = %+v, want %+v", i, got, expected)
		}
	}
}

func TestQuitKeyQuitsProgram(t *testing.T) {
	keys := make(chan session.Key, 1)
	model := NewModel(Options{Keys: keys, Done: make(chan struct{})})
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !isQuit(cmd) {
		t.Error("quit key did not quit the program")
	}
	if got := <-keys; got.Kind != session.KeyQuit {
		t.Errorf("loop received %+v, want quit", got)
	}
}

func TestKeyAfterSessionEndedQuits(t *testing.T) {
	done := make(chan struct{})
	close(done)
	model := NewModel(Options{Keys: make(chan session.Key), Done: done})
	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !isQuit(cmd) {
		t.Error("key after session end did not quit")
	}
}

func testFrame() session.Frame {
	alice := identity.ID{0xa1}
	bob := identity.ID{0xb0}
	return session.Frame{
		Self:     alice,
		OwnLabel: "alice",
		Entries: []session.Entry{
			{Label: "System", Text: "bob joined"},
			{Label: "bob", Text: "hi alice"},
			{Label: "alice", Text: "hi bob"},
		},
		Input:   "typing",
		Members: []presence.Member{{ID: alice, Name: "alice"}, {ID: bob, Name: "bob"}},
	}
}

func TestViewLayout(t *testing.T) {
	model := sized(NewModel(Options{Keys: make(chan session.Key, 1)}), 80, 20)
	updated, _ := model.Update(frameMsg{frame: testFrame()})
	model = updated.(Model)

	view := ansi.Strip(model.View())
	lines := strings.Split(view, "\n")
	if len(lines) != 20 {
		t.Errorf("view has %d lines, want 20", len(lines))
	}
	for i, line := range lines {
		if width := ansi.StringWidth(line); width > 80 {
			t.Errorf("line %d is %d cells wide", i, width)
		}
	}
	for _, want := range []string{"Chat", "Message", "Members (2)", "System: bob joined", "bob: hi alice", "alice: hi bob", "typing", "alice (you)", "esc quit"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestViewNarrowHidesMembers(t *testing.T) {
	model := sized(NewModel(Options{Keys: make(chan session.Key, 1)}), 40, 12)
	updated, _ := model.Update(frameMsg{frame: testFrame()})
	view := ansi.Strip(updated.(Model).View())
	if strings.Contains(view, "Members") {
		t.Error("narrow terminal shows the member list")
	}
	if !strings.Contains(view, "alice: hi bob") {
		t.Errorf("narrow view lost the transcript:\n%s", view)
	}
}

func TestViewBeforeSize(t *testing.T) {
	if view := NewModel(Options{}).View(); view != "Connecting..." {
		t.Errorf("View() = %q before the first size", view)
	}
}

func TestStatusBarLogRecord(t *testing.T) {
	model := sized(NewModel(Options{Keys: make(chan session.Key, 1)}), 80, 20)

	updated, cmd := model.Update(logRecordMsg{Summary: "link failed (peer=b0)", Level: slog.LevelWarn})
	model = updated.(Model)
	if cmd == nil {
		t.Fatal("log record did not schedule a fade")
	}
	if !strings.Contains(ansi.Strip(model.View()), "link failed (peer=b0)") {
		t.Error("status bar does not show the log record")
	}

	stale := logRecordFadeMsg{sequence: model.statusSequence}
	updated, _ = model.Update(logRecordMsg{Summary: "second", Level: slog.LevelError})
	model = updated.(Model)
	updated, _ = model.Update(stale)
	model = updated.(Model)
	if !strings.Contains(ansi.Strip(model.View()), "second") {
		t.Error("a stale fade cleared a newer record")
	}

	updated, _ = model.Update(logRecordFadeMsg{sequence: model.statusSequence})
	model = updated.(Model)
	if !strings.Contains(ansi.Strip(model.View()), "esc quit") {
		t.Error("fade did not restore the help line")
	}
}

func TestRenderScrollbar(t *testing.T) {
	theme := DefaultTheme
	bottom := ansi.Strip(renderScrollbar(theme, 4, 40, 4, 0))
	top := ansi.Strip(renderScrollbar(theme, 4, 40, 4, 36))
	if !strings.HasSuffix(bottom, "┃") {
		t.Errorf("tail-following scrollbar thumb not at bottom: %q", bottom)
	}
	if !strings.HasPrefix(top, "┃") {
		t.Errorf("fully scrolled scrollbar thumb not at top: %q", top)
	}
	if got := renderScrollbar(theme, 0, 10, 5, 0); got != "" {
		t.Errorf("zero-height scrollbar = %q", got)
	}
}
