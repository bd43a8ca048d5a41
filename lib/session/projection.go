// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"slices"
	"strings"
	"unicode"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/presence"
)

// Frame is a read-only copy of everything the display needs. It shares
// no mutable memory with the State it came from.
type Frame struct {
	Self     identity.ID
	OwnLabel string
	Entries  []Entry
	Input    string
	Scroll   int
	Members  []presence.Member
}

// Snapshot copies the displayable parts of the state.
func (s *State) Snapshot() Frame {
	return Frame{
		Self:     s.self,
		OwnLabel: s.OwnLabel(),
		Entries:  slices.Clone(s.log),
		Input:    s.input,
		Scroll:   s.scroll,
		Members:  s.presence.Members(),
	}
}

// Size is the space available to the transcript and the input line,
// in terminal cells.
type Size struct {
	Width      int
	Height     int
	InputWidth int
}

// View is a Frame laid out for a given Size.
type View struct {
	// Lines are the visible transcript lines, oldest first. There are
	// at most Size.Height of them.
	Lines []string

	// Total is the number of wrapped transcript lines.
	Total int

	// Offset is the scroll offset after clamping: how many lines the
	// bottom of the window sits above the newest line.
	Offset int

	// Input is the tail of the input buffer that fits InputWidth.
	Input string

	// Cursor is the display column just after Input.
	Cursor int
}

// Layout renders each entry as "label: text", wraps it to the width,
// clamps the frame's scroll offset to the available history, and picks
// the visible window. It is a pure function of its arguments.
func Layout(frame Frame, size Size) View {
	width := max(1, size.Width)
	height := max(0, size.Height)

	var lines []string
	for _, entry := range frame.Entries {
		line := sanitize(entry.Label) + ": " + sanitize(entry.Text)
		lines = append(lines, strings.Split(ansi.Wrap(line, width, ""), "\n")...)
	}

	total := len(lines)
	offset := min(frame.Scroll, max(0, total-height))
	end := total - offset
	start := max(0, end-height)

	input, cursor := fitInput(frame.Input, size.InputWidth)
	return View{
		Lines:  lines[start:end],
		Total:  total,
		Offset: offset,
		Input:  input,
		Cursor: cursor,
	}
}

// fitInput keeps the tail of the input that fits in width cells, with
// one cell left for the cursor.
func fitInput(input string, width int) (string, int) {
	room := width - 1
	if room <= 0 {
		return "", 0
	}
	inputWidth := ansi.StringWidth(input)
	if inputWidth <= room {
		return input, inputWidth
	}
	runes := []rune(input)
	for len(runes) > 0 && ansi.StringWidth(string(runes)) > room {
		runes = runes[1:]
	}
	tail := string(runes)
	return tail, ansi.StringWidth(tail)
}

// sanitize removes escape sequences and control characters from text
// received from the network so it cannot drive the terminal.
func sanitize(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, ansi.Strip(text))
}
