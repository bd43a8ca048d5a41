// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderScrollbar produces a single-column scrollbar of the given
// height. offsetFromBottom counts lines between the bottom of the
// window and the newest line, matching the transcript's scroll model.
// The thumb takes the focus color while the transcript is scrolled
// away from the tail.
func renderScrollbar(theme Theme, height, totalLines, visibleLines, offsetFromBottom int) string {
	if height <= 0 {
		return ""
	}

	thumbColor := theme.BorderColor
	if offsetFromBottom > 0 {
		thumbColor = theme.FocusColor
	}
	trackStyle := lipgloss.NewStyle().Foreground(theme.BorderColor)
	thumbStyle := lipgloss.NewStyle().Foreground(thumbColor)

	lines := make([]string, height)
	if totalLines <= visibleLines || totalLines <= 0 {
		for index := range lines {
			lines[index] = thumbStyle.Render("┃")
		}
		return strings.Join(lines, "\n")
	}

	thumbSize := max(1, height*visibleLines/totalLines)
	scrollableRange := totalLines - visibleLines
	trackRange := height - thumbSize
	offsetFromTop := scrollableRange - offsetFromBottom
	thumbOffset := 0
	if scrollableRange > 0 && trackRange > 0 {
		thumbOffset = offsetFromTop * trackRange / scrollableRange
	}
	thumbOffset = min(max(0, thumbOffset), height-thumbSize)

	for index := range lines {
		if index >= thumbOffset && index < thumbOffset+thumbSize {
			lines[index] = thumbStyle.Render("┃")
		} else {
			lines[index] = trackStyle.Render("│")
		}
	}
	return strings.Join(lines, "\n")
}
