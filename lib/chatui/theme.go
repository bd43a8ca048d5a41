// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette of the chat UI. Colors are ANSI 256-color
// codes for broad terminal compatibility.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Transcript labels.
	OwnLabel    lipgloss.Color
	SystemLabel lipgloss.Color
	PeerLabels  []lipgloss.Color

	// Chrome.
	TitleForeground lipgloss.Color
	BorderColor     lipgloss.Color
	FocusColor      lipgloss.Color
	HelpText        lipgloss.Color

	// Status bar log records.
	WarnText  lipgloss.Color
	ErrorText lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	OwnLabel:    lipgloss.Color("114"), // green
	SystemLabel: lipgloss.Color("245"), // gray
	PeerLabels: []lipgloss.Color{
		lipgloss.Color("75"),  // blue
		lipgloss.Color("141"), // light purple
		lipgloss.Color("208"), // orange
		lipgloss.Color("44"),  // teal
		lipgloss.Color("213"), // pink
		lipgloss.Color("220"), // amber
	},

	TitleForeground: lipgloss.Color("255"),
	BorderColor:     lipgloss.Color("240"),
	FocusColor:      lipgloss.Color("220"),
	HelpText:        lipgloss.Color("241"),

	WarnText:  lipgloss.Color("220"),
	ErrorText: lipgloss.Color("196"),
}

// PeerColor picks a stable color for a participant label, so each name
// keeps its color for the whole session.
func (theme Theme) PeerColor(label string) lipgloss.Color {
	if len(theme.PeerLabels) == 0 {
		return theme.NormalText
	}
	var sum uint32
	for _, r := range label {
		sum = sum*31 + uint32(r)
	}
	return theme.PeerLabels[sum%uint32(len(theme.PeerLabels))]
}
