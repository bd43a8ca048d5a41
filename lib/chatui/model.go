// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/chatroom/lib/presence"
	"github.com/bureau-foundation/chatroom/lib/session"
)

// Layout constants, in terminal cells.
const (
	inputBoxHeight  = 3
	statusBarHeight = 1
	minChatHeight   = 3
	sidebarWidth    = 24
	sidebarMinWidth = 64
	scrollbarWidth  = 1
	borderThickness = 2
	transcriptTitle = "Chat"
	inputTitle      = "Message"
	membersTitle    = "Members"
)

// Options configures a Model.
type Options struct {
	// Keys is the handoff to the session loop. Use a channel of
	// capacity 1.
	Keys chan<- session.Key

	// Done is closed when the session loop has returned. A key that
	// cannot be delivered because of it quits the program.
	Done <-chan struct{}

	// Theme defaults to DefaultTheme.
	Theme *Theme

	// KeyMap defaults to DefaultKeyMap.
	KeyMap *KeyMap
}

// Model is the bubbletea model of the chat UI.
type Model struct {
	keys   chan<- session.Key
	done   <-chan struct{}
	theme  Theme
	keyMap KeyMap

	frame  session.Frame
	width  int
	height int
	ready  bool

	status         *logRecordMsg
	statusSequence int
}

// NewModel returns a Model that hands keys to the session loop.
func NewModel(options Options) Model {
	model := Model{
		keys:   options.Keys,
		done:   options.Done,
		theme:  DefaultTheme,
		keyMap: DefaultKeyMap,
	}
	if options.Theme != nil {
		model.theme = *options.Theme
	}
	if options.KeyMap != nil {
		model.keyMap = *options.KeyMap
	}
	return model
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case frameMsg:
		model.frame = message.frame

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true

	case logRecordMsg:
		model.statusSequence++
		model.status = &message
		sequence := model.statusSequence
		return model, tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
			return logRecordFadeMsg{sequence: sequence}
		})

	case logRecordFadeMsg:
		if message.sequence == model.statusSequence {
			model.status = nil
		}
	}
	return model, nil
}

// handleKey hands a translated key to the session loop, waiting until
// the loop takes it.
func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessionKey, ok := model.keyMap.Translate(message)
	if !ok {
		return model, nil
	}
	select {
	case model.keys <- sessionKey:
	case <-model.done:
		return model, tea.Quit
	}
	if sessionKey.Kind == session.KeyQuit {
		return model, tea.Quit
	}
	return model, nil
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Connecting..."
	}

	chatHeight := max(minChatHeight, model.height-inputBoxHeight-statusBarHeight)
	chatWidth := model.width
	showMembers := model.width >= sidebarMinWidth
	if showMembers {
		chatWidth -= sidebarWidth
	}

	view := session.Layout(model.frame, session.Size{
		Width:      chatWidth - borderThickness - scrollbarWidth,
		Height:     chatHeight - borderThickness,
		InputWidth: model.width - borderThickness,
	})

	transcript := model.renderTranscript(view, chatWidth-borderThickness, chatHeight-borderThickness)
	top := model.box(transcriptTitle, transcript, chatWidth, chatHeight, view.Offset > 0)
	if showMembers {
		members := model.renderMembers(sidebarWidth - borderThickness)
		title := fmt.Sprintf("%s (%d)", membersTitle, len(model.frame.Members))
		top = lipgloss.JoinHorizontal(lipgloss.Top, top, model.box(title, members, sidebarWidth, chatHeight, false))
	}

	input := view.Input + lipgloss.NewStyle().Reverse(true).Render(" ")
	bottom := model.box(inputTitle, input, model.width, inputBoxHeight, true)

	return strings.Join([]string{top, bottom, model.renderStatus()}, "\n")
}

// renderTranscript draws the visible lines with the scrollbar in the
// rightmost column.
func (model Model) renderTranscript(view session.View, width, height int) string {
	contentWidth := width - scrollbarWidth
	rows := make([]string, height)
	for index := range rows {
		if index < len(view.Lines) {
			rows[index] = fit(model.styleLine(view.Lines[index]), contentWidth)
		} else {
			rows[index] = strings.Repeat(" ", max(0, contentWidth))
		}
	}
	scrollbar := renderScrollbar(model.theme, height, view.Total, len(view.Lines), view.Offset)
	return lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(rows, "\n"), scrollbar)
}

// styleLine colors the label of a line that starts an entry. Wrapped
// continuation lines are left plain.
func (model Model) styleLine(line string) string {
	label, rest, found := strings.Cut(line, ": ")
	if !found {
		return line
	}
	var style lipgloss.Style
	switch {
	case label == presence.SystemLabel:
		return lipgloss.NewStyle().Foreground(model.theme.SystemLabel).Italic(true).Render(line)
	case label == model.frame.OwnLabel:
		style = lipgloss.NewStyle().Foreground(model.theme.OwnLabel).Bold(true)
	case model.isMember(label):
		style = lipgloss.NewStyle().Foreground(model.theme.PeerColor(label)).Bold(true)
	default:
		return line
	}
	return style.Render(label) + ": " + rest
}

func (model Model) isMember(name string) bool {
	for _, member := range model.frame.Members {
		if member.Name == name {
			return true
		}
	}
	return false
}

func (model Model) renderMembers(width int) string {
	var rows []string
	for _, member := range model.frame.Members {
		name := member.Name
		style := lipgloss.NewStyle().Foreground(model.theme.PeerColor(name))
		if member.ID == model.frame.Self {
			name += " (you)"
			style = lipgloss.NewStyle().Foreground(model.theme.OwnLabel)
		}
		rows = append(rows, style.Render(ansi.Truncate("● "+name, width, "…")))
	}
	return strings.Join(rows, "\n")
}

func (model Model) renderStatus() string {
	if model.status != nil {
		color := model.theme.WarnText
		if model.status.Level >= slog.LevelError {
			color = model.theme.ErrorText
		}
		return lipgloss.NewStyle().Foreground(color).Render(ansi.Truncate(model.status.Summary, model.width, "…"))
	}

	var parts []string
	for _, binding := range model.keyMap.helpBindings() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	help := strings.Join(parts, " • ")
	if model.frame.OwnLabel != "" {
		help = model.frame.OwnLabel + " │ " + help
	}
	help = ansi.Truncate(help, model.width, "…")
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(help)
}

// box draws a rounded border of exactly width × height cells with the
// title set into the top edge.
func (model Model) box(title, body string, width, height int, highlighted bool) string {
	innerWidth := max(0, width-borderThickness)
	innerHeight := max(0, height-borderThickness)

	borderColor := model.theme.BorderColor
	if highlighted {
		borderColor = model.theme.FocusColor
	}
	border := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Foreground(model.theme.TitleForeground).Bold(true)

	titleText := ansi.Truncate(" "+title+" ", max(0, innerWidth-1), "")
	dashes := max(0, innerWidth-1-ansi.StringWidth(titleText))
	lines := []string{
		border.Render("╭─") + titleStyle.Render(titleText) + border.Render(strings.Repeat("─", dashes)+"╮"),
	}

	bodyLines := strings.Split(body, "\n")
	for index := range innerHeight {
		content := ""
		if index < len(bodyLines) {
			content = bodyLines[index]
		}
		lines = append(lines, border.Render("│")+fit(content, innerWidth)+border.Render("│"))
	}
	lines = append(lines, border.Render("╰"+strings.Repeat("─", innerWidth)+"╯"))
	return strings.Join(lines, "\n")
}

// fit truncates or pads styled text to exactly width cells.
func fit(text string, width int) string {
	if width <= 0 {
		return ""
	}
	text = ansi.Truncate(text, width, "")
	return text + strings.Repeat(" ", max(0, width-ansi.StringWidth(text)))
}
