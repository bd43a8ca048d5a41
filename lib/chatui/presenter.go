// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/chatroom/lib/session"
)

// frameMsg carries a session frame into the program.
type frameMsg struct {
	frame session.Frame
}

// Presenter is the session.Display for a bubbletea program. Draw never
// blocks; Run forwards the newest frame to the program.
type Presenter struct {
	mailbox chan session.Frame
}

var _ session.Display = (*Presenter)(nil)

// NewPresenter returns a Presenter with an empty mailbox.
func NewPresenter() *Presenter {
	return &Presenter{mailbox: make(chan session.Frame, 1)}
}

// Draw replaces any undelivered frame with frame. It must only be
// called from one goroutine, the session loop.
func (p *Presenter) Draw(frame session.Frame) {
	select {
	case p.mailbox <- frame:
		return
	default:
	}
	select {
	case <-p.mailbox:
	default:
	}
	p.mailbox <- frame
}

// Run forwards frames to send until ctx is cancelled. Pass the
// program's Send method.
func (p *Presenter) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-p.mailbox:
			send(frameMsg{frame: frame})
		}
	}
}
