// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/cli"
	"github.com/bureau-foundation/chatroom/lib/rendezvous"
)

type promptOptions struct {
	AskName bool
	AskPort bool
}

// promptAnswers holds what the user typed. Name and BindPort are nil
// when they were not asked for.
type promptAnswers struct {
	Name     *string
	BindPort *int

	// Open is true for a new room; otherwise Ticket names the room to
	// join.
	Open   bool
	Ticket rendezvous.Ticket
}

// promptSession asks for name, port, and whether to open or join, in
// that order. An unparseable port falls back to 0.
func promptSession(in io.Reader, out io.Writer, options promptOptions) (promptAnswers, error) {
	reader := bufio.NewReader(in)
	var answers promptAnswers

	if options.AskName {
		name, err := ask(reader, out, "Enter your name (optional): ")
		if err != nil {
			return answers, err
		}
		answers.Name = &name
	}

	if options.AskPort {
		text, err := ask(reader, out, "Enter port to bind (default 0): ")
		if err != nil {
			return answers, err
		}
		port := 0
		if parsed, err := strconv.ParseUint(text, 10, 16); err == nil {
			port = int(parsed)
		}
		answers.BindPort = &port
	}

	fmt.Fprintln(out, "Choose an option:")
	fmt.Fprintln(out, "1) Open a new chat room")
	fmt.Fprintln(out, "2) Join an existing chat room")
	choice, err := ask(reader, out, "Enter choice (1 or 2): ")
	if err != nil {
		return answers, err
	}

	switch choice {
	case "1":
		answers.Open = true
	case "2":
		token, err := ask(reader, out, "Enter ticket to join: ")
		if err != nil {
			return answers, err
		}
		ticket, err := decodeTicket(token)
		if err != nil {
			return answers, err
		}
		answers.Ticket = ticket
	default:
		return answers, cli.Validation("invalid choice %q", choice).WithHint("Enter 1 to open a room or 2 to join one.")
	}
	return answers, nil
}

// ask prints question and returns the trimmed line typed in reply. A
// final line without a newline is accepted; end of input before any
// text is an error.
func ask(reader *bufio.Reader, out io.Writer, question string) (string, error) {
	fmt.Fprint(out, question)
	line, err := reader.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) || line == "" {
			return "", cli.Validation("reading answer to %q: %w", strings.TrimSpace(question), io.ErrUnexpectedEOF)
		}
	}
	return strings.TrimSpace(line), nil
}
