// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/cli"
	"github.com/bureau-foundation/chatroom/gossip"
	"github.com/bureau-foundation/chatroom/lib/chatui"
	"github.com/bureau-foundation/chatroom/lib/config"
	"github.com/bureau-foundation/chatroom/lib/identity"
	"github.com/bureau-foundation/chatroom/lib/rendezvous"
	"github.com/bureau-foundation/chatroom/lib/session"
)

func openCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open a new chat room and print a ticket for others to join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireTerminal(); err != nil {
				return err
			}
			topic, err := gossip.NewTopicID()
			if err != nil {
				return cli.Internal("generating topic: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "> opening chat room for topic %s\n", topic)
			return runChat(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s.config, rendezvous.Ticket{Topic: topic})
		},
	}
}

func joinCommand(s *settings) *cobra.Command {
	return &cobra.Command{
		Use:   "join <ticket>",
		Short: "Join the chat room a ticket names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := decodeTicket(args[0])
			if err != nil {
				return err
			}
			if err := requireTerminal(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "> joining chat room for topic %s\n", ticket.Topic)
			return runChat(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s.config, ticket)
		},
	}
}

// runInteractive asks for whatever the flags left open, then opens or
// joins a room.
func runInteractive(cmd *cobra.Command, cfg *config.Config) error {
	if err := requireTerminal(); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	answers, err := promptSession(cmd.InOrStdin(), out, promptOptions{
		AskName: !cmd.Flags().Changed(config.KeyName),
		AskPort: !cmd.Flags().Changed(config.KeyBindPort),
	})
	if err != nil {
		return err
	}

	chosen := *cfg
	if answers.Name != nil {
		chosen.Name = *answers.Name
	}
	if answers.BindPort != nil {
		chosen.BindPort = *answers.BindPort
	}
	if err := chosen.Validate(); err != nil {
		return cli.Validation("%w", err)
	}

	ticket := answers.Ticket
	if answers.Open {
		topic, err := gossip.NewTopicID()
		if err != nil {
			return cli.Internal("generating topic: %w", err)
		}
		ticket = rendezvous.Ticket{Topic: topic}
		fmt.Fprintf(out, "> opening chat room for topic %s\n", topic)
	} else {
		fmt.Fprintf(out, "> joining chat room for topic %s\n", ticket.Topic)
	}
	return runChat(cmd.Context(), out, cmd.ErrOrStderr(), &chosen, ticket)
}

func decodeTicket(token string) (rendezvous.Ticket, error) {
	ticket, err := rendezvous.Decode(token)
	if err != nil {
		return rendezvous.Ticket{}, cli.Validation("invalid ticket: %w", err).
			WithHint("Copy the whole ticket printed by 'chatroom open' after \"ticket to join us\".")
	}
	return ticket, nil
}

func requireTerminal() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return cli.Validation("standard input is not a terminal").
			WithHint("chatroom is interactive; run it directly in a terminal.")
	}
	return nil
}

// runChat binds the endpoint, joins the topic, and runs the chat UI
// until the user quits, a signal arrives, or the transport fails.
// Diagnostics before the UI starts go to errOut.
func runChat(ctx context.Context, out, errOut io.Writer, cfg *config.Config, ticket rendezvous.Ticket) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	level, err := cfg.Level()
	if err != nil {
		return cli.Validation("log-level: %w", err)
	}
	compression, err := cfg.CompressionTag()
	if err != nil {
		return cli.Validation("compression: %w", err)
	}

	startup := cli.NewCommandLogger(errOut, level)

	statusHandler := chatui.NewTUILogHandler(slog.LevelWarn)
	logger, closeLog, err := cli.NewSessionLogger(statusHandler, cfg.LogOutput, level)
	if err != nil {
		return cli.Validation("%w", err)
	}
	defer closeLog()

	keys, err := identity.Generate()
	if err != nil {
		return cli.Internal("generating identity: %w", err)
	}

	endpoint, err := gossip.NewEndpoint(keys, gossip.Options{
		BindAddress: ":" + strconv.Itoa(cfg.BindPort),
		Compression: compression,
		Logger:      logger,
	})
	if err != nil {
		return cli.Transient("%w", err).
			WithHint("Pick another port with --bind-port, or 0 for any free port.")
	}
	defer endpoint.Close()
	startup.Debug("endpoint bound", "id", endpoint.ID().String(), "addrs", endpoint.Address().Addrs, "compression", cfg.Compression)
	go func() {
		if err := endpoint.Serve(ctx); err != nil {
			logger.Error("accepting links failed", "error", err)
		}
	}()

	fmt.Fprintf(out, "> our node id: %s\n", endpoint.ID())
	own := rendezvous.Ticket{Topic: ticket.Topic, Peers: []gossip.PeerAddress{endpoint.Address()}}
	fmt.Fprintf(out, "> ticket to join us: %s\n", own)
	if len(ticket.Peers) == 0 {
		fmt.Fprintln(out, "> waiting for nodes to join us...")
	} else {
		fmt.Fprintf(out, "> trying to connect to %d nodes...\n", len(ticket.Peers))
	}

	startup.Debug("joining topic", "topic", ticket.Topic.String(), "peers", len(ticket.Peers))
	topic, err := endpoint.Join(ctx, ticket.Topic, ticket.Peers)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return cli.Transient("joining topic %s: %w", ticket.Topic, err).
			WithHint("The nodes in the ticket may have left. Ask for a fresh ticket.")
	}
	defer topic.Close()
	startup.Debug("joined topic", "neighbors", len(topic.Neighbors()))
	fmt.Fprintln(out, "> connected!")

	return runSession(ctx, cfg, endpoint.ID(), topic, statusHandler, logger)
}

// runSession drives the terminal UI and the session loop side by side.
// The program restores the terminal before runSession returns, so
// errors are reported on a clean screen.
func runSession(ctx context.Context, cfg *config.Config, self identity.ID, topic *gossip.Topic, statusHandler *chatui.TUILogHandler, logger *slog.Logger) error {
	keys := make(chan session.Key, 1)
	done := make(chan struct{})
	presenter := chatui.NewPresenter()

	model := chatui.NewModel(chatui.Options{Keys: keys, Done: done})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithoutSignalHandler())
	statusHandler.SetProgram(program)
	defer statusHandler.SetProgram(nil)

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()
	go presenter.Run(sessionCtx, program.Send)

	loop := session.New(session.Options{
		Self:        self,
		Name:        cfg.Name,
		Keys:        keys,
		Inbound:     topic.Events(),
		Broadcaster: topic,
		Display:     presenter,
		Heartbeat:   cfg.Heartbeat,
		Refresh:     cfg.Refresh,
		Logger:      logger,
	})

	var sessionErr error
	go func() {
		sessionErr = loop.Run(sessionCtx)
		close(done)
		program.Quit()
	}()

	_, programErr := program.Run()
	cancelSession()
	<-done

	if programErr != nil {
		return cli.Internal("terminal: %w", programErr)
	}
	if errors.Is(sessionErr, context.Canceled) {
		return nil
	}
	var transportErr *session.TransportError
	if errors.As(sessionErr, &transportErr) {
		return cli.Transient("chat ended: %w", sessionErr)
	}
	if sessionErr != nil {
		return cli.Internal("chat ended: %w", sessionErr)
	}
	return nil
}
