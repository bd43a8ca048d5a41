// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/cli"
)

type ticketView struct {
	Topic string     `yaml:"topic"`
	Peers []peerView `yaml:"peers"`
}

type peerView struct {
	ID    string   `yaml:"id"`
	Addrs []string `yaml:"addrs"`
}

func ticketCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ticket",
		Short: "Work with chat room tickets",
		// Tickets are decoded without reading the configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	command.AddCommand(&cobra.Command{
		Use:   "inspect <ticket>",
		Short: "Print the topic and peer addresses a ticket carries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := decodeTicket(args[0])
			if err != nil {
				return err
			}
			commandLogger(cmd).Debug("decoded ticket", "topic", ticket.Topic.String(), "peers", len(ticket.Peers))
			view := ticketView{Topic: ticket.Topic.String(), Peers: []peerView{}}
			for _, peer := range ticket.Peers {
				view.Peers = append(view.Peers, peerView{ID: peer.ID.String(), Addrs: peer.Addrs})
			}
			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(view); err != nil {
				return cli.Internal("encoding ticket: %w", err)
			}
			return encoder.Close()
		},
	})
	return command
}
