// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/cli"
	"github.com/bureau-foundation/chatroom/lib/config"
	"github.com/bureau-foundation/chatroom/lib/version"
)

// settings is filled by the root command's pre-run hook and read by
// every chat command.
type settings struct {
	configPath string
	config     *config.Config
}

// Root returns the chatroom command tree.
func Root() *cobra.Command {
	s := &settings{}
	var showVersion bool

	root := &cobra.Command{
		Use:           "chatroom",
		Short:         "Peer-to-peer terminal chat scoped to a topic",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "chatroom %s\n", version.Full())
				return nil
			}
			return runInteractive(cmd, s.config)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.configPath, "config", "", "config file (default "+config.DefaultPath()+" if present)")
	flags.StringP(config.KeyName, "n", "", "display name announced to the topic (empty stays anonymous)")
	flags.IntP(config.KeyBindPort, "b", 0, "TCP port to listen on (0 picks a free port)")
	flags.String(config.KeyLogOutput, "", "write JSON log records to this file while chatting")
	flags.String(config.KeyLogLevel, "info", "minimum log level: debug, info, warn, error")
	root.Flags().BoolVar(&showVersion, "version", false, "print version information and exit")

	root.AddCommand(
		openCommand(s),
		joinCommand(s),
		ticketCommand(),
		configCommand(s),
	)
	return root
}

// load resolves the configuration for cmd from its flags, the
// environment, and the config file.
func (s *settings) load(cmd *cobra.Command) error {
	cfg, err := config.Load(s.configPath, cmd.Flags())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cli.NotFound("%w", err).
				WithHint("Create one with 'chatroom config init --config " + s.configPath + "'.")
		}
		return cli.Validation("%w", err)
	}
	s.config = cfg
	return nil
}

// commandLogger logs to cmd's stderr at the --log-level flag, for the
// commands that run without loading the config. An unparseable level
// falls back to info.
func commandLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if text, err := cmd.Flags().GetString(config.KeyLogLevel); err == nil {
		var parsed slog.Level
		if parsed.UnmarshalText([]byte(text)) == nil {
			level = parsed
		}
	}
	return cli.NewCommandLogger(cmd.ErrOrStderr(), level)
}
