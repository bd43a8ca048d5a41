// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/bureau-foundation/chatroom/cmd/chatroom/cli"
	"github.com/bureau-foundation/chatroom/lib/config"
)

func configCommand(s *settings) *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Manage the chatroom config file",
		// The file may not exist yet, so it is not loaded.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var force bool
	initCommand := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration",
		Long: "Write the built-in defaults to --config, or to " + config.DefaultPath() +
			" when --config is not given. Values set with --name or --bind-port are written instead of the defaults.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := s.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return cli.Validation("%s already exists", path).WithHint("Pass --force to overwrite it.")
				} else if !errors.Is(err, fs.ErrNotExist) {
					return cli.Internal("checking %s: %w", path, err)
				}
			}

			cfg := config.Default()
			flags := cmd.Flags()
			if flags.Changed(config.KeyName) {
				cfg.Name, _ = flags.GetString(config.KeyName)
			}
			if flags.Changed(config.KeyBindPort) {
				cfg.BindPort, _ = flags.GetInt(config.KeyBindPort)
			}
			if err := cfg.Validate(); err != nil {
				return cli.Validation("%w", err)
			}
			commandLogger(cmd).Debug("writing config", "path", path, "force", force)
			if err := config.Write(path, cfg); err != nil {
				return cli.Internal("%w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	command.AddCommand(initCommand)
	return command
}
