// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands defines the chatroom command tree.
//
//	chatroom                     ask for name, port, and open/join
//	chatroom open                start a new topic
//	chatroom join <ticket>       join the topic a ticket names
//	chatroom ticket inspect <t>  print a decoded ticket as YAML
//	chatroom config init         write the default config file
//
// Settings come from lib/config: flags, CHATROOM_* environment
// variables, then the config file.
package commands
