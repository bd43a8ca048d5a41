// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads chatroom settings.
//
// Values are layered, highest precedence first:
//
//   - command-line flags that were set explicitly
//   - CHATROOM_* environment variables (CHATROOM_BIND_PORT, ...)
//   - the configuration file
//   - [Default]
//
// The configuration file is YAML, JSON, or JSONC (JSON with comments
// and trailing commas). A path passed to [Load] must exist. Without
// one, $XDG_CONFIG_HOME/chatroom/config.yaml is read when present and
// silently skipped otherwise.
//
// Key exports:
//
//   - [Config] -- the settings consumed by cmd/chatroom
//   - [Default] -- the built-in values
//   - [Load] -- layer flags, environment, file, and defaults
//   - [Write] -- persist a Config as YAML, used by "config init"
package config
