// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/chatroom/transport"
)

// EnvPrefix prefixes every environment override. Dashes in keys become
// underscores: bind-port is CHATROOM_BIND_PORT.
const EnvPrefix = "CHATROOM"

// Keys shared by the file, the environment, and flags of the same name.
const (
	KeyName        = "name"
	KeyBindPort    = "bind-port"
	KeyHeartbeat   = "heartbeat"
	KeyRefresh     = "refresh"
	KeyCompression = "compression"
	KeyLogOutput   = "log-output"
	KeyLogLevel    = "log-level"
)

var keys = []string{KeyName, KeyBindPort, KeyHeartbeat, KeyRefresh, KeyCompression, KeyLogOutput, KeyLogLevel}

// Config holds the settings of one chatroom process.
type Config struct {
	// Name is the display name announced to the topic. Empty stays
	// anonymous: the node never announces itself.
	Name string `yaml:"name" mapstructure:"name"`

	// BindPort is the TCP port to listen on. 0 picks a free port.
	BindPort int `yaml:"bind-port" mapstructure:"bind-port"`

	// Heartbeat is the interval between presence announcements.
	Heartbeat time.Duration `yaml:"heartbeat" mapstructure:"heartbeat"`

	// Refresh is the interval between idle redraws.
	Refresh time.Duration `yaml:"refresh" mapstructure:"refresh"`

	// Compression is the frame compression offered to peers: none,
	// lz4, or zstd.
	Compression string `yaml:"compression" mapstructure:"compression"`

	// LogOutput is a file that receives JSON logs while the chat runs.
	// Empty discards everything below the status bar's level.
	LogOutput string `yaml:"log-output,omitempty" mapstructure:"log-output"`

	// LogLevel is the minimum level written to LogOutput: debug,
	// info, warn, or error.
	LogLevel string `yaml:"log-level" mapstructure:"log-level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BindPort:    0,
		Heartbeat:   5 * time.Second,
		Refresh:     100 * time.Millisecond,
		Compression: transport.CompressionZstd.String(),
		LogLevel:    "info",
	}
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "chatroom", "config.yaml")
}

// Load layers flags, CHATROOM_* environment variables, the file at
// path, and [Default], in that order of precedence. Only flags the
// user set override the other layers. An empty path reads
// [DefaultPath] if it exists. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault(KeyName, defaults.Name)
	v.SetDefault(KeyBindPort, defaults.BindPort)
	v.SetDefault(KeyHeartbeat, defaults.Heartbeat)
	v.SetDefault(KeyRefresh, defaults.Refresh)
	v.SetDefault(KeyCompression, defaults.Compression)
	v.SetDefault(KeyLogOutput, defaults.LogOutput)
	v.SetDefault(KeyLogLevel, defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range keys {
			flag := flags.Lookup(key)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", key, err)
			}
		}
	}

	if path == "" {
		candidate := DefaultPath()
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		if err := readFile(v, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Name = strings.TrimSpace(cfg.Name)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile merges the configuration file at path into v. JSONC is
// reduced to plain JSON first since viper has no JSONC decoder.
func readFile(v *viper.Viper, path string) error {
	extension := strings.ToLower(filepath.Ext(path))
	if extension != ".jsonc" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(jsonc.ToJSON(data))); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.BindPort < 0 || c.BindPort > 65535 {
		errs = append(errs, fmt.Errorf("bind-port %d out of range 0-65535", c.BindPort))
	}
	if c.Heartbeat <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat must be positive, got %s", c.Heartbeat))
	}
	if c.Refresh <= 0 {
		errs = append(errs, fmt.Errorf("refresh must be positive, got %s", c.Refresh))
	}
	if _, err := c.CompressionTag(); err != nil {
		errs = append(errs, fmt.Errorf("compression: %w", err))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, fmt.Errorf("log-level: %w", err))
	}
	if strings.ContainsFunc(c.Name, isControl) {
		errs = append(errs, fmt.Errorf("name contains control characters"))
	}

	return errors.Join(errs...)
}

// CompressionTag parses Compression.
func (c *Config) CompressionTag() (transport.CompressionTag, error) {
	return transport.ParseCompressionTag(c.Compression)
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, err
	}
	return level, nil
}

// Write stores cfg as YAML at path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
