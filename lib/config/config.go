// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/modularui/lib/compression"
	"github.com/bureau-foundation/modularui/protocol"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the master configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	Server   ServerConfig   `yaml:"server"`
	Protocol ProtocolConfig `yaml:"protocol"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Log      LogConfig      `yaml:"log"`

	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains the sections that can be replaced per environment.
type Overrides struct {
	Server   *ServerConfig   `yaml:"server,omitempty"`
	Protocol *ProtocolConfig `yaml:"protocol,omitempty"`
	Log      *LogConfig      `yaml:"log,omitempty"`
}

// ServerConfig configures the authoritative side.
type ServerConfig struct {
	// Listen is the TCP address viewers connect to.
	// Default: 127.0.0.1:7410
	Listen string `yaml:"listen"`

	// Admin is the HTTP address for /health and /sessions. Empty
	// disables the admin endpoint.
	Admin string `yaml:"admin"`

	// TickInterval is how often every live session runs detect/emit.
	// Default: 50ms
	TickInterval time.Duration `yaml:"tick_interval"`

	// TaskQueue is the capacity of the authoritative task queue.
	// Default: 256
	TaskQueue int `yaml:"task_queue"`

	// HelloTimeout closes connections that send no Hello in time.
	// Default: 10s
	HelloTimeout time.Duration `yaml:"hello_timeout"`
}

// ProtocolConfig configures framing and payload compression.
type ProtocolConfig struct {
	// MaxPayload is the largest frame payload accepted, in bytes.
	// Default: 16 MiB
	MaxPayload int `yaml:"max_payload"`

	// Compression is "none", "lz4", or "zstd".
	// Default: lz4
	Compression string `yaml:"compression"`

	// CompressionThreshold is the payload size at which compression
	// is attempted. Default: 1024
	CompressionThreshold int `yaml:"compression_threshold"`
}

// ViewerConfig configures the observing side.
type ViewerConfig struct {
	// Server is the address of the authoritative server.
	Server string `yaml:"server"`

	// Name is the display name sent in the Hello message.
	Name string `yaml:"name"`

	// DialTimeout bounds the TCP connect. Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	// Format is "auto", "text", or "json". Auto picks text when
	// stderr is a terminal.
	Format string `yaml:"format"`

	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`
}

// Default returns a configuration that works without a file.
func Default() *Config {
	return &Config{
		Environment: Development,
		Server: ServerConfig{
			Listen:       "127.0.0.1:7410",
			Admin:        "",
			TickInterval: 50 * time.Millisecond,
			TaskQueue:    256,
			HelloTimeout: 10 * time.Second,
		},
		Protocol: ProtocolConfig{
			MaxPayload:           16 * 1024 * 1024,
			Compression:          "lz4",
			CompressionThreshold: 1024,
		},
		Viewer: ViewerConfig{
			Server:      "127.0.0.1:7410",
			DialTimeout: 5 * time.Second,
		},
		Log: LogConfig{
			Format: "auto",
			Level:  "info",
		},
	}
}

// Load loads configuration from the file named by MODULARUI_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv("MODULARUI_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("MODULARUI_CONFIG environment variable not set; " +
			"set it to the path of your modularui.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path, layered over Default, then
// applies the section for the selected environment.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides
	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &Overrides{
				Protocol: &ProtocolConfig{MaxPayload: 4 * 1024 * 1024},
				Log:      &LogConfig{Format: "json"},
			}
		}
	}
	if overrides == nil {
		return
	}

	if server := overrides.Server; server != nil {
		if server.Listen != "" {
			c.Server.Listen = server.Listen
		}
		if server.Admin != "" {
			c.Server.Admin = server.Admin
		}
		if server.TickInterval != 0 {
			c.Server.TickInterval = server.TickInterval
		}
		if server.TaskQueue != 0 {
			c.Server.TaskQueue = server.TaskQueue
		}
		if server.HelloTimeout != 0 {
			c.Server.HelloTimeout = server.HelloTimeout
		}
	}

	if protocol := overrides.Protocol; protocol != nil {
		if protocol.MaxPayload != 0 {
			c.Protocol.MaxPayload = protocol.MaxPayload
		}
		if protocol.Compression != "" {
			c.Protocol.Compression = protocol.Compression
		}
		if protocol.CompressionThreshold != 0 {
			c.Protocol.CompressionThreshold = protocol.CompressionThreshold
		}
	}

	if log := overrides.Log; log != nil {
		if log.Format != "" {
			c.Log.Format = log.Format
		}
		if log.Level != "" {
			c.Log.Level = log.Level
		}
	}
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Environment {
	case Development, Staging, Production:
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q", c.Environment))
	}
	if c.Server.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("server.tick_interval must be positive, got %v", c.Server.TickInterval))
	}
	if c.Server.HelloTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.hello_timeout must be positive, got %v", c.Server.HelloTimeout))
	}
	if c.Server.TaskQueue <= 0 {
		errs = append(errs, fmt.Errorf("server.task_queue must be positive, got %d", c.Server.TaskQueue))
	}
	if c.Protocol.MaxPayload <= 0 {
		errs = append(errs, fmt.Errorf("protocol.max_payload must be positive, got %d", c.Protocol.MaxPayload))
	}
	switch c.Protocol.Compression {
	case "none", "lz4", "zstd":
	default:
		errs = append(errs, fmt.Errorf("protocol.compression must be none, lz4, or zstd, got %q", c.Protocol.Compression))
	}
	if c.Protocol.CompressionThreshold < 0 {
		errs = append(errs, fmt.Errorf("protocol.compression_threshold must not be negative"))
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be auto, text, or json, got %q", c.Log.Format))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn, or error, got %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// FrameOptions converts the protocol section into framing options.
func (p ProtocolConfig) FrameOptions() (protocol.FrameOptions, error) {
	tag, err := compression.ParseTag(p.Compression)
	if err != nil {
		return protocol.FrameOptions{}, err
	}
	return protocol.FrameOptions{
		MaxPayload:           p.MaxPayload,
		Compression:          tag,
		CompressionThreshold: p.CompressionThreshold,
	}, nil
}
