// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// modularui-server is the authoritative side of the machine demo. It
// accepts viewer connections over TCP, opens a machine panel for every
// viewer that says hello, steps each viewer's machine on a timer, and
// lets the session server stream the resulting widget deltas.
//
// An optional admin HTTP endpoint reports health and the live session
// list.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/modularui/lib/config"
	"github.com/bureau-foundation/modularui/lib/logging"
	"github.com/bureau-foundation/modularui/lib/version"
	"github.com/bureau-foundation/modularui/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, listen, admin, logFormat, logLevel string
	var stepInterval time.Duration

	flagSet := pflag.NewFlagSet("modularui-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to modularui.yaml (default: $MODULARUI_CONFIG, then built-in defaults)")
	flagSet.StringVar(&listen, "listen", "", "TCP address for viewer connections (overrides server.listen)")
	flagSet.StringVar(&admin, "admin", "", "HTTP address for /health and /sessions (overrides server.admin)")
	flagSet.StringVar(&logFormat, "log-format", "", "log format: auto, text, or json (overrides log.format)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, or error (overrides log.level)")
	flagSet.DurationVar(&stepInterval, "step-interval", 250*time.Millisecond, "how often each machine advances")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("modularui-server")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}
	if stepInterval <= 0 {
		return fmt.Errorf("--step-interval must be positive, got %v", stepInterval)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}
	if admin != "" {
		cfg.Server.Admin = admin
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	frameOptions, err := cfg.Protocol.FrameOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, err := newHost(cfg, logger)
	if err != nil {
		return err
	}

	listener, err := transport.NewTCPListener(cfg.Server.Listen, frameOptions)
	if err != nil {
		return err
	}
	logger.Info("modularui server listening",
		"address", listener.Address(),
		"compression", cfg.Protocol.Compression,
		"tick_interval", cfg.Server.TickInterval,
		"build", version.Current(),
	)

	if cfg.Server.Admin != "" {
		adminServer := &http.Server{
			Addr:              cfg.Server.Admin,
			Handler:           newAdminRouter(host.server.Registry()),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("admin endpoint failed", "address", cfg.Server.Admin, "error", err)
			}
		}()
		defer func() {
			shutdownContext, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			adminServer.Shutdown(shutdownContext)
		}()
		logger.Info("admin endpoint listening", "address", cfg.Server.Admin)
	}

	return host.run(ctx, listener, stepInterval)
}

// loadConfig reads path, falls back to $MODULARUI_CONFIG, and then to
// the built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("MODULARUI_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `modularui-server: authoritative side of the machine panel demo.

Every viewer that connects and says hello gets its own machine and a
panel for it. Widget state is detected every server tick and streamed
to the viewer as deltas.

Usage:
  modularui-server [flags]

Examples:
  # Listen on the default address with built-in configuration
  modularui-server

  # Listen on all interfaces and expose the admin endpoint
  modularui-server --listen 0.0.0.0:7410 --admin 127.0.0.1:7411

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
