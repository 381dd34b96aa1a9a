// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// modularui-viewer is a terminal viewer for modularui-server. It
// connects over TCP, announces itself, and renders whatever panel the
// server opens, applying widget deltas as they arrive.
//
// Log records at warn and above appear in the status line. --log-file
// captures every record as JSON for post-mortem debugging; stderr is
// never written while the alt-screen is up.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/modularui/client"
	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/lib/config"
	"github.com/bureau-foundation/modularui/lib/logging"
	"github.com/bureau-foundation/modularui/lib/machineui"
	"github.com/bureau-foundation/modularui/lib/panelui"
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
	var configPath, server, name, viewerID, logFile string

	flagSet := pflag.NewFlagSet("modularui-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to modularui.yaml (default: $MODULARUI_CONFIG, then built-in defaults)")
	flagSet.StringVar(&server, "server", "", "server address (overrides viewer.server)")
	flagSet.StringVar(&name, "name", "", "display name sent to the server (overrides viewer.name)")
	flagSet.StringVar(&viewerID, "id", "", "viewer id (default: a random UUID)")
	flagSet.StringVar(&logFile, "log-file", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("modularui-viewer")
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

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if server != "" {
		cfg.Viewer.Server = server
	}
	if name != "" {
		cfg.Viewer.Name = name
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if viewerID == "" {
		viewerID = uuid.NewString()
	}
	frameOptions, err := cfg.Protocol.FrameOptions()
	if err != nil {
		return err
	}

	tuiHandler := panelui.NewLogHandler(slog.LevelWarn)
	var handler slog.Handler = tuiHandler
	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("cannot open log file %s: %w", logFile, err)
		}
		defer file.Close()
		fileLogger, err := logging.NewWriter(file, "json", cfg.Log.Level)
		if err != nil {
			return err
		}
		handler = logging.Fanout{tuiHandler, fileLogger.Handler()}
	}
	logger := slog.New(handler)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialer := &transport.TCPDialer{Timeout: cfg.Viewer.DialTimeout, Options: frameOptions}
	conn, err := dialer.DialContext(ctx, cfg.Viewer.Server)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", cfg.Viewer.Server, err)
	}

	factories := factory.NewRegistry()
	if _, err := factories.Register(machineui.Default()); err != nil {
		conn.Close()
		return err
	}
	factories.Freeze()

	return view(ctx, factories, factory.Viewer{ID: viewerID, Name: cfg.Viewer.Name}, conn, logger, tuiHandler)
}

// view runs the client and the terminal program until either ends.
func view(ctx context.Context, factories *factory.Registry, viewer factory.Viewer, conn transport.Conn, logger *slog.Logger, tuiHandler *panelui.LogHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	viewerClient, err := client.New(client.Config{
		Factories: factories,
		Viewer:    viewer,
		Presenter: panelui.NewPresenter(func(message tea.Msg) { program.Send(message) }),
		Conn:      conn,
		Logger:    logger,
	})
	if err != nil {
		conn.Close()
		return err
	}

	program = tea.NewProgram(panelui.NewModel(viewerClient.CloseUI), tea.WithAltScreen(), tea.WithContext(ctx))
	tuiHandler.SetProgram(program)

	clientDone := make(chan struct{})
	go func() {
		defer close(clientDone)
		err := viewerClient.Run(ctx)
		program.Send(panelui.ConnectionLost{Err: err})
	}()

	_, err = program.Run()
	cancel()
	<-clientDone
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
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
	fmt.Fprintf(os.Stderr, `modularui-viewer: terminal viewer for the machine panel demo.

Connects to a modularui-server, announces a viewer id and display
name, and shows the panel the server opens. Press c to close the
panel and q to quit.

Usage:
  modularui-viewer [flags]

Examples:
  # Connect to a local server
  modularui-viewer --name alice

  # Connect to a remote server with a stable viewer id
  modularui-viewer --server 10.0.0.5:7410 --id workstation-3

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
