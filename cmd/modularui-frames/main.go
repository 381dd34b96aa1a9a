// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// modularui-frames decodes a captured modularui frame stream and prints
// each message in CBOR diagnostic notation. Compressed frames are
// decompressed first, so the output shows what the peer decoded.
//
// With --expand, the widget deltas nested inside Open and Update
// messages are diagnosed as well; on the wire they are opaque byte
// strings.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/modularui/lib/codec"
	"github.com/bureau-foundation/modularui/lib/version"
	"github.com/bureau-foundation/modularui/protocol"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var maxPayload int
	var expand bool

	flagSet := pflag.NewFlagSet("modularui-frames", pflag.ContinueOnError)
	flagSet.IntVar(&maxPayload, "max-payload", protocol.DefaultMaxPayload, "largest frame payload accepted, in bytes")
	flagSet.BoolVarP(&expand, "expand", "x", false, "also diagnose widget delta payloads")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("modularui-frames")
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

	input := io.Reader(os.Stdin)
	switch args := flagSet.Args(); len(args) {
	case 0:
	case 1:
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	default:
		return fmt.Errorf("expected at most one file argument, got %d", len(args))
	}

	output := bufio.NewWriter(os.Stdout)
	defer output.Flush()
	return dumpFrames(bufio.NewReader(input), output, protocol.FrameOptions{MaxPayload: maxPayload}, expand)
}

// dumpFrames prints every frame read from r until a clean end of
// stream. A stream cut mid-frame is an error.
func dumpFrames(r io.Reader, w io.Writer, options protocol.FrameOptions, expand bool) error {
	for index := 0; ; index++ {
		message, err := protocol.ReadMessage(r, options)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("frame %d: %w", index, err)
		}
		if err := printFrame(w, index, message, expand); err != nil {
			return err
		}
	}
}

func printFrame(w io.Writer, index int, message protocol.Message, expand bool) error {
	notation, err := codec.Diagnose(message.Payload)
	if err != nil {
		notation = fmt.Sprintf("<invalid CBOR: %v>", err)
	}
	if _, err := fmt.Fprintf(w, "#%d %s (%d bytes) %s\n", index, protocol.TypeName(message.Type), len(message.Payload), notation); err != nil {
		return err
	}
	if !expand {
		return nil
	}

	switch message.Type {
	case protocol.MessageTypeOpen:
		open, err := protocol.DecodeOpen(message)
		if err != nil {
			return nil
		}
		for _, update := range open.Updates {
			if err := printDelta(w, update.Widget, update.Payload); err != nil {
				return err
			}
		}
	case protocol.MessageTypeUpdate:
		update, err := protocol.DecodeUpdate(message)
		if err != nil {
			return nil
		}
		return printDelta(w, update.Widget, update.Payload)
	}
	return nil
}

func printDelta(w io.Writer, widgetID int, payload []byte) error {
	notation, err := codec.Diagnose(payload)
	if err != nil {
		notation = fmt.Sprintf("<invalid CBOR: %v>", err)
	}
	_, err = fmt.Fprintf(w, "    widget %d: %s\n", widgetID, notation)
	return err
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `modularui-frames: print a captured modularui frame stream.

Reads frames from the named file, or stdin, and prints one line per
message: its index, type, payload size, and the payload in CBOR
diagnostic notation.

Usage:
  modularui-frames [flags] [file]

Examples:
  # Print a capture with widget deltas expanded
  modularui-frames --expand session.frames

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
