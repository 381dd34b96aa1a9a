// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries framed protocol messages between the
// authoritative server and viewers.
//
// [Conn] is the message-level connection both sides program against:
// Send, Receive, Close. Messages sent on one Conn arrive in the order
// they were sent. [StreamConn] frames messages over any byte stream
// with [protocol.EncodeFrame] and [protocol.ReadMessage], queueing
// outbound frames for a writer goroutine so a stalled peer cannot
// stall the sender. [Pipe] returns a connected in-memory pair for
// tests and for running both sides in one process.
//
// [TCPListener] accepts viewer connections and hands each one to a
// [Handler] on its own goroutine. [TCPDialer] opens the viewer side.
package transport
