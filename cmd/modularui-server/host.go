// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/modularui/factory"
	"github.com/bureau-foundation/modularui/lib/clock"
	"github.com/bureau-foundation/modularui/lib/config"
	"github.com/bureau-foundation/modularui/lib/machineui"
	"github.com/bureau-foundation/modularui/protocol"
	"github.com/bureau-foundation/modularui/session"
	"github.com/bureau-foundation/modularui/transport"
)

// machineRetention is how long a viewer's machine outlives their last
// panel, so a reconnecting viewer finds it again.
const machineRetention = 5 * time.Minute

// host owns the demo domain: one machine per viewer id, stepped on the
// authoritative context. Viewers that reconnect within
// machineRetention get their machine back; after that it is dropped.
type host struct {
	logger  *slog.Logger
	clock   clock.Clock
	server  *session.Server
	machine factory.Factory

	// machines and idleSince are only touched on the authoritative
	// context. idleSince holds viewers with no open panel.
	machines  map[string]*machineui.Machine
	idleSince map[string]time.Time

	// connectContext bounds OnConnect's wait for the authoritative
	// context. Set once by run before any connection is served.
	connectContext context.Context
}

func newHost(cfg *config.Config, logger *slog.Logger) (*host, error) {
	return newHostWithClock(cfg, logger, clock.Real())
}

func newHostWithClock(cfg *config.Config, logger *slog.Logger, clk clock.Clock) (*host, error) {
	factories := factory.NewRegistry()
	machine := machineui.Default()
	if _, err := factories.Register(machine); err != nil {
		return nil, err
	}
	factories.Freeze()

	h := &host{
		logger:         logger,
		clock:          clk,
		machine:        machine,
		machines:       make(map[string]*machineui.Machine),
		idleSince:      make(map[string]time.Time),
		connectContext: context.Background(),
	}
	server, err := session.NewServer(session.ServerConfig{
		Factories:    factories,
		Clock:        clk,
		TickInterval: cfg.Server.TickInterval,
		TaskQueue:    cfg.Server.TaskQueue,
		HelloTimeout: cfg.Server.HelloTimeout,
		OnConnect:    h.onConnect,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	h.server = server
	server.Registry().Subscribe(h.onSessionEvent)
	return h, nil
}

// onSessionEvent starts the retention clock when a viewer's panel
// closes for any reason other than being replaced by a new one. It can
// run on the authoritative context (a failed tick send), so the
// follow-up is submitted from a goroutine.
func (h *host) onSessionEvent(event session.Event) {
	if event.Kind != session.EventClosed || event.Reason == protocol.CloseReasonReplaced {
		return
	}
	viewerID := event.Session.Viewer().ID
	go h.server.Submit(h.connectContext, func() { h.retire(viewerID) })
}

// retire marks the viewer idle and schedules a reap. Authoritative
// context only.
func (h *host) retire(viewerID string) {
	if _, ok := h.machines[viewerID]; !ok {
		return
	}
	h.idleSince[viewerID] = h.clock.Now()
	h.clock.AfterFunc(machineRetention, func() {
		h.server.Submit(h.connectContext, func() { h.reap(viewerID) })
	})
}

// reap drops the viewer's machine if they stayed away for the whole
// retention period. Authoritative context only.
func (h *host) reap(viewerID string) {
	since, idle := h.idleSince[viewerID]
	if !idle || h.server.Registry().ActiveFor(viewerID) != nil {
		return
	}
	if h.clock.Now().Sub(since) < machineRetention {
		return
	}
	delete(h.idleSince, viewerID)
	delete(h.machines, viewerID)
	h.logger.Debug("dropped idle machine", "viewer", viewerID, "machines", len(h.machines))
}

// onConnect opens the viewer's machine panel on the authoritative
// context.
func (h *host) onConnect(viewer factory.Viewer) {
	err := h.server.Do(h.connectContext, func() error {
		_, err := h.server.Open(h.machine, h.machineFor(viewer.ID), viewer)
		return err
	})
	if err != nil && !errors.Is(err, session.ErrStopped) && !errors.Is(err, context.Canceled) {
		h.logger.Error("opening machine panel failed", "viewer", viewer.ID, "error", err)
	}
}

// machineFor returns the viewer's machine, creating a running one on
// first use. Authoritative context only.
func (h *host) machineFor(viewerID string) *machineui.Machine {
	delete(h.idleSince, viewerID)
	if m, ok := h.machines[viewerID]; ok {
		return m
	}
	m := machineui.NewMachine("Furnace", 2, "Iron Ingot")
	m.Running = true
	h.machines[viewerID] = m
	return m
}

// step advances every machine once. Authoritative context only.
func (h *host) step() {
	for _, m := range h.machines {
		m.Step()
	}
}

// simulate submits a step every interval until ctx is done.
func (h *host) simulate(ctx context.Context, interval time.Duration) {
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.server.Submit(ctx, h.step); err != nil {
				return
			}
		}
	}
}

// run serves viewers on listener until ctx is cancelled.
func (h *host) run(ctx context.Context, listener transport.Listener, stepInterval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.connectContext = ctx

	var wait sync.WaitGroup
	wait.Add(2)
	go func() {
		defer wait.Done()
		h.server.Run(ctx)
	}()
	go func() {
		defer wait.Done()
		h.simulate(ctx, stepInterval)
	}()

	err := listener.Serve(ctx, func(ctx context.Context, conn transport.Conn) {
		if err := h.server.ServeConn(ctx, conn); err != nil {
			h.logger.Warn("viewer connection ended with error", "error", err)
		}
	})
	cancel()
	wait.Wait()
	return err
}
