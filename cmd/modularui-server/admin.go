// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bureau-foundation/modularui/session"
)

// sessionInfo is one entry of GET /sessions.
type sessionInfo struct {
	ID          int32  `json:"id"`
	Viewer      string `json:"viewer"`
	ViewerName  string `json:"viewer_name,omitempty"`
	Factory     string `json:"factory"`
	Title       string `json:"title"`
	Widgets     int    `json:"widgets"`
	Fingerprint string `json:"fingerprint"`
}

func newAdminRouter(registry *session.Registry) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	router.Get("/sessions", func(w http.ResponseWriter, r *http.Request) {
		live := registry.Sessions()
		infos := make([]sessionInfo, 0, len(live))
		for _, s := range live {
			tmpl := s.Template()
			infos = append(infos, sessionInfo{
				ID:          s.ID(),
				Viewer:      s.Viewer().ID,
				ViewerName:  s.Viewer().Name,
				Factory:     s.Factory().Name(),
				Title:       tmpl.Title(),
				Widgets:     tmpl.Len(),
				Fingerprint: tmpl.Fingerprint().Short(),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(infos)
	})

	return router
}
