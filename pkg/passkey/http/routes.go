// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountChi mounts passkey routes on a chi router.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc)
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
func MountChi(r chi.Router, h *Handler) {
	r.Post("/register", h.BeginRegistration)
	r.Post("/register/verification", h.FinishRegistration)
	r.Post("/login", h.BeginLogin)
	r.Post("/login/verification", h.FinishLogin)
}

// MountStdlib mounts passkey routes on a stdlib http.ServeMux.
// The prefix should not include a trailing slash.
//
// Example:
//
//	handler := passkeyhttp.NewHandler(svc)
//	passkeyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
func MountStdlib(mux *http.ServeMux, prefix string, h *Handler) {
	mux.HandleFunc(prefix+"/register", h.BeginRegistration)
	mux.HandleFunc(prefix+"/register/verification", h.FinishRegistration)
	mux.HandleFunc(prefix+"/login", h.BeginLogin)
	mux.HandleFunc(prefix+"/login/verification", h.FinishLogin)
}

// RouteEntry represents a single route with its method, path, and handler.
type RouteEntry struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Routes returns a slice of route entries for manual mounting.
// Useful for frameworks not directly supported.
func (h *Handler) Routes() []RouteEntry {
	return []RouteEntry{
		{Method: "POST", Path: "/register", Handler: h.BeginRegistration},
		{Method: "POST", Path: "/register/verification", Handler: h.FinishRegistration},
		{Method: "POST", Path: "/login", Handler: h.BeginLogin},
		{Method: "POST", Path: "/login/verification", Handler: h.FinishLogin},
	}
}
