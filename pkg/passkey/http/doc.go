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

// Package http provides composable HTTP handlers for passkey ceremonies.
//
// This package allows applications to add passkey authentication to their
// existing HTTP servers without coupling to the bundled server binary.
//
// # Usage
//
// Create a handler from a passkey service and mount it on your router:
//
//	svc, _ := passkey.NewService(...)
//	handler := passkeyhttp.NewHandler(svc)
//
//	// For chi router:
//	r.Route("/api/v1/passkey", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
//
//	// For stdlib http.ServeMux:
//	passkeyhttp.MountStdlib(mux, "/api/v1/passkey", handler)
//
// # Endpoints
//
// The handler provides the following endpoints:
//
//	POST /register               - Start registration ceremony
//	POST /register/verification  - Complete registration
//	POST /login                  - Start authentication ceremony
//	POST /login/verification     - Complete authentication
//
// # Response Format
//
// All responses are JSON. Begin operations return the WebAuthn options
// directly; finish operations return {"verified": true} plus the user ID
// after login. Error responses have the format:
//
//	{
//	    "error": "error_code",
//	    "message": "Human-readable message"
//	}
package http
