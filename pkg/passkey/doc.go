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

// Package passkey provides a server-side passkey (WebAuthn) relying party
// that can be used as a library in any Go application.
//
// This package wraps the go-webauthn/webauthn library and provides:
//   - Email-keyed registration and authentication ceremonies
//   - Single-use challenges bound to the user record, with TTL enforcement
//   - Signature-counter replay detection for cloned authenticators
//   - Pluggable storage interfaces for users and credentials
//   - In-memory storage implementations for development/testing
//   - Composable HTTP handlers that can be mounted on any router
//
// # Architecture
//
// The package is designed with a layered architecture:
//
//  1. Service layer (Service) - Registration and login ceremonies
//  2. Storage layer (UserStore, CredentialStore) - Pluggable persistence
//  3. HTTP layer (pkg/passkey/http) - Composable HTTP handlers
//
// All ceremony state lives on the persisted user record: issuing options
// stores a challenge on the user, and verification consumes it atomically.
// There is no separate session store, so any replica holding the user
// store can finish a ceremony another replica began.
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:      "localhost",
//	        RPName:    "My App",
//	        RPOrigins: []string{"https://localhost:3000"},
//	    },
//	    UserStore:       passkey.NewMemoryUserStore(),
//	    CredentialStore: passkey.NewMemoryCredentialStore(),
//	})
//
// For production, implement the storage interfaces with your database.
// An implementation backed by PostgreSQL ships in internal/storage/postgres.
//
// # HTTP Handlers
//
// The http subpackage provides handlers that can be mounted on any router:
//
//	handler := passkeyhttp.NewHandler(svc)
//	passkeyhttp.MountChi(r, handler)
//
// # WebAuthn Specification Compliance
//
// This implementation follows the W3C Web Authentication specification:
//   - https://www.w3.org/TR/webauthn-2/
//   - https://www.w3.org/TR/webauthn-3/
//
// Note: WebAuthn requires HTTPS for all operations. Browsers will only
// expose the WebAuthn API in secure contexts.
package passkey
