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

import "encoding/json"

// BeginRequest is the request body for starting a registration or login
// ceremony.
type BeginRequest struct {
	// Email identifies the account (required).
	Email string `json:"email"`
}

// FinishRequest is the request body for completing a registration or login
// ceremony.
type FinishRequest struct {
	// Email identifies the account (required).
	Email string `json:"email"`

	// Response is the authenticator response exactly as produced by
	// navigator.credentials.create() or .get().
	Response json.RawMessage `json:"response"`
}

// VerificationResponse is the response after a finish operation.
type VerificationResponse struct {
	// Verified is true when the ceremony completed successfully.
	Verified bool `json:"verified"`

	// UserID is the authenticated user's ID, present after login only.
	UserID string `json:"user_id,omitempty"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeUserNotFound       = "user_not_found"
	ErrorCodeUnauthenticated    = "unauthenticated"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeReplayDetected     = "replay_detected"
	ErrorCodeCredentialExists   = "credential_exists"
	ErrorCodeInternalError      = "internal_error"
)
