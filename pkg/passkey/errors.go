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

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations. Ceremonies report which kind of
// failure occurred and nothing else; verifier-internal diagnostics stay out
// of the error returned to transports.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrCredentialNotFound is returned when a credential cannot be found,
	// including when an assertion names a credential the user does not own.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrNoChallenge is returned when a verification step runs without an
	// outstanding challenge: never issued, already consumed, or issued for
	// a different ceremony.
	ErrNoChallenge = errors.New("no active challenge")

	// ErrChallengeExpired is returned when the outstanding challenge is
	// older than the configured TTL. The challenge is still consumed.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrVerificationFailed is returned when the cryptographic verifier
	// rejects an attestation or assertion response.
	ErrVerificationFailed = errors.New("verification failed")

	// ErrReplayDetected is returned when an assertion reports a signature
	// counter that did not advance past the stored value.
	ErrReplayDetected = errors.New("replay detected: signature counter did not increase")

	// ErrCredentialExists is returned when a registration attempts to store
	// a credential ID that already exists anywhere in the store.
	ErrCredentialExists = errors.New("credential already registered")

	// ErrUserExists is returned by stores when creating a user whose email
	// is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidInput is returned when a caller-supplied value fails
	// validation before any ceremony work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotConfigured is returned when the service is missing required
	// dependencies.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// Error wraps an error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsUnauthenticated returns true if the error indicates a missing or
// expired challenge.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrNoChallenge) || errors.Is(err, ErrChallengeExpired)
}

// IsVerificationFailed returns true if the error indicates verification failed.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsReplay returns true if the error indicates a counter replay rejection.
func IsReplay(err error) bool {
	return errors.Is(err, ErrReplayDetected)
}

// IsConflict returns true if the error indicates a duplicate credential.
func IsConflict(err error) bool {
	return errors.Is(err, ErrCredentialExists)
}

// IsInvalidInput returns true if the error indicates rejected caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
