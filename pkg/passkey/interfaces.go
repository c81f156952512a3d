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
	"context"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// UserStore is the persistence layer for user records and their outstanding
// challenge. Implementations must serialize challenge writes per user:
// FindOrCreate is an atomic upsert by email, and ConsumeChallenge is an
// atomic read-then-clear, so two concurrent verification attempts can never
// both observe the same challenge.
type UserStore interface {
	// GetByEmail retrieves a user by email.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*User, error)

	// FindOrCreate returns the user with the given email, creating it with
	// an empty credential set if absent. The upsert is atomic: concurrent
	// calls for the same unseen email yield exactly one record.
	FindOrCreate(ctx context.Context, email string) (*User, error)

	// SetChallenge stores the challenge on the user record, replacing any
	// outstanding one.
	SetChallenge(ctx context.Context, userID string, challenge Challenge) error

	// ConsumeChallenge returns the outstanding challenge and clears it in
	// the same step. Returns ErrNoChallenge if no challenge is present.
	ConsumeChallenge(ctx context.Context, userID string) (Challenge, error)
}

// CredentialStore is the persistence layer for registered credentials.
type CredentialStore interface {
	// Add stores a new credential. Returns ErrCredentialExists if the
	// credential ID already exists anywhere in the store.
	Add(ctx context.Context, cred *Credential) error

	// ByUser retrieves all credentials owned by a user. Returns an empty
	// slice if the user has none.
	ByUser(ctx context.Context, userID string) ([]*Credential, error)

	// ByCredentialID retrieves a credential by its authenticator-assigned
	// ID. Returns ErrCredentialNotFound if it does not exist.
	ByCredentialID(ctx context.Context, credentialID []byte) (*Credential, error)

	// UpdateCounter records a new signature counter and last-used time for
	// a credential. Returns ErrCredentialNotFound if it does not exist.
	UpdateCounter(ctx context.Context, id string, counter uint32, usedAt time.Time) error
}

// Expected carries the values a response is verified against. The challenge
// is the one consumed from the user record; origin and RP ID come from the
// relying-party configuration.
type Expected struct {
	// Challenge is the raw challenge bytes the authenticator must have signed.
	Challenge []byte

	// UserHandle is the WebAuthn user handle the ceremony was issued for.
	UserHandle []byte

	// UserVerification is the verification requirement the options requested.
	UserVerification protocol.UserVerificationRequirement

	// CredParams lists the credential algorithms the options requested.
	// Attestation verification checks the created credential against this
	// list; assertions leave it empty.
	CredParams []protocol.CredentialParameter
}

// AttestationResult is the outcome of a successful attestation verification.
type AttestationResult struct {
	// CredentialID is the authenticator's public credential identifier.
	CredentialID []byte

	// PublicKey is the COSE-encoded credential public key.
	PublicKey []byte

	// Counter is the initial signature counter.
	Counter uint32

	// DeviceType classifies the credential by backup eligibility.
	DeviceType DeviceType

	// BackedUp indicates the credential is currently backed up.
	BackedUp bool

	// Transports lists the transports the authenticator reported.
	Transports []string
}

// AssertionResult is the outcome of a successful assertion verification.
// The caller compares NewCounter against the stored counter; the verifier
// itself never touches storage.
type AssertionResult struct {
	// NewCounter is the counter value the authenticator asserted.
	NewCounter uint32

	// CloneWarning is set when the asserted counter did not advance past
	// the stored one, indicating a possible cloned authenticator.
	CloneWarning bool
}

// Verifier is the cryptographic verification capability. Implementations
// are pure functions over their inputs: no I/O, no state. Verification
// failures are reported as ErrVerificationFailed.
type Verifier interface {
	// VerifyAttestation checks challenge equality, origin and RP-ID
	// binding, and the attestation statement of a registration response.
	VerifyAttestation(response *protocol.ParsedCredentialCreationData, expected Expected) (*AttestationResult, error)

	// VerifyAssertion checks challenge equality, origin and RP-ID binding,
	// and the assertion signature against the stored public key. The
	// stored counter is used only to derive CloneWarning; comparing and
	// persisting counters is the caller's responsibility.
	VerifyAssertion(response *protocol.ParsedCredentialAssertionData, expected Expected, publicKey []byte, counter uint32) (*AssertionResult, error)
}
