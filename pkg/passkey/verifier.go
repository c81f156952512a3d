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
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// WebAuthnVerifier implements Verifier on top of the go-webauthn library.
// It reconstructs the library's session data from the consumed challenge,
// making verification a pure function of the ceremony inputs; all ceremony
// state stays on the user record. Library diagnostics are logged here and
// never leave the verifier; callers see ErrVerificationFailed only.
type WebAuthnVerifier struct {
	wa     *webauthn.WebAuthn
	logger *slog.Logger
}

// NewWebAuthnVerifier creates a verifier for the given relying-party
// configuration.
func NewWebAuthnVerifier(config *Config) (*WebAuthnVerifier, error) {
	wa, err := webauthn.New(config.ToWebAuthnConfig())
	if err != nil {
		return nil, fmt.Errorf("create webauthn instance: %w", err)
	}
	return &WebAuthnVerifier{wa: wa, logger: slog.Default()}, nil
}

// WithLogger sets a custom logger for verification diagnostics.
func (v *WebAuthnVerifier) WithLogger(logger *slog.Logger) *WebAuthnVerifier {
	v.logger = logger
	return v
}

// VerifyAttestation validates a registration response against the expected
// challenge, origin and RP ID, and extracts the new credential on success.
func (v *WebAuthnVerifier) VerifyAttestation(response *protocol.ParsedCredentialCreationData, expected Expected) (*AttestationResult, error) {
	user := verifierUser{handle: expected.UserHandle}
	session := webauthn.SessionData{
		Challenge:        encodeChallenge(expected.Challenge),
		UserID:           expected.UserHandle,
		UserVerification: expected.UserVerification,
		CredParams:       expected.CredParams,
	}

	cred, err := v.wa.CreateCredential(user, session, response)
	if err != nil {
		v.logger.Debug("attestation rejected", "error", err)
		return nil, ErrVerificationFailed
	}

	transports := make([]string, len(cred.Transport))
	for i, t := range cred.Transport {
		transports[i] = string(t)
	}

	deviceType := DeviceTypeSingle
	if cred.Flags.BackupEligible {
		deviceType = DeviceTypeMulti
	}

	return &AttestationResult{
		CredentialID: cred.ID,
		PublicKey:    cred.PublicKey,
		Counter:      cred.Authenticator.SignCount,
		DeviceType:   deviceType,
		BackedUp:     cred.Flags.BackupState,
		Transports:   transports,
	}, nil
}

// VerifyAssertion validates an authentication response against the expected
// challenge, origin, RP ID and the stored public key. The reported counter
// is the authenticator-asserted value; the caller decides what to do with it.
func (v *WebAuthnVerifier) VerifyAssertion(response *protocol.ParsedCredentialAssertionData, expected Expected, publicKey []byte, counter uint32) (*AssertionResult, error) {
	user := verifierUser{
		handle: expected.UserHandle,
		creds: []webauthn.Credential{{
			ID:            response.RawID,
			PublicKey:     publicKey,
			Authenticator: webauthn.Authenticator{SignCount: counter},
		}},
	}
	session := webauthn.SessionData{
		Challenge:        encodeChallenge(expected.Challenge),
		UserID:           expected.UserHandle,
		UserVerification: expected.UserVerification,
	}

	cred, err := v.wa.ValidateLogin(user, session, response)
	if err != nil {
		v.logger.Debug("assertion rejected", "error", err)
		return nil, ErrVerificationFailed
	}

	return &AssertionResult{
		NewCounter:   cred.Authenticator.SignCount,
		CloneWarning: cred.Authenticator.CloneWarning,
	}, nil
}

// encodeChallenge renders raw challenge bytes the way clients echo them in
// collected client data.
func encodeChallenge(challenge []byte) string {
	return base64.RawURLEncoding.EncodeToString(challenge)
}

// verifierUser is the minimal user the library needs during verification.
type verifierUser struct {
	handle []byte
	creds  []webauthn.Credential
}

func (u verifierUser) WebAuthnID() []byte {
	return u.handle
}

func (u verifierUser) WebAuthnName() string {
	return string(u.handle)
}

func (u verifierUser) WebAuthnDisplayName() string {
	return string(u.handle)
}

func (u verifierUser) WebAuthnCredentials() []webauthn.Credential {
	return u.creds
}
