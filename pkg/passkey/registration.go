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
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/google/uuid"
)

// RegistrationCeremony enrolls new authenticators. Each ceremony attempt
// runs Idle -> OptionsIssued -> {Verified | Rejected}; all intermediate
// state lives on the persisted user record.
type RegistrationCeremony struct {
	config     *Config
	users      UserStore
	creds      CredentialStore
	challenges *ChallengeManager
	verifier   Verifier
	now        func() time.Time
}

// NewRegistrationCeremony creates a registration ceremony with the given
// dependencies.
func NewRegistrationCeremony(config *Config, users UserStore, creds CredentialStore, challenges *ChallengeManager, verifier Verifier) *RegistrationCeremony {
	return &RegistrationCeremony{
		config:     config,
		users:      users,
		creds:      creds,
		challenges: challenges,
		verifier:   verifier,
		now:        time.Now,
	}
}

// GenerateOptions finds or creates the user for the email, issues a fresh
// challenge bound to it, and returns credential creation options requesting
// a discoverable credential with mandatory user verification. The exclusion
// list names every credential the user already registered, so the same
// authenticator cannot enroll twice.
func (c *RegistrationCeremony) GenerateOptions(ctx context.Context, email string) (*protocol.CredentialCreation, error) {
	user, err := c.users.FindOrCreate(ctx, email)
	if err != nil {
		return nil, WrapError("find or create user", err)
	}

	existing, err := c.creds.ByUser(ctx, user.ID)
	if err != nil {
		return nil, WrapError("list credentials", err)
	}

	challenge, err := c.challenges.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	options := protocol.PublicKeyCredentialCreationOptions{
		Challenge: challenge,
		RelyingParty: protocol.RelyingPartyEntity{
			CredentialEntity: protocol.CredentialEntity{Name: c.config.RPName},
			ID:               c.config.RPID,
		},
		User: protocol.UserEntity{
			CredentialEntity: protocol.CredentialEntity{Name: user.Email},
			DisplayName:      user.Email,
			ID:               protocol.URLEncodedBase64(user.Handle()),
		},
		Parameters: credentialParameters(),
		Timeout:    int(c.config.ChallengeTimeout.Milliseconds()),
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			RequireResidentKey: protocol.ResidentKeyRequired(),
			ResidentKey:        protocol.ResidentKeyRequirementRequired,
			UserVerification:   protocol.VerificationRequired,
		},
		Attestation:           protocol.PreferNoAttestation,
		CredentialExcludeList: Descriptors(existing),
	}

	return &protocol.CredentialCreation{Response: options}, nil
}

// Verify consumes the user's outstanding challenge and validates the
// attestation response against it. The challenge is spent on entry; a
// failed verification requires a fresh GenerateOptions call. On success the
// credential is stored, unless its credential ID already exists anywhere in
// the store, which is rejected as a conflict.
func (c *RegistrationCeremony) Verify(ctx context.Context, email string, response *protocol.ParsedCredentialCreationData) (*Credential, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	challenge, err := c.challenges.Consume(ctx, user)
	if err != nil {
		return nil, err
	}

	result, err := c.verifier.VerifyAttestation(response, Expected{
		Challenge:        challenge,
		UserHandle:       user.Handle(),
		UserVerification: protocol.VerificationRequired,
		CredParams:       credentialParameters(),
	})
	if err != nil {
		return nil, err
	}

	if _, err := c.creds.ByCredentialID(ctx, result.CredentialID); err == nil {
		return nil, ErrCredentialExists
	} else if !IsCredentialNotFound(err) {
		return nil, WrapError("check credential uniqueness", err)
	}

	cred := &Credential{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		CredentialID: result.CredentialID,
		PublicKey:    result.PublicKey,
		Counter:      result.Counter,
		DeviceType:   result.DeviceType,
		BackedUp:     result.BackedUp,
		Transports:   result.Transports,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.creds.Add(ctx, cred); err != nil {
		return nil, WrapError("store credential", err)
	}

	return cred, nil
}

// credentialParameters returns the accepted credential algorithms, most
// preferred first.
func credentialParameters() []protocol.CredentialParameter {
	return []protocol.CredentialParameter{
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgEdDSA},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgES256},
		{Type: protocol.PublicKeyCredentialType, Algorithm: webauthncose.AlgRS256},
	}
}
