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
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"

	"github.com/jeremyhahn/go-passkey/pkg/validation"
)

// Service provides passkey registration and authentication operations.
type Service struct {
	config       *Config
	registration *RegistrationCeremony
	login        *AuthenticationCeremony
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// UserStore is the user persistence layer (required).
	UserStore UserStore

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// Verifier performs the cryptographic response validation. If nil,
	// a go-webauthn backed verifier is created from Config.
	Verifier Verifier
}

// NewService creates a new passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	// Set defaults and validate
	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	verifier := params.Verifier
	if verifier == nil {
		v, err := NewWebAuthnVerifier(params.Config)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	challenges := NewChallengeManager(params.UserStore, params.Config.ChallengeTTL)

	return &Service{
		config: params.Config,
		registration: NewRegistrationCeremony(
			params.Config, params.UserStore, params.CredentialStore, challenges, verifier),
		login: NewAuthenticationCeremony(
			params.Config, params.UserStore, params.CredentialStore, challenges, verifier),
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// BeginRegistration starts a registration ceremony for the given email,
// creating the user if it does not exist. The returned options are sent to
// the client for navigator.credentials.create().
func (s *Service) BeginRegistration(ctx context.Context, email string) (*protocol.CredentialCreation, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, WrapError("BeginRegistration", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return s.registration.GenerateOptions(ctx, validation.NormalizeEmail(email))
}

// FinishRegistration completes a registration ceremony by verifying the
// authenticator's attestation response and storing the new credential.
func (s *Service) FinishRegistration(ctx context.Context, email string, response *protocol.ParsedCredentialCreationData) (*Credential, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, WrapError("FinishRegistration", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	if response == nil {
		return nil, WrapError("FinishRegistration", fmt.Errorf("%w: response is required", ErrInvalidInput))
	}
	return s.registration.Verify(ctx, validation.NormalizeEmail(email), response)
}

// BeginLogin starts an authentication ceremony for an existing user. The
// returned options are sent to the client for navigator.credentials.get().
func (s *Service) BeginLogin(ctx context.Context, email string) (*protocol.CredentialAssertion, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, WrapError("BeginLogin", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	return s.login.GenerateOptions(ctx, validation.NormalizeEmail(email))
}

// FinishLogin completes an authentication ceremony by verifying the
// authenticator's assertion response, detecting replayed or cloned
// authenticators via the signature counter.
func (s *Service) FinishLogin(ctx context.Context, email string, response *protocol.ParsedCredentialAssertionData) (*User, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, WrapError("FinishLogin", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	if response == nil {
		return nil, WrapError("FinishLogin", fmt.Errorf("%w: response is required", ErrInvalidInput))
	}
	return s.login.Verify(ctx, validation.NormalizeEmail(email), response)
}

// Credentials returns all credentials registered to the user with the
// given email.
func (s *Service) Credentials(ctx context.Context, email string) ([]*Credential, error) {
	if err := validation.ValidateEmail(email); err != nil {
		return nil, WrapError("Credentials", fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}
	user, err := s.registration.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		return nil, WrapError("Credentials", err)
	}
	return s.registration.creds.ByUser(ctx, user.ID)
}
