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
	"encoding/json"
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationService(t *testing.T) (*Service, virtualwebauthn.RelyingParty) {
	t.Helper()

	cfg := &Config{
		RPID:      "example.com",
		RPName:    "Example Corp",
		RPOrigins: []string{"https://example.com"},
	}
	svc, err := NewService(ServiceParams{
		Config:          cfg,
		UserStore:       NewMemoryUserStore(),
		CredentialStore: NewMemoryCredentialStore(),
	})
	require.NoError(t, err)

	rp := virtualwebauthn.RelyingParty{
		Name:   cfg.RPName,
		ID:     cfg.RPID,
		Origin: cfg.RPOrigins[0],
	}
	return svc, rp
}

// register runs a full registration ceremony against the virtual
// authenticator and attaches the credential for later logins.
func register(t *testing.T, svc *Service, rp virtualwebauthn.RelyingParty, authenticator *virtualwebauthn.Authenticator, credential virtualwebauthn.Credential, email string) *Credential {
	t.Helper()
	ctx := context.Background()

	options, err := svc.BeginRegistration(ctx, email)
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(rp, *authenticator, credential, *parsedOptions)
	parsedResponse, err := parseAttestationResponse(attestation)
	require.NoError(t, err)

	cred, err := svc.FinishRegistration(ctx, email, parsedResponse)
	require.NoError(t, err)

	authenticator.AddCredential(credential)
	return cred
}

func TestIntegrationRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	svc, rp := newIntegrationService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	options, err := svc.BeginRegistration(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, rp.ID, options.Response.RelyingParty.ID)
	assert.Equal(t, rp.Name, options.Response.RelyingParty.Name)
	assert.Equal(t, "alice@example.com", options.Response.User.Name)
	assert.NotEmpty(t, options.Response.Challenge)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(rp, authenticator, credential, *parsedOptions)
	parsedResponse, err := parseAttestationResponse(attestation)
	require.NoError(t, err)

	cred, err := svc.FinishRegistration(ctx, "alice@example.com", parsedResponse)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.NotEmpty(t, cred.CredentialID)
	assert.NotEmpty(t, cred.PublicKey)

	creds, err := svc.Credentials(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestIntegrationLoginFlow(t *testing.T) {
	ctx := context.Background()
	svc, rp := newIntegrationService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	registered := register(t, svc, rp, &authenticator, credential, "alice@example.com")

	options, err := svc.BeginLogin(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, rp.ID, options.Response.RelyingPartyID)
	require.Len(t, options.Response.AllowedCredentials, 1)
	assert.Equal(t, registered.CredentialID, []byte(options.Response.AllowedCredentials[0].CredentialID))

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)

	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(rp, authenticator, credential, *parsedOptions)
	parsedResponse, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	user, err := svc.FinishLogin(ctx, "alice@example.com", parsedResponse)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)

	// The virtual authenticator never advances its counter; the stored
	// value stays at zero, which the counterless rule accepts.
	creds, err := svc.Credentials(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, registered.Counter, creds[0].Counter)
	assert.Equal(t, uint32(0), creds[0].Counter)
}

func TestIntegrationLoginUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newIntegrationService(t)

	_, err := svc.BeginLogin(ctx, "nobody@example.com")
	assert.True(t, IsUserNotFound(err))
}

func TestIntegrationStaleResponseRejected(t *testing.T) {
	ctx := context.Background()
	svc, rp := newIntegrationService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	register(t, svc, rp, &authenticator, credential, "alice@example.com")

	options, err := svc.BeginLogin(ctx, "alice@example.com")
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAssertionOptions(string(optionsJSON))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(rp, authenticator, credential, *parsedOptions)
	parsedResponse, err := parseAssertionResponse(assertion)
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "alice@example.com", parsedResponse)
	require.NoError(t, err)

	// Re-submitting the same response fails; the challenge is spent
	_, err = svc.FinishLogin(ctx, "alice@example.com", parsedResponse)
	assert.True(t, IsUnauthenticated(err))

	// A response signed over an old challenge fails verification even
	// after fresh options are issued
	_, err = svc.BeginLogin(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = svc.FinishLogin(ctx, "alice@example.com", parsedResponse)
	assert.True(t, IsVerificationFailed(err))
}

func TestIntegrationDuplicateRegistrationRejected(t *testing.T) {
	ctx := context.Background()
	svc, rp := newIntegrationService(t)

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)
	register(t, svc, rp, &authenticator, credential, "alice@example.com")

	// The same authenticator credential cannot be enrolled under another
	// account
	options, err := svc.BeginRegistration(ctx, "bob@example.com")
	require.NoError(t, err)

	optionsJSON, err := json.Marshal(options.Response)
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(optionsJSON))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(rp, authenticator, credential, *parsedOptions)
	parsedResponse, err := parseAttestationResponse(attestation)
	require.NoError(t, err)

	_, err = svc.FinishRegistration(ctx, "bob@example.com", parsedResponse)
	assert.True(t, IsConflict(err))
}

// parseAttestationResponse parses a virtual authenticator attestation
// response into the format expected by go-webauthn.
func parseAttestationResponse(attestation string) (*protocol.ParsedCredentialCreationData, error) {
	var ccr protocol.CredentialCreationResponse
	if err := json.Unmarshal([]byte(attestation), &ccr); err != nil {
		return nil, err
	}
	return ccr.Parse()
}

// parseAssertionResponse parses a virtual authenticator assertion response
// into the format expected by go-webauthn.
func parseAssertionResponse(assertion string) (*protocol.ParsedCredentialAssertionData, error) {
	var car protocol.CredentialAssertionResponse
	if err := json.Unmarshal([]byte(assertion), &car); err != nil {
		return nil, err
	}
	return car.Parse()
}
