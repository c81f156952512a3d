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

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/descope/virtualwebauthn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	passkeyhttp "github.com/jeremyhahn/go-passkey/pkg/passkey/http"
)

var testRP = virtualwebauthn.RelyingParty{
	Name:   "Example",
	ID:     "example.com",
	Origin: "https://example.com",
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := passkey.NewService(passkey.ServiceParams{
		Config: &passkey.Config{
			RPID:      testRP.ID,
			RPName:    testRP.Name,
			RPOrigins: []string{testRP.Origin},
		},
		UserStore:       passkey.NewMemoryUserStore(),
		CredentialStore: passkey.NewMemoryCredentialStore(),
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	passkeyhttp.MountStdlib(mux, "/api/v1/passkey", passkeyhttp.NewHandler(svc))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newConnectedClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	c, err := New(&Config{Address: server.URL})
	require.NoError(t, err)
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New(&Config{})
	assert.Error(t, err)

	c, err := New(&Config{Address: "passkey.example.com", TLSEnabled: true})
	require.NoError(t, err)
	assert.Equal(t, "https://passkey.example.com", c.baseURL)

	c, err = New(&Config{Address: "http://localhost:8080/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}

func TestNotConnected(t *testing.T) {
	c, err := New(&Config{Address: "http://localhost:1"})
	require.NoError(t, err)

	_, err = c.BeginRegistration(context.Background(), "alice@example.com")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectFailure(t *testing.T) {
	c, err := New(&Config{Address: "http://127.0.0.1:1"})
	require.NoError(t, err)

	err = c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestFullCeremony(t *testing.T) {
	server := newTestServer(t)
	c := newConnectedClient(t, server)
	ctx := context.Background()

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	// Registration
	options, err := c.BeginRegistration(ctx, "alice@example.com")
	require.NoError(t, err)

	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(options))
	require.NoError(t, err)

	attestation := virtualwebauthn.CreateAttestationResponse(testRP, authenticator, credential, *parsedOptions)
	require.NoError(t, c.FinishRegistration(ctx, "alice@example.com", json.RawMessage(attestation)))
	authenticator.AddCredential(credential)

	// Login
	loginOptions, err := c.BeginLogin(ctx, "alice@example.com")
	require.NoError(t, err)

	parsedAssertion, err := virtualwebauthn.ParseAssertionOptions(string(loginOptions))
	require.NoError(t, err)

	assertion := virtualwebauthn.CreateAssertionResponse(testRP, authenticator, credential, *parsedAssertion)
	userID, err := c.FinishLogin(ctx, "alice@example.com", json.RawMessage(assertion))
	require.NoError(t, err)
	assert.NotEmpty(t, userID)
}

func TestAPIErrorMapping(t *testing.T) {
	server := newTestServer(t)
	c := newConnectedClient(t, server)

	_, err := c.BeginLogin(context.Background(), "nobody@example.com")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, passkeyhttp.ErrorCodeUserNotFound, apiErr.Code)
	assert.NotEmpty(t, apiErr.Message)
}

func TestReplayRejected(t *testing.T) {
	server := newTestServer(t)
	c := newConnectedClient(t, server)
	ctx := context.Background()

	authenticator := virtualwebauthn.NewAuthenticator()
	credential := virtualwebauthn.NewCredential(virtualwebauthn.KeyTypeEC2)

	options, err := c.BeginRegistration(ctx, "bob@example.com")
	require.NoError(t, err)
	parsedOptions, err := virtualwebauthn.ParseAttestationOptions(string(options))
	require.NoError(t, err)
	attestation := virtualwebauthn.CreateAttestationResponse(testRP, authenticator, credential, *parsedOptions)
	require.NoError(t, c.FinishRegistration(ctx, "bob@example.com", json.RawMessage(attestation)))
	authenticator.AddCredential(credential)

	loginOptions, err := c.BeginLogin(ctx, "bob@example.com")
	require.NoError(t, err)
	parsedAssertion, err := virtualwebauthn.ParseAssertionOptions(string(loginOptions))
	require.NoError(t, err)
	assertion := virtualwebauthn.CreateAssertionResponse(testRP, authenticator, credential, *parsedAssertion)

	_, err = c.FinishLogin(ctx, "bob@example.com", json.RawMessage(assertion))
	require.NoError(t, err)

	// Re-sending the same assertion must fail, the challenge is spent
	_, err = c.FinishLogin(ctx, "bob@example.com", json.RawMessage(assertion))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
