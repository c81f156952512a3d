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
	"bytes"
	"context"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// AuthenticationCeremony signs users in against previously enrolled
// credentials, enforcing counter monotonicity as the replay signal.
type AuthenticationCeremony struct {
	config     *Config
	users      UserStore
	creds      CredentialStore
	challenges *ChallengeManager
	verifier   Verifier
	now        func() time.Time
}

// NewAuthenticationCeremony creates an authentication ceremony with the
// given dependencies.
func NewAuthenticationCeremony(config *Config, users UserStore, creds CredentialStore, challenges *ChallengeManager, verifier Verifier) *AuthenticationCeremony {
	return &AuthenticationCeremony{
		config:     config,
		users:      users,
		creds:      creds,
		challenges: challenges,
		verifier:   verifier,
		now:        time.Now,
	}
}

// GenerateOptions loads the user for the email and returns assertion
// options carrying a fresh challenge and an allow-list of every credential
// the user owns. Unknown emails fail with ErrUserNotFound; unlike
// registration, authentication never creates users.
func (c *AuthenticationCeremony) GenerateOptions(ctx context.Context, email string) (*protocol.CredentialAssertion, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	creds, err := c.creds.ByUser(ctx, user.ID)
	if err != nil {
		return nil, WrapError("list credentials", err)
	}

	challenge, err := c.challenges.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	options := protocol.PublicKeyCredentialRequestOptions{
		Challenge:          challenge,
		Timeout:            int(c.config.ChallengeTimeout.Milliseconds()),
		RelyingPartyID:     c.config.RPID,
		AllowedCredentials: Descriptors(creds),
		UserVerification:   protocol.VerificationPreferred,
	}

	return &protocol.CredentialAssertion{Response: options}, nil
}

// Verify consumes the user's outstanding challenge and validates the
// assertion response against the credential it names. The asserted counter
// must advance past the stored value; a non-increasing counter is rejected
// as a replay and leaves the stored counter untouched. Counterless
// authenticators that report zero on both sides are accepted. On success
// the new counter is persisted and the authenticated user returned.
func (c *AuthenticationCeremony) Verify(ctx context.Context, email string, response *protocol.ParsedCredentialAssertionData) (*User, error) {
	user, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	challenge, err := c.challenges.Consume(ctx, user)
	if err != nil {
		return nil, err
	}

	cred, err := c.findCredential(ctx, user, response.RawID)
	if err != nil {
		return nil, err
	}

	result, err := c.verifier.VerifyAssertion(response, Expected{
		Challenge:        challenge,
		UserHandle:       user.Handle(),
		UserVerification: protocol.VerificationPreferred,
	}, cred.PublicKey, cred.Counter)
	if err != nil {
		return nil, err
	}

	if result.CloneWarning || replayed(result.NewCounter, cred.Counter) {
		return nil, ErrReplayDetected
	}

	if err := c.creds.UpdateCounter(ctx, cred.ID, result.NewCounter, c.now().UTC()); err != nil {
		return nil, WrapError("update counter", err)
	}

	return user, nil
}

// findCredential locates the credential named by the assertion among the
// user's own credentials. Foreign or unknown credential IDs fail with
// ErrCredentialNotFound.
func (c *AuthenticationCeremony) findCredential(ctx context.Context, user *User, credentialID []byte) (*Credential, error) {
	creds, err := c.creds.ByUser(ctx, user.ID)
	if err != nil {
		return nil, WrapError("list credentials", err)
	}
	for _, cred := range creds {
		if bytes.Equal(cred.CredentialID, credentialID) {
			return cred, nil
		}
	}
	return nil, ErrCredentialNotFound
}

// replayed reports whether the asserted counter failed to advance. Two
// zeros mean the authenticator does not implement a counter and carry no
// replay signal.
func replayed(asserted, stored uint32) bool {
	if asserted == 0 && stored == 0 {
		return false
	}
	return asserted <= stored
}
