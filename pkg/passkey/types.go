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
	"time"

	"github.com/go-webauthn/webauthn/protocol"
)

// User is an account known to the relying party, keyed by email. Users are
// created lazily on the first registration-options request and never deleted
// by this package.
type User struct {
	// ID is the opaque user identifier, generated at creation. Its UTF-8
	// bytes double as the WebAuthn user handle.
	ID string `json:"id"`

	// Email is the unique, case-sensitive identity key.
	Email string `json:"email"`

	// Challenge is the outstanding ceremony challenge, present only between
	// options issuance and verification.
	Challenge *Challenge `json:"challenge,omitempty"`

	// CreatedAt is when the user record was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the user record was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}

// Handle returns the WebAuthn user handle for the user.
func (u *User) Handle() []byte {
	return []byte(u.ID)
}

// clone returns a deep copy of the user.
func (u *User) clone() *User {
	out := *u
	if u.Challenge != nil {
		ch := *u.Challenge
		ch.Value = append([]byte(nil), u.Challenge.Value...)
		out.Challenge = &ch
	}
	return &out
}

// Challenge is a one-time random value an authenticator must sign. It
// identifies exactly one outstanding ceremony for its user and is cleared
// the moment a verification step reaches it.
type Challenge struct {
	// Value is the raw challenge bytes.
	Value []byte `json:"value"`

	// IssuedAt is when the challenge was generated, used for TTL checks.
	IssuedAt time.Time `json:"issued_at"`
}

// DeviceType classifies a credential by its backup eligibility, mirroring
// the WebAuthn credentialDeviceType notion.
type DeviceType string

const (
	// DeviceTypeSingle is a credential bound to a single authenticator.
	DeviceTypeSingle DeviceType = "single_device"

	// DeviceTypeMulti is a credential that can sync across devices.
	DeviceTypeMulti DeviceType = "multi_device"
)

// Credential is one authenticator enrollment owned by a User. A credential
// is created exactly once, at successful registration verification, and only
// its counter and last-used timestamp change afterwards.
type Credential struct {
	// ID is the row identifier assigned by the store.
	ID string `json:"id"`

	// UserID references the owning user.
	UserID string `json:"user_id"`

	// CredentialID is the authenticator-assigned public identifier,
	// globally unique across the store.
	CredentialID []byte `json:"credential_id"`

	// PublicKey is the COSE-encoded public key, immutable after creation.
	PublicKey []byte `json:"public_key"`

	// Counter is the signature counter, monotonically non-decreasing
	// across successful authentications.
	Counter uint32 `json:"counter"`

	// DeviceType records whether the credential is single- or multi-device.
	DeviceType DeviceType `json:"device_type"`

	// BackedUp indicates the credential is currently backed up.
	BackedUp bool `json:"backed_up"`

	// Transports lists the transports the authenticator reported,
	// e.g. usb, nfc, ble, internal.
	Transports []string `json:"transports,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// clone returns a deep copy of the credential.
func (c *Credential) clone() *Credential {
	out := *c
	out.CredentialID = append([]byte(nil), c.CredentialID...)
	out.PublicKey = append([]byte(nil), c.PublicKey...)
	out.Transports = append([]string(nil), c.Transports...)
	return &out
}

// Descriptor returns the protocol descriptor for the credential, used in
// exclusion and allow lists.
func (c *Credential) Descriptor() protocol.CredentialDescriptor {
	transports := make([]protocol.AuthenticatorTransport, len(c.Transports))
	for i, t := range c.Transports {
		transports[i] = protocol.AuthenticatorTransport(t)
	}
	return protocol.CredentialDescriptor{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: c.CredentialID,
		Transport:    transports,
	}
}

// Descriptors maps credentials to their protocol descriptors, preserving
// order. The result contains exactly one descriptor per credential.
func Descriptors(creds []*Credential) []protocol.CredentialDescriptor {
	out := make([]protocol.CredentialDescriptor, len(creds))
	for i, c := range creds {
		out[i] = c.Descriptor()
	}
	return out
}
