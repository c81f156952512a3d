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
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// Config configures the relying party. RPID, RPName and RPOrigins carry no
// defaults; they must be supplied by the caller.
type Config struct {
	// RPID is the Relying Party identifier, typically the domain name.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id"`

	// RPName is the human-readable name of the Relying Party.
	// Example: "Example Corp"
	RPName string `yaml:"name" json:"name"`

	// RPOrigins are the allowed origins for ceremony responses.
	// Example: []string{"https://example.com"}
	RPOrigins []string `yaml:"origins" json:"origins"`

	// ChallengeTimeout is the client-visible timeout hint included in
	// issued options. Default: 60 seconds.
	ChallengeTimeout time.Duration `yaml:"challenge_timeout" json:"challenge_timeout"`

	// ChallengeTTL is the server-side lifetime of an issued challenge;
	// consuming an older challenge fails. Default: ChallengeTimeout.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl"`

	// Debug enables debug logging in the underlying WebAuthn library.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPName == "" {
		return fmt.Errorf("RPName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}
	if c.ChallengeTimeout < 0 {
		return fmt.Errorf("challenge timeout must not be negative")
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("challenge TTL must not be negative")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ChallengeTimeout == 0 {
		c.ChallengeTimeout = 60 * time.Second
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = c.ChallengeTimeout
	}
}

// ToWebAuthnConfig converts the Config to the go-webauthn library's
// configuration for the verifier.
func (c *Config) ToWebAuthnConfig() *webauthn.Config {
	return &webauthn.Config{
		RPID:          c.RPID,
		RPDisplayName: c.RPName,
		RPOrigins:     c.RPOrigins,
		Debug:         c.Debug,
	}
}
