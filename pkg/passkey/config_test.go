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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "missing RPID",
			config:  Config{RPName: "Example", RPOrigins: []string{"https://example.com"}},
			wantErr: "RPID is required",
		},
		{
			name:    "missing RPName",
			config:  Config{RPID: "example.com", RPOrigins: []string{"https://example.com"}},
			wantErr: "RPName is required",
		},
		{
			name:    "missing origins",
			config:  Config{RPID: "example.com", RPName: "Example"},
			wantErr: "at least one RPOrigin is required",
		},
		{
			name: "negative timeout",
			config: Config{
				RPID:             "example.com",
				RPName:           "Example",
				RPOrigins:        []string{"https://example.com"},
				ChallengeTimeout: -time.Second,
			},
			wantErr: "challenge timeout must not be negative",
		},
		{
			name: "negative TTL",
			config: Config{
				RPID:         "example.com",
				RPName:       "Example",
				RPOrigins:    []string{"https://example.com"},
				ChallengeTTL: -time.Second,
			},
			wantErr: "challenge TTL must not be negative",
		},
		{
			name: "valid",
			config: Config{
				RPID:      "example.com",
				RPName:    "Example",
				RPOrigins: []string{"https://example.com"},
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		cfg := Config{}
		cfg.SetDefaults()
		assert.Equal(t, 60*time.Second, cfg.ChallengeTimeout)
		assert.Equal(t, 60*time.Second, cfg.ChallengeTTL)
	})

	t.Run("TTL follows custom timeout", func(t *testing.T) {
		cfg := Config{ChallengeTimeout: 2 * time.Minute}
		cfg.SetDefaults()
		assert.Equal(t, 2*time.Minute, cfg.ChallengeTimeout)
		assert.Equal(t, 2*time.Minute, cfg.ChallengeTTL)
	})

	t.Run("explicit values preserved", func(t *testing.T) {
		cfg := Config{
			ChallengeTimeout: 30 * time.Second,
			ChallengeTTL:     5 * time.Minute,
		}
		cfg.SetDefaults()
		assert.Equal(t, 30*time.Second, cfg.ChallengeTimeout)
		assert.Equal(t, 5*time.Minute, cfg.ChallengeTTL)
	})
}

func TestConfigToWebAuthnConfig(t *testing.T) {
	cfg := Config{
		RPID:      "example.com",
		RPName:    "Example Corp",
		RPOrigins: []string{"https://example.com", "https://app.example.com"},
		Debug:     true,
	}

	wc := cfg.ToWebAuthnConfig()
	assert.Equal(t, "example.com", wc.RPID)
	assert.Equal(t, "Example Corp", wc.RPDisplayName)
	assert.Equal(t, cfg.RPOrigins, wc.RPOrigins)
	assert.True(t, wc.Debug)
}
