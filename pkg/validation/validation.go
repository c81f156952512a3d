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

// Package validation provides centralized input validation for the
// go-passkey APIs. The service layer enforces these checks, so every
// entry point (REST, CLI) gets the same rules.
package validation

import (
	"fmt"
	"net/mail"
	"strings"
)

// MaxEmailLength caps account identifiers. RFC 5321 limits the
// forward path to 256 octets including angle brackets.
const MaxEmailLength = 254

// ValidateEmail validates an account email address.
// Rejects empty strings, null bytes, control characters, overlong
// values, and anything net/mail cannot parse as a bare address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	if strings.Contains(email, "\x00") {
		return fmt.Errorf("email contains null byte")
	}

	if len(email) > MaxEmailLength {
		return fmt.Errorf("email too long (max %d characters)", MaxEmailLength)
	}

	for _, r := range email {
		if r < 32 || r == 127 {
			return fmt.Errorf("email contains control characters")
		}
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email address")
	}
	// Reject display-name forms like "Alice <alice@example.com>";
	// the account identifier is the bare address.
	if addr.Address != email {
		return fmt.Errorf("invalid email address")
	}

	return nil
}

// NormalizeEmail trims surrounding whitespace from an email address.
// The address itself is preserved byte for byte; emails are
// case-sensitive identity keys, so "Alice@example.com" and
// "alice@example.com" name distinct accounts. Call after ValidateEmail.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
