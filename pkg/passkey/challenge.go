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
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

// ChallengeSize is the length in bytes of generated challenges.
const ChallengeSize = 32

// ChallengeManager issues and consumes per-user one-time challenges. The
// challenge lives on the persisted user record, which is what lets any
// number of stateless instances serve a multi-step ceremony.
type ChallengeManager struct {
	users UserStore
	ttl   time.Duration
	now   func() time.Time
	rand  io.Reader
}

// NewChallengeManager creates a challenge manager backed by the given user
// store. A ttl of zero disables the server-side expiry check.
func NewChallengeManager(users UserStore, ttl time.Duration) *ChallengeManager {
	return &ChallengeManager{
		users: users,
		ttl:   ttl,
		now:   time.Now,
		rand:  rand.Reader,
	}
}

// Issue generates a fresh random challenge, persists it on the user record
// and returns it. Any previously outstanding challenge is replaced.
func (m *ChallengeManager) Issue(ctx context.Context, user *User) ([]byte, error) {
	buf := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(m.rand, buf); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}

	challenge := Challenge{Value: buf, IssuedAt: m.now().UTC()}
	if err := m.users.SetChallenge(ctx, user.ID, challenge); err != nil {
		return nil, WrapError("persist challenge", err)
	}

	user.Challenge = &challenge
	return buf, nil
}

// Consume returns the outstanding challenge and clears it, whatever the
// outcome of the verification that follows. Returns ErrNoChallenge when no
// challenge is present and ErrChallengeExpired when the challenge outlived
// its TTL; expired challenges are consumed too.
func (m *ChallengeManager) Consume(ctx context.Context, user *User) ([]byte, error) {
	challenge, err := m.users.ConsumeChallenge(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Challenge = nil

	if m.ttl > 0 && m.now().Sub(challenge.IssuedAt) > m.ttl {
		return nil, ErrChallengeExpired
	}
	return challenge.Value, nil
}
