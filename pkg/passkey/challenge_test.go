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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeIssue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	manager := NewChallengeManager(store, time.Minute)

	user, err := store.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	challenge, err := manager.Issue(ctx, user)
	require.NoError(t, err)
	assert.Len(t, challenge, ChallengeSize)

	// The challenge is persisted on the user record
	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Challenge)
	assert.Equal(t, challenge, stored.Challenge.Value)

	// Issuing again replaces the outstanding challenge
	second, err := manager.Issue(ctx, user)
	require.NoError(t, err)
	assert.NotEqual(t, challenge, second)

	stored, err = store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, second, stored.Challenge.Value)
}

func TestChallengeIssueUnknownUser(t *testing.T) {
	ctx := context.Background()
	manager := NewChallengeManager(NewMemoryUserStore(), time.Minute)

	_, err := manager.Issue(ctx, &User{ID: "ghost"})
	require.Error(t, err)
	assert.True(t, IsUserNotFound(err))
}

func TestChallengeConsume(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	manager := NewChallengeManager(store, time.Minute)

	user, err := store.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	issued, err := manager.Issue(ctx, user)
	require.NoError(t, err)

	consumed, err := manager.Consume(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, issued, consumed)

	// Consuming is single-use
	_, err = manager.Consume(ctx, user)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoChallenge)

	// The store no longer holds a challenge
	stored, err := store.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Challenge)
}

func TestChallengeConsumeWithoutIssue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	manager := NewChallengeManager(store, time.Minute)

	user, err := store.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = manager.Consume(ctx, user)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	manager := NewChallengeManager(store, time.Minute)

	now := time.Now()
	manager.now = func() time.Time { return now }

	user, err := store.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	_, err = manager.Issue(ctx, user)
	require.NoError(t, err)

	// Advance past the TTL
	manager.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, err = manager.Consume(ctx, user)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	// The expired challenge was still spent
	_, err = manager.Consume(ctx, user)
	assert.ErrorIs(t, err, ErrNoChallenge)
}

func TestChallengeZeroTTLDisablesExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()
	manager := NewChallengeManager(store, 0)

	now := time.Now()
	manager.now = func() time.Time { return now }

	user, err := store.FindOrCreate(ctx, "alice@example.com")
	require.NoError(t, err)

	issued, err := manager.Issue(ctx, user)
	require.NoError(t, err)

	manager.now = func() time.Time { return now.Add(24 * time.Hour) }

	consumed, err := manager.Consume(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, issued, consumed)
}
