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
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory implementation of UserStore.
// This is intended for development and testing only.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]*User
	now     func() time.Time
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]*User),
		now:     time.Now,
	}
}

// GetByEmail retrieves a user by their email address.
func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.clone(), nil
}

// GetByID retrieves a user by ID.
func (s *MemoryUserStore) GetByID(ctx context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user.clone(), nil
}

// FindOrCreate returns the user with the given email, creating it if absent.
func (s *MemoryUserStore) FindOrCreate(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byEmail[email]; ok {
		return user.clone(), nil
	}

	now := s.now()
	user := &User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[user.ID] = user
	s.byEmail[email] = user

	return user.clone(), nil
}

// SetChallenge stores the challenge on the user record, replacing any
// outstanding one.
func (s *MemoryUserStore) SetChallenge(ctx context.Context, userID string, challenge Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Challenge = &challenge
	user.UpdatedAt = s.now()

	return nil
}

// ConsumeChallenge returns the outstanding challenge and clears it in the
// same critical section.
func (s *MemoryUserStore) ConsumeChallenge(ctx context.Context, userID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return Challenge{}, ErrUserNotFound
	}
	if user.Challenge == nil {
		return Challenge{}, ErrNoChallenge
	}

	challenge := *user.Challenge
	user.Challenge = nil
	user.UpdatedAt = s.now()

	return challenge, nil
}

// Count returns the number of users in the store.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clear removes all users from the store.
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*User)
	s.byEmail = make(map[string]*User)
}

// MemoryCredentialStore is an in-memory implementation of CredentialStore.
// This is intended for development and testing only.
type MemoryCredentialStore struct {
	mu       sync.RWMutex
	byID     map[string]*Credential
	byCredID map[string]*Credential
	byUser   map[string][]*Credential
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:     make(map[string]*Credential),
		byCredID: make(map[string]*Credential),
		byUser:   make(map[string][]*Credential),
	}
}

// Add stores a new credential, rejecting duplicate credential IDs across
// all users.
func (s *MemoryCredentialStore) Add(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.CredentialID)
	if _, ok := s.byCredID[key]; ok {
		return ErrCredentialExists
	}

	stored := cred.clone()
	s.byID[stored.ID] = stored
	s.byCredID[key] = stored
	s.byUser[stored.UserID] = append(s.byUser[stored.UserID], stored)

	return nil
}

// ByUser retrieves all credentials owned by a user.
func (s *MemoryCredentialStore) ByUser(ctx context.Context, userID string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := s.byUser[userID]
	out := make([]*Credential, len(creds))
	for i, cred := range creds {
		out[i] = cred.clone()
	}
	return out, nil
}

// ByCredentialID retrieves a credential by its authenticator-assigned ID.
func (s *MemoryCredentialStore) ByCredentialID(ctx context.Context, credentialID []byte) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byCredID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred.clone(), nil
}

// UpdateCounter records a new signature counter and last-used time.
func (s *MemoryCredentialStore) UpdateCounter(ctx context.Context, id string, counter uint32, usedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[id]
	if !ok {
		return ErrCredentialNotFound
	}
	cred.Counter = counter
	cred.LastUsedAt = usedAt

	return nil
}

// Count returns the number of credentials in the store.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clear removes all credentials from the store.
func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Credential)
	s.byCredID = make(map[string]*Credential)
	s.byUser = make(map[string][]*Credential)
}
