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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
	"github.com/lib/pq"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// CredentialStore implements passkey.CredentialStore on PostgreSQL.
// Credential ID uniqueness is enforced by the schema, so duplicate
// registrations surface as constraint violations rather than
// read-then-write races.
type CredentialStore struct {
	db *sql.DB
}

// NewCredentialStore creates a CredentialStore over the given connection pool.
func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// Add stores a new credential.
func (s *CredentialStore) Add(ctx context.Context, cred *passkey.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials
		 (id, user_id, credential_id, public_key, counter, device_type, backed_up, transports, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cred.ID, cred.UserID, cred.CredentialID, cred.PublicKey, int64(cred.Counter),
		string(cred.DeviceType), cred.BackedUp, pq.Array(cred.Transports),
		cred.CreatedAt.UTC(), cred.LastUsedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return passkey.ErrCredentialExists
		}
		return fmt.Errorf("failed to insert credential: %w", err)
	}

	return nil
}

// ByUser retrieves all credentials owned by a user, oldest first.
func (s *CredentialStore) ByUser(ctx context.Context, userID string) ([]*passkey.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, credential_id, public_key, counter, device_type, backed_up, transports, created_at, last_used_at
		 FROM credentials WHERE user_id = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	creds := []*passkey.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows.Scan)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return creds, nil
}

// ByCredentialID retrieves a credential by its authenticator-assigned ID.
func (s *CredentialStore) ByCredentialID(ctx context.Context, credentialID []byte) (*passkey.Credential, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, credential_id, public_key, counter, device_type, backed_up, transports, created_at, last_used_at
		 FROM credentials WHERE credential_id = $1`,
		credentialID,
	)

	cred, err := scanCredential(row.Scan)
	if err == sql.ErrNoRows {
		return nil, passkey.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}

	return cred, nil
}

// UpdateCounter records a new signature counter and last-used time.
func (s *CredentialStore) UpdateCounter(ctx context.Context, id string, counter uint32, usedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET counter = $2, last_used_at = $3 WHERE id = $1`,
		id, int64(counter), usedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update counter: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return passkey.ErrCredentialNotFound
	}

	return nil
}

func scanCredential(scan func(dest ...any) error) (*passkey.Credential, error) {
	var (
		cred       passkey.Credential
		counter    int64
		deviceType string
		transports pq.StringArray
	)
	err := scan(&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey, &counter,
		&deviceType, &cred.BackedUp, &transports, &cred.CreatedAt, &cred.LastUsedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credential: %w", err)
	}

	cred.Counter = uint32(counter) // #nosec G115 - counter is written from a uint32
	cred.DeviceType = passkey.DeviceType(deviceType)
	cred.Transports = transports

	return &cred, nil
}

// compile-time interface check
var _ passkey.CredentialStore = (*CredentialStore)(nil)
